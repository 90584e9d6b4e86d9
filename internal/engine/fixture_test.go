package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/models"
	"github.com/untibullet/teamform/internal/repository/sqlitestore"
	"go.uber.org/zap/zaptest"
)

var baseTime = time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

var defaultLimits = models.ParticipationLimits{
	TeamMaxParticipants:       2,
	IndividualMaxParticipants: 3,
	MemberMaxParticipants:     3,
}

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *sqlitestore.Store
	svc   *engine.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithLimits(t, defaultLimits)
}

// newFixtureWithLimits лимиты читаются из таблицы configs, как в рабочей базе
func newFixtureWithLimits(t *testing.T, limits models.ParticipationLimits) *fixture {
	t.Helper()
	store, err := sqlitestore.Open(sqlitestore.InMemoryDSN)
	require.NoErrorf(t, err, "sqlitestore.Open failed: %s", err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.SetParticipationLimits(ctx, limits))

	return &fixture{
		t:     t,
		ctx:   ctx,
		store: store,
		svc:   engine.New(store, store, zaptest.NewLogger(t)),
	}
}

func (f *fixture) user(username string, skills ...string) *models.User {
	f.t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		RealName: username,
		Skills:   skills,
	}
	require.NoError(f.t, f.store.CreateUser(f.ctx, u))
	return u
}

// competition окно задается в днях от baseTime
func (f *fixture) competition(title string, startDay, endDay int) *models.Competition {
	f.t.Helper()
	start := baseTime.AddDate(0, 0, startDay)
	end := baseTime.AddDate(0, 0, endDay)
	c := &models.Competition{Title: title, StartTime: &start, EndTime: &end}
	require.NoError(f.t, f.store.CreateCompetition(f.ctx, c))
	return c
}

func (f *fixture) team(leader *models.User, name, needSkills string) *models.Team {
	f.t.Helper()
	team, err := f.svc.CreateTeam(f.ctx, models.Team{Name: name, LeaderID: leader.ID, NeedSkills: needSkills})
	require.NoError(f.t, err)
	return team
}

func (f *fixture) addMember(team *models.Team, u *models.User) {
	f.t.Helper()
	_, err := f.svc.AddTeamMember(f.ctx, team.ID, u.ID, models.RoleMember)
	require.NoError(f.t, err)
}

func (f *fixture) registerIndividual(u *models.User, c *models.Competition) {
	f.t.Helper()
	_, err := f.svc.RegisterForCompetition(f.ctx, engine.RegistrationRequest{
		CompetitionID: c.ID,
		UserID:        u.ID,
		Mode:          models.ModeIndividual,
	})
	require.NoError(f.t, err)
}

func (f *fixture) registerTeam(leader *models.User, team *models.Team, c *models.Competition) ([]models.Participation, error) {
	teamID := team.ID
	return f.svc.RegisterForCompetition(f.ctx, engine.RegistrationRequest{
		CompetitionID: c.ID,
		UserID:        leader.ID,
		TeamID:        &teamID,
		Mode:          models.ModeTeam,
	})
}

func (f *fixture) participations(u *models.User) []models.Participation {
	f.t.Helper()
	records, err := f.svc.ListUserParticipations(f.ctx, u.ID)
	require.NoError(f.t, err)
	return records
}

func (f *fixture) pairApplications(u *models.User, team *models.Team) []models.Application {
	f.t.Helper()
	apps, err := f.svc.ListUserApplications(f.ctx, u.ID)
	require.NoError(f.t, err)
	var out []models.Application
	for _, a := range apps {
		if a.TeamID == team.ID {
			out = append(out, a)
		}
	}
	return out
}

func (f *fixture) isMember(team *models.Team, u *models.User) bool {
	f.t.Helper()
	members, err := f.svc.ListTeamMembers(f.ctx, team.ID)
	require.NoError(f.t, err)
	for _, m := range members {
		if m.UserID == u.ID {
			return true
		}
	}
	return false
}
