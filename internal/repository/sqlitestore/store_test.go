package sqlitestore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryDSN)
	require.NoErrorf(t, err, "Open failed: %s", err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUserLookup(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	alice := &models.User{Username: "alice", Email: "a@example.com", Phone: "100", Skills: []string{"Java", "SQL"}}
	require.NoError(t, s.CreateUser(ctx, alice))
	bob := &models.User{Username: "bob", Email: "shared@example.com"}
	require.NoError(t, s.CreateUser(ctx, bob))
	carol := &models.User{Username: "carol", Email: "shared@example.com"}
	require.NoError(t, s.CreateUser(ctx, carol))

	err := s.InTx(ctx, func(ctx context.Context, tx engine.Tx) error {
		u, err := tx.GetUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"Java", "SQL"}, u.Skills)

		_, err = tx.GetUser(ctx, 999)
		assert.ErrorIs(t, err, engine.ErrNotFound)

		found, err := tx.FindUsersByIdentifier(ctx, "100")
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, alice.ID, found[0].ID)

		found, err = tx.FindUsersByIdentifier(ctx, "shared@example.com")
		require.NoError(t, err)
		assert.Len(t, found, 2)
		return nil
	})
	require.NoError(t, err)
}

func TestPendingIndexRejectsSecondPending(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	now := time.Now().UTC()
	app := func() *models.Application {
		return &models.Application{
			UserID: 1, TeamID: 1, LeaderID: 2,
			Type: models.ApplicationApply, Status: models.StatusPending,
			CreatedAt: now, UpdatedAt: now,
		}
	}

	err := s.InTx(ctx, func(ctx context.Context, tx engine.Tx) error {
		first := app()
		require.NoError(t, tx.CreateApplication(ctx, first))
		assert.NotZero(t, first.ID)

		err := tx.CreateApplication(ctx, app())
		assert.ErrorIs(t, err, engine.ErrDuplicatePending)

		// после решения по первой заявке можно подать новую
		first.Status = models.StatusRejected
		require.NoError(t, tx.UpdateApplication(ctx, first))
		require.NoError(t, tx.CreateApplication(ctx, app()))
		return nil
	})
	require.NoError(t, err)
}

func TestDuplicateMembership(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	err := s.InTx(ctx, func(ctx context.Context, tx engine.Tx) error {
		m := &models.Membership{TeamID: 1, UserID: 1, Role: models.RoleMember, Status: models.MembershipActive, JoinedAt: time.Now()}
		require.NoError(t, tx.AddMembership(ctx, m))
		assert.ErrorIs(t, tx.AddMembership(ctx, m), engine.ErrDuplicateMember)

		removed, err := tx.DeleteMembership(ctx, 1, 1)
		require.NoError(t, err)
		assert.True(t, removed)

		removed, err = tx.DeleteMembership(ctx, 1, 1)
		require.NoError(t, err)
		assert.False(t, removed)
		return nil
	})
	require.NoError(t, err)
}

func TestInTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(ctx context.Context, tx engine.Tx) error {
		require.NoError(t, tx.CreateTeam(ctx, &models.Team{Name: "T", LeaderID: 1, CreatedAt: time.Now()}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	err = s.InTx(ctx, func(ctx context.Context, tx engine.Tx) error {
		_, err := tx.GetTeam(ctx, 1)
		assert.ErrorIs(t, err, engine.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestParticipationDeletes(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	teamA, teamB := int64(1), int64(2)
	records := []models.Participation{
		{CompetitionID: 10, TeamID: &teamA, UserID: 1, Mode: models.ModeTeam, Role: models.RoleLeader},
		{CompetitionID: 10, TeamID: &teamA, UserID: 2, Mode: models.ModeTeam, Role: models.RoleMember},
		{CompetitionID: 11, TeamID: &teamB, UserID: 2, Mode: models.ModeTeam, Role: models.RoleMember},
		{CompetitionID: 12, UserID: 2, Mode: models.ModeIndividual, Role: models.RoleIndividual},
	}

	err := s.InTx(ctx, func(ctx context.Context, tx engine.Tx) error {
		for i := range records {
			records[i].CreatedAt = time.Now()
			require.NoError(t, tx.CreateParticipation(ctx, &records[i]))
		}

		n, err := tx.DeleteMemberParticipations(ctx, teamA, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		left, err := tx.ListUserParticipations(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, left, 2)

		n, err = tx.DeleteTeamParticipations(ctx, 10, teamA)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		n, err = tx.DeleteUserParticipations(ctx, 12, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		left, err = tx.ListTeamParticipations(ctx, teamB)
		require.NoError(t, err)
		assert.Len(t, left, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestParticipationLimits(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	_, err := s.ParticipationLimits(ctx)
	require.Error(t, err)

	want := models.ParticipationLimits{TeamMaxParticipants: 2, IndividualMaxParticipants: 3, MemberMaxParticipants: 4}
	require.NoError(t, s.SetParticipationLimits(ctx, want))

	got, err := s.ParticipationLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	want.MemberMaxParticipants = 1
	require.NoError(t, s.SetParticipationLimits(ctx, want))
	got, err = s.ParticipationLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, got.MemberMaxParticipants)
}

func TestEnsureParticipationLimitsKeepsExisting(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	seed := models.ParticipationLimits{TeamMaxParticipants: 2, IndividualMaxParticipants: 3, MemberMaxParticipants: 3}
	require.NoError(t, s.EnsureParticipationLimits(ctx, seed))

	got, err := s.ParticipationLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	// повторный вызов не перетирает значения, измененные вручную
	changed := models.ParticipationLimits{TeamMaxParticipants: 5, IndividualMaxParticipants: 5, MemberMaxParticipants: 5}
	require.NoError(t, s.SetParticipationLimits(ctx, changed))
	require.NoError(t, s.EnsureParticipationLimits(ctx, seed))

	got, err = s.ParticipationLimits(ctx)
	require.NoError(t, err)
	assert.Equal(t, changed, got)
}
