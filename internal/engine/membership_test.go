package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/models"
)

func TestCreateTeamAddsLeader(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")

	team := f.team(leader, "  Rockets ", "Go，SQL, Go")
	assert.Equal(t, "Rockets", team.Name)
	assert.Equal(t, "Go,SQL", team.NeedSkills)

	members, err := f.svc.ListTeamMembers(f.ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, leader.ID, members[0].UserID)
	assert.Equal(t, models.RoleLeader, members[0].Role)
	assert.Equal(t, models.MembershipActive, members[0].Status)

	_, err = f.svc.CreateTeam(f.ctx, models.Team{Name: " ", LeaderID: leader.ID})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.svc.CreateTeam(f.ctx, models.Team{Name: "Ghosts", LeaderID: 999})
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestAddTeamMember(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	_, err := f.svc.AddTeamMember(f.ctx, team.ID, alice.ID, "captain")
	assert.ErrorIs(t, err, apperrors.ErrInvalidRole)

	_, err = f.svc.AddTeamMember(f.ctx, team.ID, alice.ID, models.RoleLeader)
	assert.ErrorIs(t, err, apperrors.ErrInvalidRole)

	m, err := f.svc.AddTeamMember(f.ctx, team.ID, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, m.Role)

	_, err = f.svc.AddTeamMember(f.ctx, team.ID, alice.ID, models.RoleMember)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyMember)

	_, err = f.svc.AddTeamMember(f.ctx, team.ID, 999, models.RoleMember)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)
}

func TestLeaderCannotBeRemoved(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	team := f.team(leader, "Rockets", "")

	_, err := f.svc.RemoveTeamMember(f.ctx, team.ID, leader.ID)
	assert.ErrorIs(t, err, apperrors.ErrCannotRemoveLeader)
	assert.True(t, f.isMember(team, leader))
}

func TestRemoveTeamMemberCascade(t *testing.T) {
	f := newFixture(t)
	leaderA := f.user("leaderA")
	leaderB := f.user("leaderB")
	alice := f.user("alice")
	teamA := f.team(leaderA, "Alpha", "")
	teamB := f.team(leaderB, "Beta", "")

	c1 := f.competition("C1", 10, 20)
	c2 := f.competition("C2", 30, 40)
	c3 := f.competition("C3", 50, 60)

	app, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, teamA.ID)
	require.NoError(t, err)
	_, err = f.svc.ReviewApplication(f.ctx, app.ID, true, "")
	require.NoError(t, err)
	f.addMember(teamB, alice)

	_, err = f.registerTeam(leaderA, teamA, c1)
	require.NoError(t, err)
	_, err = f.registerTeam(leaderB, teamB, c2)
	require.NoError(t, err)
	f.registerIndividual(alice, c3)
	require.Len(t, f.participations(alice), 3)

	removed, err := f.svc.RemoveTeamMember(f.ctx, teamA.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	assert.False(t, f.isMember(teamA, alice))
	assert.True(t, f.isMember(teamB, alice))
	assert.Empty(t, f.pairApplications(alice, teamA))

	left := f.participations(alice)
	require.Len(t, left, 2)
	for _, p := range left {
		assert.False(t, p.BelongsToTeam(teamA.ID))
	}
	assert.Len(t, f.participations(leaderA), 1)

	removed, err = f.svc.RemoveTeamMember(f.ctx, teamA.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestDeleteTeam(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	bob := f.user("bob")
	team := f.team(leader, "Rockets", "")
	f.addMember(team, alice)
	_, err := f.svc.ApplyToJoinTeam(f.ctx, bob.ID, team.ID)
	require.NoError(t, err)

	err = f.svc.DeleteTeam(f.ctx, team.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotLeader)

	require.NoError(t, f.svc.DeleteTeam(f.ctx, team.ID, leader.ID))

	_, err = f.svc.ListTeamMembers(f.ctx, team.ID)
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
	assert.Empty(t, f.pairApplications(bob, team))

	err = f.svc.DeleteTeam(f.ctx, team.ID, leader.ID)
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}

func TestCascadeOnJoinIsBestEffort(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	c1 := f.competition("C1", 10, 20)
	c2 := f.competition("C2", 30, 40)
	clash := f.competition("Clash", 15, 25)

	_, err := f.registerTeam(leader, team, c1)
	require.NoError(t, err)
	_, err = f.registerTeam(leader, team, c2)
	require.NoError(t, err)

	// alice уже занята в пересекающемся с C1 соревновании
	f.registerIndividual(alice, clash)

	f.addMember(team, alice)

	records := f.participations(alice)
	require.Len(t, records, 2)
	var inherited []int64
	for _, p := range records {
		if p.BelongsToTeam(team.ID) {
			inherited = append(inherited, p.CompetitionID)
			assert.Equal(t, models.RoleMember, p.Role)
			assert.Equal(t, models.ModeTeam, p.Mode)
		}
	}
	assert.Equal(t, []int64{c2.ID}, inherited)
}

func TestCascadeRespectsMemberQuota(t *testing.T) {
	limits := defaultLimits
	limits.MemberMaxParticipants = 1
	f := newFixtureWithLimits(t, limits)

	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	c1 := f.competition("C1", 10, 20)
	c2 := f.competition("C2", 30, 40)
	_, err := f.registerTeam(leader, team, c1)
	require.NoError(t, err)
	_, err = f.registerTeam(leader, team, c2)
	require.NoError(t, err)

	f.addMember(team, alice)

	records := f.participations(alice)
	require.Len(t, records, 1)
	assert.Equal(t, c1.ID, records[0].CompetitionID)
}

func TestCascadeSkipsDeletedCompetition(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	c1 := f.competition("C1", 10, 20)
	c2 := f.competition("C2", 30, 40)
	_, err := f.registerTeam(leader, team, c1)
	require.NoError(t, err)
	_, err = f.registerTeam(leader, team, c2)
	require.NoError(t, err)
	require.NoError(t, f.store.DeleteCompetition(f.ctx, c1.ID))

	f.addMember(team, alice)

	records := f.participations(alice)
	require.Len(t, records, 1)
	assert.Equal(t, c2.ID, records[0].CompetitionID)
}
