package engine_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/models"
)

func TestApplyToJoinTeam(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	app, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationApply, app.Type)
	assert.Equal(t, models.StatusPending, app.Status)
	assert.Equal(t, leader.ID, app.LeaderID)

	_, err = f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyApplied)

	_, err = f.svc.ApplyToJoinTeam(f.ctx, leader.ID, team.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyMember)

	_, err = f.svc.ApplyToJoinTeam(f.ctx, 999, team.ID)
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = f.svc.ApplyToJoinTeam(f.ctx, alice.ID, 999)
	assert.ErrorIs(t, err, apperrors.ErrTeamNotFound)
}

func TestConcurrentApplyLeavesOnePending(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	const workers = 8
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		success int
		errs    []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.ApplyToJoinTeam(context.Background(), alice.ID, team.ID)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				success++
				return
			}
			errs = append(errs, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, success)
	for _, err := range errs {
		assert.ErrorIs(t, err, apperrors.ErrAlreadyApplied)
	}
	assert.Len(t, f.pairApplications(alice, team), 1)
}

func TestDirectDuplicatePendingInsert(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	_, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
	require.NoError(t, err)

	err = f.store.InTx(f.ctx, func(ctx context.Context, tx engine.Tx) error {
		return tx.CreateApplication(ctx, &models.Application{
			UserID:   alice.ID,
			TeamID:   team.ID,
			LeaderID: leader.ID,
			Type:     models.ApplicationInvite,
			Status:   models.StatusPending,
		})
	})
	assert.ErrorIs(t, err, engine.ErrDuplicatePending)
}

func TestMutualMatch(t *testing.T) {
	t.Run("invite after apply", func(t *testing.T) {
		f := newFixture(t)
		leader := f.user("leader")
		alice := f.user("alice")
		team := f.team(leader, "Rockets", "")

		_, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
		require.NoError(t, err)

		app, err := f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "alice", "join us")
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, app.Status)
		assert.Equal(t, models.ApplicationApply, app.Type)

		assert.True(t, f.isMember(team, alice))
		apps := f.pairApplications(alice, team)
		require.Len(t, apps, 1)
		assert.Equal(t, models.StatusApproved, apps[0].Status)
	})

	t.Run("apply after invite", func(t *testing.T) {
		f := newFixture(t)
		leader := f.user("leader")
		alice := f.user("alice")
		team := f.team(leader, "Rockets", "")

		_, err := f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "alice@example.com", "")
		require.NoError(t, err)

		app, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusApproved, app.Status)
		assert.Equal(t, models.ApplicationInvite, app.Type)

		assert.True(t, f.isMember(team, alice))
		apps := f.pairApplications(alice, team)
		require.Len(t, apps, 1)
		assert.Equal(t, models.StatusApproved, apps[0].Status)
	})
}

func TestInviteUserToTeam(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	outsider := f.user("outsider")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	// два пользователя с одинаковым телефоном
	require.NoError(t, f.store.CreateUser(f.ctx, &models.User{Username: "twin1", Phone: "555"}))
	require.NoError(t, f.store.CreateUser(f.ctx, &models.User{Username: "twin2", Phone: "555"}))

	tests := []struct {
		name       string
		inviter    int64
		identifier string
		wantErr    error
	}{
		{"not leader", outsider.ID, "alice", apperrors.ErrNotLeader},
		{"empty identifier", leader.ID, "  ", apperrors.ErrAmbiguousOrMissingIdentifier},
		{"unknown identifier", leader.ID, "nobody", apperrors.ErrAmbiguousOrMissingIdentifier},
		{"ambiguous identifier", leader.ID, "555", apperrors.ErrAmbiguousOrMissingIdentifier},
		{"already member", leader.ID, "leader", apperrors.ErrAlreadyMember},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.InviteUserToTeam(f.ctx, team.ID, tt.inviter, tt.identifier, "")
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	invite, err := f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "alice", "hi")
	require.NoError(t, err)
	assert.Equal(t, models.ApplicationInvite, invite.Type)
	assert.Equal(t, alice.ID, invite.UserID)
	assert.Equal(t, "hi", invite.Message)

	_, err = f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "alice", "")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyInvited)

	pending, err := f.svc.ListUserInvitations(f.ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, invite.ID, pending[0].ID)
}

func TestReviewApplication(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	bob := f.user("bob")
	team := f.team(leader, "Rockets", "")

	aliceApp, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
	require.NoError(t, err)
	bobApp, err := f.svc.ApplyToJoinTeam(f.ctx, bob.ID, team.ID)
	require.NoError(t, err)

	pending, err := f.svc.ListPendingForLeader(f.ctx, leader.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	approved, err := f.svc.ReviewApplication(f.ctx, aliceApp.ID, true, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, approved.Status)
	assert.True(t, f.isMember(team, alice))

	rejected, err := f.svc.ReviewApplication(f.ctx, bobApp.ID, false, "no slots")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "no slots", *rejected.RejectionReason)
	assert.False(t, f.isMember(team, bob))

	_, err = f.svc.ReviewApplication(f.ctx, bobApp.ID, true, "")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)

	_, err = f.svc.ReviewApplication(f.ctx, 999, true, "")
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)

	// после отказа можно подать заявку заново, старая запись удаляется
	again, err := f.svc.ApplyToJoinTeam(f.ctx, bob.ID, team.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, again.Status)
	assert.Len(t, f.pairApplications(bob, team), 1)
}

func TestRespondToInvitation(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	bob := f.user("bob")
	team := f.team(leader, "Rockets", "")

	invite, err := f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "alice", "")
	require.NoError(t, err)

	_, err = f.svc.RespondToInvitation(f.ctx, invite.ID, bob.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrNotApplicant)

	bobApp, err := f.svc.ApplyToJoinTeam(f.ctx, bob.ID, team.ID)
	require.NoError(t, err)
	_, err = f.svc.RespondToInvitation(f.ctx, bobApp.ID, bob.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrNotAnInvitation)

	declined, err := f.svc.RespondToInvitation(f.ctx, invite.ID, alice.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, declined.Status)
	require.NotNil(t, declined.RejectionReason)
	assert.Equal(t, "declined by user", *declined.RejectionReason)

	_, err = f.svc.RespondToInvitation(f.ctx, invite.ID, alice.ID, true)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)

	// повторное приглашение после отказа
	invite, err = f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "alice", "")
	require.NoError(t, err)
	accepted, err := f.svc.RespondToInvitation(f.ctx, invite.ID, alice.ID, true)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, accepted.Status)
	assert.True(t, f.isMember(team, alice))

	_, err = f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "alice", "")
	assert.ErrorIs(t, err, apperrors.ErrAlreadyMember)
}

func TestCancelApplication(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	team := f.team(leader, "Rockets", "")

	app, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
	require.NoError(t, err)

	_, err = f.svc.CancelApplication(f.ctx, app.ID, leader.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotApplicant)

	deleted, err := f.svc.CancelApplication(f.ctx, app.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.Empty(t, f.pairApplications(alice, team))

	_, err = f.svc.CancelApplication(f.ctx, app.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)

	app, err = f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
	require.NoError(t, err)
	_, err = f.svc.ReviewApplication(f.ctx, app.ID, false, "")
	require.NoError(t, err)
	_, err = f.svc.CancelApplication(f.ctx, app.ID, alice.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyProcessed)
}

func TestBatchOperationsCountSuccesses(t *testing.T) {
	f := newFixture(t)
	leader := f.user("leader")
	alice := f.user("alice")
	bob := f.user("bob")
	carol := f.user("carol")
	team := f.team(leader, "Rockets", "")

	a, err := f.svc.ApplyToJoinTeam(f.ctx, alice.ID, team.ID)
	require.NoError(t, err)
	b, err := f.svc.ApplyToJoinTeam(f.ctx, bob.ID, team.ID)
	require.NoError(t, err)
	_, err = f.svc.ReviewApplication(f.ctx, b.ID, false, "")
	require.NoError(t, err)

	n := f.svc.BatchReviewApplications(f.ctx, []int64{a.ID, b.ID, 999}, true, "")
	assert.Equal(t, 1, n)
	assert.True(t, f.isMember(team, alice))

	other := f.team(bob, "Comets", "")
	i1, err := f.svc.InviteUserToTeam(f.ctx, team.ID, leader.ID, "carol", "")
	require.NoError(t, err)
	i2, err := f.svc.InviteUserToTeam(f.ctx, other.ID, bob.ID, "carol", "")
	require.NoError(t, err)
	i3, err := f.svc.InviteUserToTeam(f.ctx, other.ID, bob.ID, "alice", "")
	require.NoError(t, err)

	n = f.svc.BatchRespondToInvitations(f.ctx, []int64{i1.ID, i2.ID, i3.ID}, carol.ID, true)
	assert.Equal(t, 2, n)
	assert.True(t, f.isMember(team, carol))
	assert.True(t, f.isMember(other, carol))
	assert.False(t, f.isMember(other, alice))
}
