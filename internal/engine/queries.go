package engine

import (
	"context"
	"fmt"

	"github.com/untibullet/teamform/internal/models"
)

// ListTeamMembers возвращает активных участников команды
func (s *Service) ListTeamMembers(ctx context.Context, teamID int64) ([]models.Membership, error) {
	var members []models.Membership
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := loadTeam(ctx, tx, teamID); err != nil {
			return err
		}
		var err error
		members, err = tx.ListMemberships(ctx, teamID)
		if err != nil {
			return fmt.Errorf("failed to list team members: %w", err)
		}
		return nil
	})
	return members, err
}

// ListTeamApplications все заявки и приглашения команды
func (s *Service) ListTeamApplications(ctx context.Context, teamID int64) ([]models.Application, error) {
	return s.listApplications(ctx, ApplicationFilter{TeamID: teamID})
}

// ListUserApplications все записи, где пользователь указан как кандидат
func (s *Service) ListUserApplications(ctx context.Context, userID int64) ([]models.Application, error) {
	return s.listApplications(ctx, ApplicationFilter{UserID: userID})
}

// ListUserInvitations ожидающие приглашения пользователя
func (s *Service) ListUserInvitations(ctx context.Context, userID int64) ([]models.Application, error) {
	return s.listApplications(ctx, ApplicationFilter{
		UserID: userID,
		Type:   models.ApplicationInvite,
		Status: models.StatusPending,
	})
}

// ListPendingForLeader ожидающие заявки во все команды лидера
func (s *Service) ListPendingForLeader(ctx context.Context, leaderID int64) ([]models.Application, error) {
	return s.listApplications(ctx, ApplicationFilter{
		LeaderID: leaderID,
		Type:     models.ApplicationApply,
		Status:   models.StatusPending,
	})
}

// ListUserParticipations записи об участии пользователя
func (s *Service) ListUserParticipations(ctx context.Context, userID int64) ([]models.Participation, error) {
	var records []models.Participation
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		records, err = tx.ListUserParticipations(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list participations: %w", err)
		}
		return nil
	})
	return records, err
}

func (s *Service) listApplications(ctx context.Context, filter ApplicationFilter) ([]models.Application, error) {
	var apps []models.Application
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		apps, err = tx.ListApplications(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list applications: %w", err)
		}
		return nil
	})
	return apps, err
}

// GetTeam возвращает команду по ID
func (s *Service) GetTeam(ctx context.Context, teamID int64) (*models.Team, error) {
	var team *models.Team
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		team, err = loadTeam(ctx, tx, teamID)
		return err
	})
	return team, err
}

// GetApplication возвращает заявку или приглашение по ID
func (s *Service) GetApplication(ctx context.Context, applicationID int64) (*models.Application, error) {
	var app *models.Application
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		app, err = loadApplication(ctx, tx, applicationID)
		return err
	})
	return app, err
}
