package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

// Причина отказа при отклонении приглашения самим пользователем
const declinedByUser = "declined by user"

// ApplyToJoinTeam создает заявку пользователя на вступление в команду.
// Если у пользователя уже есть ожидающее приглашение от этой команды,
// приглашение принимается и пользователь сразу становится участником
func (s *Service) ApplyToJoinTeam(ctx context.Context, userID, teamID int64) (*models.Application, error) {
	limits, err := s.participationLimits(ctx)
	if err != nil {
		return nil, err
	}

	var result *models.Application
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := loadUser(ctx, tx, userID); err != nil {
			return err
		}
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		member, err := isMember(ctx, tx, teamID, userID)
		if err != nil {
			return err
		}
		if member {
			return apperrors.ErrAlreadyMember
		}

		existing, err := findApplication(ctx, tx, userID, teamID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case models.StatusPending:
				if existing.Type != models.ApplicationInvite {
					return apperrors.ErrAlreadyApplied
				}
				result, err = s.mutualMatch(ctx, tx, team, existing, limits)
				return err
			case models.StatusApproved:
				return apperrors.ErrAlreadyApplied
			default:
				if _, err := tx.DeleteApplication(ctx, existing.ID); err != nil {
					return fmt.Errorf("failed to delete rejected application: %w", err)
				}
			}
		}

		app := s.newApplication(userID, team, models.ApplicationApply, "")
		if err := tx.CreateApplication(ctx, app); err != nil {
			if errors.Is(err, ErrDuplicatePending) {
				return apperrors.Wrap(apperrors.CodeAlreadyApplied, apperrors.ErrAlreadyApplied.Message, err)
			}
			return fmt.Errorf("failed to create application: %w", err)
		}
		result = app
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ApplyToJoinTeam: заявка обработана",
		zap.Int64("application_id", result.ID),
		zap.Int64("user_id", userID),
		zap.Int64("team_id", teamID),
		zap.String("status", result.Status))
	return result, nil
}

// InviteUserToTeam отправляет приглашение от лидера команды. Пользователь
// ищется по username, email или телефону. Ожидающая заявка этого
// пользователя в ту же команду сразу одобряется
func (s *Service) InviteUserToTeam(ctx context.Context, teamID, inviterID int64, identifier, message string) (*models.Application, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, apperrors.ErrAmbiguousOrMissingIdentifier
	}

	limits, err := s.participationLimits(ctx)
	if err != nil {
		return nil, err
	}

	var result *models.Application
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if team.LeaderID != inviterID {
			return apperrors.ErrNotLeader
		}

		target, err := resolveIdentifier(ctx, tx, identifier)
		if err != nil {
			return err
		}
		member, err := isMember(ctx, tx, teamID, target.ID)
		if err != nil {
			return err
		}
		if member {
			return apperrors.ErrAlreadyMember
		}

		existing, err := findApplication(ctx, tx, target.ID, teamID)
		if err != nil {
			return err
		}
		if existing != nil {
			switch existing.Status {
			case models.StatusPending:
				if existing.Type != models.ApplicationApply {
					return apperrors.ErrAlreadyInvited
				}
				result, err = s.mutualMatch(ctx, tx, team, existing, limits)
				return err
			case models.StatusApproved:
				return apperrors.ErrAlreadyProcessed
			default:
				if _, err := tx.DeleteApplication(ctx, existing.ID); err != nil {
					return fmt.Errorf("failed to delete rejected application: %w", err)
				}
			}
		}

		invite := s.newApplication(target.ID, team, models.ApplicationInvite, message)
		if err := tx.CreateApplication(ctx, invite); err != nil {
			if errors.Is(err, ErrDuplicatePending) {
				return apperrors.Wrap(apperrors.CodeAlreadyInvited, apperrors.ErrAlreadyInvited.Message, err)
			}
			return fmt.Errorf("failed to create invitation: %w", err)
		}
		result = invite
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("InviteUserToTeam: приглашение обработано",
		zap.Int64("application_id", result.ID),
		zap.Int64("user_id", result.UserID),
		zap.Int64("team_id", teamID),
		zap.String("status", result.Status))
	return result, nil
}

// ReviewApplication одобряет или отклоняет ожидающую заявку
func (s *Service) ReviewApplication(ctx context.Context, applicationID int64, approved bool, reason string) (*models.Application, error) {
	limits, err := s.participationLimits(ctx)
	if err != nil {
		return nil, err
	}

	var result *models.Application
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		app, err := loadApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		result, err = s.decide(ctx, tx, app, approved, reason, limits)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("ReviewApplication: заявка рассмотрена",
		zap.Int64("application_id", applicationID), zap.String("status", result.Status))
	return result, nil
}

// RespondToInvitation ответ приглашенного пользователя на приглашение
func (s *Service) RespondToInvitation(ctx context.Context, invitationID, userID int64, accepted bool) (*models.Application, error) {
	limits, err := s.participationLimits(ctx)
	if err != nil {
		return nil, err
	}

	var result *models.Application
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		app, err := loadApplication(ctx, tx, invitationID)
		if err != nil {
			return err
		}
		if app.Type != models.ApplicationInvite {
			return apperrors.ErrNotAnInvitation
		}
		if app.UserID != userID {
			return apperrors.ErrNotApplicant
		}
		result, err = s.decide(ctx, tx, app, accepted, declinedByUser, limits)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("RespondToInvitation: ответ на приглашение сохранен",
		zap.Int64("application_id", invitationID), zap.String("status", result.Status))
	return result, nil
}

// CancelApplication удаляет ожидающую заявку или приглашение. Отменить
// может только пользователь, указанный в записи
func (s *Service) CancelApplication(ctx context.Context, applicationID, userID int64) (bool, error) {
	deleted := false
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		app, err := loadApplication(ctx, tx, applicationID)
		if err != nil {
			return err
		}
		if app.UserID != userID {
			return apperrors.ErrNotApplicant
		}
		if !app.IsPending() {
			return apperrors.ErrAlreadyProcessed
		}
		deleted, err = tx.DeleteApplication(ctx, applicationID)
		if err != nil {
			return fmt.Errorf("failed to delete application: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// BatchReviewApplications рассматривает заявки по одной. Ошибка по одной
// заявке не прерывает обработку остальных, возвращается число успешных
func (s *Service) BatchReviewApplications(ctx context.Context, ids []int64, approved bool, reason string) int {
	success := 0
	for _, id := range ids {
		if _, err := s.ReviewApplication(ctx, id, approved, reason); err != nil {
			s.logger.Warn("BatchReviewApplications: заявка пропущена",
				zap.Int64("application_id", id), zap.Error(err))
			continue
		}
		success++
	}
	return success
}

// BatchRespondToInvitations отвечает на приглашения по одному, как BatchReviewApplications
func (s *Service) BatchRespondToInvitations(ctx context.Context, ids []int64, userID int64, accepted bool) int {
	success := 0
	for _, id := range ids {
		if _, err := s.RespondToInvitation(ctx, id, userID, accepted); err != nil {
			s.logger.Warn("BatchRespondToInvitations: приглашение пропущено",
				zap.Int64("application_id", id), zap.Int64("user_id", userID), zap.Error(err))
			continue
		}
		success++
	}
	return success
}

// decide переводит ожидающую заявку в конечное состояние
func (s *Service) decide(ctx context.Context, tx Tx, app *models.Application, approved bool, reason string, limits models.ParticipationLimits) (*models.Application, error) {
	if !app.IsPending() {
		return nil, apperrors.ErrAlreadyProcessed
	}

	if !approved {
		app.Status = models.StatusRejected
		if reason != "" {
			app.RejectionReason = &reason
		}
		app.UpdatedAt = s.now()
		if err := tx.UpdateApplication(ctx, app); err != nil {
			return nil, fmt.Errorf("failed to update application: %w", err)
		}
		return app, nil
	}

	team, err := loadTeam(ctx, tx, app.TeamID)
	if err != nil {
		return nil, err
	}
	return s.mutualMatch(ctx, tx, team, app, limits)
}

// mutualMatch одобряет заявку и добавляет пользователя в команду
func (s *Service) mutualMatch(ctx context.Context, tx Tx, team *models.Team, app *models.Application, limits models.ParticipationLimits) (*models.Application, error) {
	app.Status = models.StatusApproved
	app.RejectionReason = nil
	app.UpdatedAt = s.now()
	if err := tx.UpdateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to update application: %w", err)
	}
	if _, err := s.join(ctx, tx, team, app.UserID, models.RoleMember, limits); err != nil {
		return nil, err
	}
	return app, nil
}

func (s *Service) newApplication(userID int64, team *models.Team, kind, message string) *models.Application {
	now := s.now()
	return &models.Application{
		UserID:    userID,
		TeamID:    team.ID,
		LeaderID:  team.LeaderID,
		Type:      kind,
		Status:    models.StatusPending,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// resolveIdentifier требует ровно одного пользователя с таким username, email или телефоном
func resolveIdentifier(ctx context.Context, tx Tx, identifier string) (*models.User, error) {
	users, err := tx.FindUsersByIdentifier(ctx, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to find user by identifier: %w", err)
	}

	var found *models.User
	for i := range users {
		if found != nil && found.ID != users[i].ID {
			return nil, apperrors.ErrAmbiguousOrMissingIdentifier
		}
		found = &users[i]
	}
	if found == nil {
		return nil, apperrors.ErrAmbiguousOrMissingIdentifier
	}
	return found, nil
}
