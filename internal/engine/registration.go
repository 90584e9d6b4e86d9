package engine

import (
	"context"
	"fmt"

	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/eligibility"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

// RegistrationRequest заявка на участие в соревновании
type RegistrationRequest struct {
	CompetitionID int64
	UserID        int64
	// TeamID обязателен для командного режима
	TeamID *int64
	Mode   string
	Rank   *string
}

// RegisterForCompetition регистрирует пользователя или его команду на соревнование.
// Проверки идут по порядку, возвращается первое нарушение. Командная
// регистрация атомарна: если хоть один участник не проходит проверку,
// записи не создаются
func (s *Service) RegisterForCompetition(ctx context.Context, req RegistrationRequest) ([]models.Participation, error) {
	if req.Mode != models.ModeIndividual && req.Mode != models.ModeTeam {
		return nil, apperrors.ErrInvalidParticipationMode
	}

	limits, err := s.participationLimits(ctx)
	if err != nil {
		return nil, err
	}

	var created []models.Participation
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := loadUser(ctx, tx, req.UserID); err != nil {
			return err
		}
		competition, err := loadCompetition(ctx, tx, req.CompetitionID)
		if err != nil {
			return err
		}

		records, err := tx.ListUserParticipations(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("failed to list user participations: %w", err)
		}
		if eligibility.HasCompetition(records, competition.ID) {
			return apperrors.AlreadyRegistered("")
		}
		joined, err := joinedCompetitions(ctx, tx, records)
		if err != nil {
			return err
		}
		if err := eligibility.CheckTimeConflict(*competition, joined); err != nil {
			return err
		}

		if req.Mode == models.ModeIndividual {
			if err := eligibility.CheckIndividualQuota(records, limits); err != nil {
				return err
			}
			record := models.Participation{
				CompetitionID: competition.ID,
				UserID:        req.UserID,
				Mode:          models.ModeIndividual,
				Role:          models.RoleIndividual,
				Rank:          req.Rank,
				CreatedAt:     s.now(),
			}
			if err := tx.CreateParticipation(ctx, &record); err != nil {
				return fmt.Errorf("failed to create participation: %w", err)
			}
			created = []models.Participation{record}
			return nil
		}

		created, err = s.registerTeam(ctx, tx, req, *competition, records, limits)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("RegisterForCompetition: регистрация выполнена",
		zap.Int64("competition_id", req.CompetitionID),
		zap.Int64("user_id", req.UserID),
		zap.String("mode", req.Mode),
		zap.Int("records", len(created)))
	return created, nil
}

func (s *Service) registerTeam(ctx context.Context, tx Tx, req RegistrationRequest, competition models.Competition, leaderRecords []models.Participation, limits models.ParticipationLimits) ([]models.Participation, error) {
	if req.TeamID == nil {
		return nil, apperrors.ErrTeamNotFound
	}
	team, err := loadTeam(ctx, tx, *req.TeamID)
	if err != nil {
		return nil, err
	}
	members, err := tx.ListMemberships(ctx, team.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list team members: %w", err)
	}

	callerIsMember := false
	for _, m := range members {
		if m.UserID == req.UserID {
			callerIsMember = true
			break
		}
	}
	if err := eligibility.CheckTeamInitiator(*team, req.UserID, callerIsMember); err != nil {
		return nil, err
	}
	if err := eligibility.CheckLeaderQuota(leaderRecords, limits); err != nil {
		return nil, err
	}

	for _, m := range members {
		if m.UserID == team.LeaderID {
			continue
		}
		if err := s.checkTeamMember(ctx, tx, m, competition, limits); err != nil {
			return nil, err
		}
	}

	created := make([]models.Participation, 0, len(members))
	for _, m := range members {
		teamID := team.ID
		record := models.Participation{
			CompetitionID: competition.ID,
			TeamID:        &teamID,
			UserID:        m.UserID,
			Mode:          models.ModeTeam,
			Role:          m.Role,
			Rank:          req.Rank,
			CreatedAt:     s.now(),
		}
		if err := tx.CreateParticipation(ctx, &record); err != nil {
			return nil, fmt.Errorf("failed to create participation: %w", err)
		}
		created = append(created, record)
	}
	return created, nil
}

// checkTeamMember проверяет рядового участника перед регистрацией всей команды
func (s *Service) checkTeamMember(ctx context.Context, tx Tx, m models.Membership, competition models.Competition, limits models.ParticipationLimits) error {
	user, err := loadUser(ctx, tx, m.UserID)
	if err != nil {
		return err
	}
	records, err := tx.ListUserParticipations(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("failed to list member participations: %w", err)
	}
	if eligibility.HasCompetition(records, competition.ID) {
		return apperrors.AlreadyRegistered(user.DisplayName())
	}

	joined, err := joinedCompetitions(ctx, tx, records)
	if err != nil {
		return err
	}
	for _, c := range joined {
		if eligibility.Overlaps(competition, c) {
			return apperrors.MemberTimeConflict(user.DisplayName(), c.Title)
		}
	}
	if eligibility.MemberQuotaReached(records, limits) {
		return apperrors.MemberQuotaExceeded(user.DisplayName(), limits.MemberMaxParticipants)
	}
	return nil
}

// CancelRegistration отменяет участие. Без команды удаляются записи самого
// пользователя, с командой - записи всех участников команды, и отменить
// такую регистрацию может только лидер
func (s *Service) CancelRegistration(ctx context.Context, competitionID, userID int64, teamID *int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if teamID == nil || *teamID == 0 {
			n, err := tx.DeleteUserParticipations(ctx, competitionID, userID)
			if err != nil {
				return fmt.Errorf("failed to delete participations: %w", err)
			}
			s.logger.Info("CancelRegistration: индивидуальное участие отменено",
				zap.Int64("competition_id", competitionID), zap.Int64("user_id", userID), zap.Int64("deleted", n))
			return nil
		}

		team, err := loadTeam(ctx, tx, *teamID)
		if err != nil {
			return err
		}
		if team.LeaderID != userID {
			return apperrors.ErrNotLeader
		}
		n, err := tx.DeleteTeamParticipations(ctx, competitionID, team.ID)
		if err != nil {
			return fmt.Errorf("failed to delete team participations: %w", err)
		}
		s.logger.Info("CancelRegistration: командное участие отменено",
			zap.Int64("competition_id", competitionID), zap.Int64("team_id", team.ID), zap.Int64("deleted", n))
		return nil
	})
}
