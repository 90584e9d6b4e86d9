package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/eligibility"
	"github.com/untibullet/teamform/internal/matchscore"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

// CreateTeam создает команду и сразу добавляет лидера активным участником
func (s *Service) CreateTeam(ctx context.Context, team models.Team) (*models.Team, error) {
	team.Name = strings.TrimSpace(team.Name)
	if team.Name == "" {
		return nil, apperrors.Wrap(apperrors.CodeInvalidInput, "team name is required", nil)
	}
	team.NeedSkills = strings.Join(matchscore.ParseSkills(team.NeedSkills), ",")
	team.CreatedAt = s.now()

	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		if _, err := loadUser(ctx, tx, team.LeaderID); err != nil {
			return err
		}
		if err := tx.CreateTeam(ctx, &team); err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}
		leader := models.Membership{
			TeamID:   team.ID,
			UserID:   team.LeaderID,
			Role:     models.RoleLeader,
			Status:   models.MembershipActive,
			JoinedAt: team.CreatedAt,
		}
		if err := tx.AddMembership(ctx, &leader); err != nil {
			return fmt.Errorf("failed to add team leader: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("CreateTeam: команда создана",
		zap.Int64("team_id", team.ID), zap.Int64("leader_id", team.LeaderID))
	return &team, nil
}

// DeleteTeam удаляет команду. Сначала удаляются участники и заявки, затем сама команда
func (s *Service) DeleteTeam(ctx context.Context, teamID, callerID int64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if team.LeaderID != callerID {
			return apperrors.ErrNotLeader
		}
		if _, err := tx.DeleteTeamMemberships(ctx, teamID); err != nil {
			return fmt.Errorf("failed to delete team members: %w", err)
		}
		if _, err := tx.DeleteTeamApplications(ctx, teamID); err != nil {
			return fmt.Errorf("failed to delete team applications: %w", err)
		}
		if err := tx.DeleteTeam(ctx, teamID); err != nil {
			return fmt.Errorf("failed to delete team: %w", err)
		}
		s.logger.Info("DeleteTeam: команда удалена", zap.Int64("team_id", teamID))
		return nil
	})
}

// AddTeamMember напрямую добавляет пользователя в команду и распространяет
// на него регистрации команды
func (s *Service) AddTeamMember(ctx context.Context, teamID, userID int64, role string) (*models.Membership, error) {
	if role == "" {
		role = models.RoleMember
	}
	if role != models.RoleMember && role != models.RoleLeader {
		return nil, apperrors.ErrInvalidRole
	}

	limits, err := s.participationLimits(ctx)
	if err != nil {
		return nil, err
	}

	var membership *models.Membership
	err = s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if role == models.RoleLeader && team.LeaderID != userID {
			return apperrors.ErrInvalidRole
		}
		if _, err := loadUser(ctx, tx, userID); err != nil {
			return err
		}
		membership, err = s.join(ctx, tx, team, userID, role, limits)
		return err
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// RemoveTeamMember исключает участника: удаляет членство, все заявки по паре
// и записи об участии, сделанные от имени команды. Лидера исключить нельзя.
// Возвращает false, если пользователь не состоял в команде
func (s *Service) RemoveTeamMember(ctx context.Context, teamID, userID int64) (bool, error) {
	removed := false
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		if team.LeaderID == userID {
			return apperrors.ErrCannotRemoveLeader
		}

		removed, err = tx.DeleteMembership(ctx, teamID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete membership: %w", err)
		}
		if !removed {
			return nil
		}

		apps, err := tx.DeleteApplicationsForPair(ctx, userID, teamID)
		if err != nil {
			return fmt.Errorf("failed to delete applications: %w", err)
		}
		records, err := tx.DeleteMemberParticipations(ctx, teamID, userID)
		if err != nil {
			return fmt.Errorf("failed to delete participations: %w", err)
		}

		s.logger.Info("RemoveTeamMember: участник исключен",
			zap.Int64("team_id", teamID),
			zap.Int64("user_id", userID),
			zap.Int64("applications_deleted", apps),
			zap.Int64("participations_deleted", records))
		return nil
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// join добавляет членство и выполняет каскад регистраций. Вызывается внутри транзакции
func (s *Service) join(ctx context.Context, tx Tx, team *models.Team, userID int64, role string, limits models.ParticipationLimits) (*models.Membership, error) {
	m := &models.Membership{
		TeamID:   team.ID,
		UserID:   userID,
		Role:     role,
		Status:   models.MembershipActive,
		JoinedAt: s.now(),
	}

	member, err := isMember(ctx, tx, team.ID, userID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, apperrors.ErrAlreadyMember
	}

	if err := tx.AddMembership(ctx, m); err != nil {
		if errors.Is(err, ErrDuplicateMember) {
			return nil, apperrors.Wrap(apperrors.CodeAlreadyMember, apperrors.ErrAlreadyMember.Message, err)
		}
		return nil, fmt.Errorf("failed to add membership: %w", err)
	}

	if err := s.cascadeJoin(ctx, tx, team, m, limits); err != nil {
		return nil, err
	}
	return m, nil
}

// cascadeJoin регистрирует нового участника на все соревнования, куда уже
// заявлена команда. Проверка не прошла для одного соревнования - оно
// пропускается, остальные обрабатываются
func (s *Service) cascadeJoin(ctx context.Context, tx Tx, team *models.Team, m *models.Membership, limits models.ParticipationLimits) error {
	teamRecords, err := tx.ListTeamParticipations(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("failed to list team participations: %w", err)
	}
	competitionIDs := distinctCompetitions(teamRecords)
	if len(competitionIDs) == 0 {
		return nil
	}

	userRecords, err := tx.ListUserParticipations(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("failed to list user participations: %w", err)
	}
	joined, err := joinedCompetitions(ctx, tx, userRecords)
	if err != nil {
		return err
	}

	for _, competitionID := range competitionIDs {
		if eligibility.HasCompetition(userRecords, competitionID) {
			continue
		}

		competition, err := loadCompetition(ctx, tx, competitionID)
		if errors.Is(err, apperrors.ErrCompetitionNotFound) {
			s.logger.Warn("cascadeJoin: соревнование не найдено, пропускаем",
				zap.Int64("competition_id", competitionID), zap.Int64("team_id", team.ID))
			continue
		}
		if err != nil {
			return err
		}

		if err := s.checkCascade(*competition, joined, userRecords, m.Role, limits); err != nil {
			s.logger.Warn("cascadeJoin: участник не прошел проверку, соревнование пропущено",
				zap.Int64("team_id", team.ID),
				zap.Int64("user_id", m.UserID),
				zap.Int64("competition_id", competitionID),
				zap.Error(err))
			continue
		}

		teamID := team.ID
		record := models.Participation{
			CompetitionID: competitionID,
			TeamID:        &teamID,
			UserID:        m.UserID,
			Mode:          models.ModeTeam,
			Role:          m.Role,
			CreatedAt:     s.now(),
		}
		if err := tx.CreateParticipation(ctx, &record); err != nil {
			return fmt.Errorf("failed to create participation: %w", err)
		}
		userRecords = append(userRecords, record)
		joined = append(joined, *competition)

		s.logger.Info("cascadeJoin: участник зарегистрирован вместе с командой",
			zap.Int64("team_id", team.ID),
			zap.Int64("user_id", m.UserID),
			zap.Int64("competition_id", competitionID),
			zap.String("role", m.Role))
	}
	return nil
}

func (s *Service) checkCascade(competition models.Competition, joined []models.Competition, records []models.Participation, role string, limits models.ParticipationLimits) error {
	if err := eligibility.CheckTimeConflict(competition, joined); err != nil {
		return err
	}
	if role == models.RoleLeader {
		return eligibility.CheckLeaderQuota(records, limits)
	}
	return eligibility.CheckMemberQuota(records, limits)
}
