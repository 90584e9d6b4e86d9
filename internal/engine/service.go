// Package engine реализует движок формирования команд: заявки и приглашения,
// состав команд, регистрацию на соревнования и каскадные изменения участия.
//
// Каждая операция выполняется в одной транзакции хранилища. Собственных
// блокировок и изменяемого состояния у сервиса нет, поэтому несколько
// экземпляров могут работать с одним хранилищем одновременно.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

type Service struct {
	store  Store
	limits LimitsProvider
	logger *zap.Logger
	now    func() time.Time
}

// New создает сервис движка
func New(store Store, limits LimitsProvider, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		limits: limits,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) participationLimits(ctx context.Context) (models.ParticipationLimits, error) {
	limits, err := s.limits.ParticipationLimits(ctx)
	if err != nil {
		return models.ParticipationLimits{}, fmt.Errorf("failed to load participation limits: %w", err)
	}
	return limits, nil
}

func loadUser(ctx context.Context, tx Tx, id int64) (*models.User, error) {
	user, err := tx.GetUser(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

func loadTeam(ctx context.Context, tx Tx, id int64) (*models.Team, error) {
	team, err := tx.GetTeam(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.ErrTeamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	return team, nil
}

func loadApplication(ctx context.Context, tx Tx, id int64) (*models.Application, error) {
	app, err := tx.GetApplication(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get application %d: %w", id, err)
	}
	return app, nil
}

func loadCompetition(ctx context.Context, tx Tx, id int64) (*models.Competition, error) {
	c, err := tx.GetCompetition(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.ErrCompetitionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get competition %d: %w", id, err)
	}
	return c, nil
}

// findApplication возвращает nil, если заявок по паре нет
func findApplication(ctx context.Context, tx Tx, userID, teamID int64) (*models.Application, error) {
	app, err := tx.FindApplication(ctx, userID, teamID)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find application: %w", err)
	}
	return app, nil
}

func isMember(ctx context.Context, tx Tx, teamID, userID int64) (bool, error) {
	_, err := tx.GetMembership(ctx, teamID, userID)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return true, nil
}

// joinedCompetitions загружает соревнования, на которые у пользователя уже есть записи.
// Удаленные соревнования пропускаются: их окно проверить нельзя
func joinedCompetitions(ctx context.Context, tx Tx, records []models.Participation) ([]models.Competition, error) {
	seen := make(map[int64]struct{}, len(records))
	out := make([]models.Competition, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.CompetitionID]; ok {
			continue
		}
		seen[r.CompetitionID] = struct{}{}

		c, err := tx.GetCompetition(ctx, r.CompetitionID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get competition %d: %w", r.CompetitionID, err)
		}
		out = append(out, *c)
	}
	return out, nil
}

// distinctCompetitions возвращает уникальные ID соревнований в порядке появления
func distinctCompetitions(records []models.Participation) []int64 {
	seen := make(map[int64]struct{}, len(records))
	ids := make([]int64, 0, len(records))
	for _, r := range records {
		if _, ok := seen[r.CompetitionID]; ok {
			continue
		}
		seen[r.CompetitionID] = struct{}{}
		ids = append(ids, r.CompetitionID)
	}
	return ids
}
