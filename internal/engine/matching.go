package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/untibullet/teamform/internal/apperrors"
	"github.com/untibullet/teamform/internal/matchscore"
	"github.com/untibullet/teamform/internal/models"
	"go.uber.org/zap"
)

// CalculateMatchScore оценивает совместимость пользователя с командой
func (s *Service) CalculateMatchScore(ctx context.Context, teamID, userID int64) (int, error) {
	var score int
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		user, err := loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		team, err := loadTeam(ctx, tx, teamID)
		if err != nil {
			return err
		}
		in, err := scoreInput(ctx, tx, team, user)
		if err != nil {
			return err
		}
		score = matchscore.Score(in)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return score, nil
}

// CalculateBatchMatchScores считает оценки для нескольких команд. Несуществующие
// команды пропускаются
func (s *Service) CalculateBatchMatchScores(ctx context.Context, teamIDs []int64, userID int64) (map[int64]int, error) {
	inputs := make(map[int64]matchscore.Input, len(teamIDs))
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		user, err := loadUser(ctx, tx, userID)
		if err != nil {
			return err
		}
		for _, teamID := range teamIDs {
			team, err := loadTeam(ctx, tx, teamID)
			if errors.Is(err, apperrors.ErrTeamNotFound) {
				s.logger.Warn("CalculateBatchMatchScores: команда не найдена", zap.Int64("team_id", teamID))
				continue
			}
			if err != nil {
				return err
			}
			in, err := scoreInput(ctx, tx, team, user)
			if err != nil {
				return err
			}
			inputs[teamID] = in
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matchscore.BatchScore(inputs), nil
}

// scoreInput собирает данные для оценки: навыки пользователя, потребности
// команды и объединенные навыки текущих участников
func scoreInput(ctx context.Context, tx Tx, team *models.Team, user *models.User) (matchscore.Input, error) {
	members, err := tx.ListMemberships(ctx, team.ID)
	if err != nil {
		return matchscore.Input{}, fmt.Errorf("failed to list team members: %w", err)
	}

	in := matchscore.Input{
		UserSkills: user.Skills,
		NeedSkills: team.NeedSkills,
	}

	var teamSkills []string
	for _, m := range members {
		if m.UserID == user.ID {
			in.IsMember = true
			return in, nil
		}
		memberUser, err := tx.GetUser(ctx, m.UserID)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return matchscore.Input{}, fmt.Errorf("failed to get member %d: %w", m.UserID, err)
		}
		teamSkills = append(teamSkills, memberUser.Skills...)
	}
	in.TeamSkills = strings.Join(matchscore.Normalize(teamSkills), ",")
	return in, nil
}
