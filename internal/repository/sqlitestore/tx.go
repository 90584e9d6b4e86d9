package sqlitestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/models"
	"gorm.io/gorm"
)

type gormTx struct {
	db *gorm.DB
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return engine.ErrNotFound
	}
	return err
}

func (t *gormTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var rec userRecord
	if err := t.db.WithContext(ctx).Take(&rec, id).Error; err != nil {
		return nil, notFound(err)
	}
	skills, err := t.userSkills(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.toModel(skills), nil
}

func (t *gormTx) userSkills(ctx context.Context, userID int64) ([]string, error) {
	var skills []string
	err := t.db.WithContext(ctx).
		Model(&userSkillRecord{}).
		Where("user_id = ?", userID).
		Order("id").
		Pluck("skill", &skills).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user skills: %w", err)
	}
	return skills, nil
}

func (t *gormTx) FindUsersByIdentifier(ctx context.Context, identifier string) ([]models.User, error) {
	var recs []userRecord
	err := t.db.WithContext(ctx).
		Where("username = ? OR email = ? OR phone = ?", identifier, identifier, identifier).
		Order("id").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, len(recs))
	for _, rec := range recs {
		skills, err := t.userSkills(ctx, rec.ID)
		if err != nil {
			return nil, err
		}
		users = append(users, *rec.toModel(skills))
	}
	return users, nil
}

func (t *gormTx) GetCompetition(ctx context.Context, id int64) (*models.Competition, error) {
	var rec competitionRecord
	if err := t.db.WithContext(ctx).Take(&rec, id).Error; err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

func (t *gormTx) CreateTeam(ctx context.Context, team *models.Team) error {
	rec := teamRecord{
		Name:          team.Name,
		Description:   team.Description,
		LeaderID:      team.LeaderID,
		CompetitionID: team.CompetitionID,
		NeedSkills:    team.NeedSkills,
		CreatedAt:     team.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	team.ID = rec.ID
	return nil
}

func (t *gormTx) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var rec teamRecord
	if err := t.db.WithContext(ctx).Take(&rec, id).Error; err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

func (t *gormTx) DeleteTeam(ctx context.Context, id int64) error {
	res := t.db.WithContext(ctx).Delete(&teamRecord{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (t *gormTx) AddMembership(ctx context.Context, m *models.Membership) error {
	rec := memberRecord{
		TeamID:   m.TeamID,
		UserID:   m.UserID,
		Role:     m.Role,
		Status:   m.Status,
		JoinedAt: m.JoinedAt,
	}
	err := t.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return engine.ErrDuplicateMember
	}
	return err
}

func (t *gormTx) GetMembership(ctx context.Context, teamID, userID int64) (*models.Membership, error) {
	var rec memberRecord
	err := t.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Take(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	m := rec.toModel()
	return &m, nil
}

func (t *gormTx) ListMemberships(ctx context.Context, teamID int64) ([]models.Membership, error) {
	var recs []memberRecord
	err := t.db.WithContext(ctx).
		Where("team_id = ?", teamID).
		Order("joined_at, user_id").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]models.Membership, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (t *gormTx) DeleteMembership(ctx context.Context, teamID, userID int64) (bool, error) {
	res := t.db.WithContext(ctx).
		Where("team_id = ? AND user_id = ?", teamID, userID).
		Delete(&memberRecord{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (t *gormTx) DeleteTeamMemberships(ctx context.Context, teamID int64) (int64, error) {
	res := t.db.WithContext(ctx).Where("team_id = ?", teamID).Delete(&memberRecord{})
	return res.RowsAffected, res.Error
}

func (t *gormTx) CreateApplication(ctx context.Context, a *models.Application) error {
	rec := newApplicationRecord(a)
	rec.ID = 0
	err := t.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return engine.ErrDuplicatePending
	}
	if err != nil {
		return err
	}
	a.ID = rec.ID
	return nil
}

func (t *gormTx) GetApplication(ctx context.Context, id int64) (*models.Application, error) {
	var rec applicationRecord
	if err := t.db.WithContext(ctx).Take(&rec, id).Error; err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

func (t *gormTx) FindApplication(ctx context.Context, userID, teamID int64) (*models.Application, error) {
	var rec applicationRecord
	err := t.db.WithContext(ctx).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Order("created_at DESC, id DESC").
		Take(&rec).Error
	if err != nil {
		return nil, notFound(err)
	}
	return rec.toModel(), nil
}

func (t *gormTx) UpdateApplication(ctx context.Context, a *models.Application) error {
	res := t.db.WithContext(ctx).
		Model(&applicationRecord{}).
		Where("id = ?", a.ID).
		Updates(map[string]any{
			"status":           a.Status,
			"rejection_reason": a.RejectionReason,
			"message":          a.Message,
			"updated_at":       a.UpdatedAt,
		})
	if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
		return engine.ErrDuplicatePending
	}
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (t *gormTx) DeleteApplication(ctx context.Context, id int64) (bool, error) {
	res := t.db.WithContext(ctx).Delete(&applicationRecord{}, id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (t *gormTx) DeleteApplicationsForPair(ctx context.Context, userID, teamID int64) (int64, error) {
	res := t.db.WithContext(ctx).
		Where("user_id = ? AND team_id = ?", userID, teamID).
		Delete(&applicationRecord{})
	return res.RowsAffected, res.Error
}

func (t *gormTx) DeleteTeamApplications(ctx context.Context, teamID int64) (int64, error) {
	res := t.db.WithContext(ctx).Where("team_id = ?", teamID).Delete(&applicationRecord{})
	return res.RowsAffected, res.Error
}

func (t *gormTx) ListApplications(ctx context.Context, filter engine.ApplicationFilter) ([]models.Application, error) {
	q := t.db.WithContext(ctx).Model(&applicationRecord{})
	if filter.UserID != 0 {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.TeamID != 0 {
		q = q.Where("team_id = ?", filter.TeamID)
	}
	if filter.LeaderID != 0 {
		q = q.Where("leader_id = ?", filter.LeaderID)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}

	var recs []applicationRecord
	if err := q.Order("created_at DESC, id DESC").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]models.Application, 0, len(recs))
	for _, rec := range recs {
		out = append(out, *rec.toModel())
	}
	return out, nil
}

func (t *gormTx) CreateParticipation(ctx context.Context, p *models.Participation) error {
	rec := participationRecord{
		CompetitionID: p.CompetitionID,
		TeamID:        p.TeamID,
		UserID:        p.UserID,
		Mode:          p.Mode,
		Role:          p.Role,
		Rank:          p.Rank,
		CreatedAt:     p.CreatedAt,
	}
	if err := t.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return err
	}
	p.ID = rec.ID
	return nil
}

func (t *gormTx) listParticipations(ctx context.Context, query string, args ...any) ([]models.Participation, error) {
	var recs []participationRecord
	if err := t.db.WithContext(ctx).Where(query, args...).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]models.Participation, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out, nil
}

func (t *gormTx) ListUserParticipations(ctx context.Context, userID int64) ([]models.Participation, error) {
	return t.listParticipations(ctx, "user_id = ?", userID)
}

func (t *gormTx) ListTeamParticipations(ctx context.Context, teamID int64) ([]models.Participation, error) {
	return t.listParticipations(ctx, "team_id = ?", teamID)
}

func (t *gormTx) deleteParticipations(ctx context.Context, query string, args ...any) (int64, error) {
	res := t.db.WithContext(ctx).Where(query, args...).Delete(&participationRecord{})
	return res.RowsAffected, res.Error
}

func (t *gormTx) DeleteUserParticipations(ctx context.Context, competitionID, userID int64) (int64, error) {
	return t.deleteParticipations(ctx, "competition_id = ? AND user_id = ?", competitionID, userID)
}

func (t *gormTx) DeleteTeamParticipations(ctx context.Context, competitionID, teamID int64) (int64, error) {
	return t.deleteParticipations(ctx, "competition_id = ? AND team_id = ?", competitionID, teamID)
}

func (t *gormTx) DeleteMemberParticipations(ctx context.Context, teamID, userID int64) (int64, error) {
	return t.deleteParticipations(ctx, "team_id = ? AND user_id = ?", teamID, userID)
}
