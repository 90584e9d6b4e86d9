package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/models"
)

// pgxTx реализует engine.Tx поверх открытой транзакции
type pgxTx struct {
	tx pgx.Tx
}

const userColumns = `id, username, email, phone, real_name, major`

// GetUser получает пользователя вместе с навыками
func (t *pgxTx) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := t.tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id).Scan(
		&u.ID, &u.Username, &u.Email, &u.Phone, &u.RealName, &u.Major,
	)
	if err != nil {
		return nil, notFound(err)
	}

	u.Skills, err = t.userSkills(ctx, id)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (t *pgxTx) userSkills(ctx context.Context, userID int64) ([]string, error) {
	rows, err := t.tx.Query(ctx, `SELECT skill FROM user_skills WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user skills: %w", err)
	}
	skills, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan user skills: %w", err)
	}
	return skills, nil
}

// FindUsersByIdentifier ищет точное совпадение по username, email или телефону
func (t *pgxTx) FindUsersByIdentifier(ctx context.Context, identifier string) ([]models.User, error) {
	query := `
		SELECT ` + userColumns + `
		FROM users
		WHERE username = $1 OR email = $1 OR phone = $1
		ORDER BY id
	`
	rows, err := t.tx.Query(ctx, query, identifier)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}

	var users []models.User
	for rows.Next() {
		var u models.User
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Phone, &u.RealName, &u.Major); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	// Навыки догружаются после закрытия курсора: в одном соединении нельзя
	// держать два открытых запроса
	for i := range users {
		users[i].Skills, err = t.userSkills(ctx, users[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return users, nil
}

func (t *pgxTx) GetCompetition(ctx context.Context, id int64) (*models.Competition, error) {
	var c models.Competition
	query := `SELECT id, title, start_time, end_time FROM competitions WHERE id = $1`
	err := t.tx.QueryRow(ctx, query, id).Scan(&c.ID, &c.Title, &c.StartTime, &c.EndTime)
	if err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}

func (t *pgxTx) CreateTeam(ctx context.Context, team *models.Team) error {
	query := `
		INSERT INTO teams (name, description, leader_id, competition_id, need_skills, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		team.Name, team.Description, team.LeaderID, team.CompetitionID, team.NeedSkills, team.CreatedAt,
	).Scan(&team.ID)
	if err != nil {
		return fmt.Errorf("failed to insert team: %w", err)
	}
	return nil
}

func (t *pgxTx) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	var team models.Team
	query := `
		SELECT id, name, description, leader_id, competition_id, need_skills, created_at
		FROM teams WHERE id = $1
	`
	err := t.tx.QueryRow(ctx, query, id).Scan(
		&team.ID, &team.Name, &team.Description, &team.LeaderID, &team.CompetitionID, &team.NeedSkills, &team.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &team, nil
}

func (t *pgxTx) DeleteTeam(ctx context.Context, id int64) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (t *pgxTx) AddMembership(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO team_members (team_id, user_id, role, status, joined_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := t.tx.Exec(ctx, query, m.TeamID, m.UserID, m.Role, m.Status, m.JoinedAt)
	if name, ok := uniqueViolation(err); ok && name == membershipConstraint {
		return engine.ErrDuplicateMember
	}
	if err != nil {
		return fmt.Errorf("failed to insert membership: %w", err)
	}
	return nil
}

func (t *pgxTx) GetMembership(ctx context.Context, teamID, userID int64) (*models.Membership, error) {
	var m models.Membership
	query := `
		SELECT team_id, user_id, role, status, joined_at
		FROM team_members WHERE team_id = $1 AND user_id = $2
	`
	err := t.tx.QueryRow(ctx, query, teamID, userID).Scan(&m.TeamID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &m, nil
}

func (t *pgxTx) ListMemberships(ctx context.Context, teamID int64) ([]models.Membership, error) {
	query := `
		SELECT team_id, user_id, role, status, joined_at
		FROM team_members
		WHERE team_id = $1
		ORDER BY joined_at, user_id
	`
	rows, err := t.tx.Query(ctx, query, teamID)
	if err != nil {
		return nil, fmt.Errorf("failed to get team members: %w", err)
	}
	defer rows.Close()

	var members []models.Membership
	for rows.Next() {
		var m models.Membership
		if err := rows.Scan(&m.TeamID, &m.UserID, &m.Role, &m.Status, &m.JoinedAt); err != nil {
			return nil, fmt.Errorf("failed to scan team member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (t *pgxTx) DeleteMembership(ctx context.Context, teamID, userID int64) (bool, error) {
	tag, err := t.tx.Exec(ctx, `DELETE FROM team_members WHERE team_id = $1 AND user_id = $2`, teamID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete membership: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (t *pgxTx) DeleteTeamMemberships(ctx context.Context, teamID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM team_members WHERE team_id = $1`, teamID)
}

const applicationColumns = `id, user_id, team_id, leader_id, type, status, rejection_reason, message, created_at, updated_at`

func scanApplication(row pgx.Row) (*models.Application, error) {
	var a models.Application
	err := row.Scan(
		&a.ID, &a.UserID, &a.TeamID, &a.LeaderID, &a.Type, &a.Status,
		&a.RejectionReason, &a.Message, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (t *pgxTx) CreateApplication(ctx context.Context, a *models.Application) error {
	query := `
		INSERT INTO team_applications (user_id, team_id, leader_id, type, status, rejection_reason, message, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		a.UserID, a.TeamID, a.LeaderID, a.Type, a.Status, a.RejectionReason, a.Message, a.CreatedAt, a.UpdatedAt,
	).Scan(&a.ID)
	if name, ok := uniqueViolation(err); ok && name == pendingConstraint {
		return engine.ErrDuplicatePending
	}
	if err != nil {
		return fmt.Errorf("failed to insert application: %w", err)
	}
	return nil
}

func (t *pgxTx) GetApplication(ctx context.Context, id int64) (*models.Application, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+applicationColumns+` FROM team_applications WHERE id = $1`, id)
	a, err := scanApplication(row)
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

// FindApplication возвращает самую свежую запись по паре
func (t *pgxTx) FindApplication(ctx context.Context, userID, teamID int64) (*models.Application, error) {
	query := `
		SELECT ` + applicationColumns + `
		FROM team_applications
		WHERE user_id = $1 AND team_id = $2
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	a, err := scanApplication(t.tx.QueryRow(ctx, query, userID, teamID))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (t *pgxTx) UpdateApplication(ctx context.Context, a *models.Application) error {
	query := `
		UPDATE team_applications
		SET status = $1, rejection_reason = $2, message = $3, updated_at = $4
		WHERE id = $5
	`
	tag, err := t.tx.Exec(ctx, query, a.Status, a.RejectionReason, a.Message, a.UpdatedAt, a.ID)
	if name, ok := uniqueViolation(err); ok && name == pendingConstraint {
		return engine.ErrDuplicatePending
	}
	if err != nil {
		return fmt.Errorf("failed to update application: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return engine.ErrNotFound
	}
	return nil
}

func (t *pgxTx) DeleteApplication(ctx context.Context, id int64) (bool, error) {
	n, err := t.exec(ctx, `DELETE FROM team_applications WHERE id = $1`, id)
	return n > 0, err
}

func (t *pgxTx) DeleteApplicationsForPair(ctx context.Context, userID, teamID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM team_applications WHERE user_id = $1 AND team_id = $2`, userID, teamID)
}

func (t *pgxTx) DeleteTeamApplications(ctx context.Context, teamID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM team_applications WHERE team_id = $1`, teamID)
}

// ListApplications собирает WHERE только из заданных полей фильтра
func (t *pgxTx) ListApplications(ctx context.Context, filter engine.ApplicationFilter) ([]models.Application, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		conds = append(conds, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if filter.UserID != 0 {
		add("user_id", filter.UserID)
	}
	if filter.TeamID != 0 {
		add("team_id", filter.TeamID)
	}
	if filter.LeaderID != 0 {
		add("leader_id", filter.LeaderID)
	}
	if filter.Type != "" {
		add("type", filter.Type)
	}
	if filter.Status != "" {
		add("status", filter.Status)
	}

	query := `SELECT ` + applicationColumns + ` FROM team_applications`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan application: %w", err)
		}
		apps = append(apps, *a)
	}
	return apps, rows.Err()
}

func (t *pgxTx) CreateParticipation(ctx context.Context, p *models.Participation) error {
	query := `
		INSERT INTO participations (competition_id, team_id, user_id, participation_mode, role, rank, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := t.tx.QueryRow(ctx, query,
		p.CompetitionID, p.TeamID, p.UserID, p.Mode, p.Role, p.Rank, p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return fmt.Errorf("failed to insert participation: %w", err)
	}
	return nil
}

func (t *pgxTx) listParticipations(ctx context.Context, where string, args ...any) ([]models.Participation, error) {
	query := `
		SELECT id, competition_id, team_id, user_id, participation_mode, role, rank, created_at
		FROM participations
		WHERE ` + where + `
		ORDER BY id
	`
	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get participations: %w", err)
	}
	defer rows.Close()

	var records []models.Participation
	for rows.Next() {
		var p models.Participation
		if err := rows.Scan(&p.ID, &p.CompetitionID, &p.TeamID, &p.UserID, &p.Mode, &p.Role, &p.Rank, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		records = append(records, p)
	}
	return records, rows.Err()
}

func (t *pgxTx) ListUserParticipations(ctx context.Context, userID int64) ([]models.Participation, error) {
	return t.listParticipations(ctx, `user_id = $1`, userID)
}

func (t *pgxTx) ListTeamParticipations(ctx context.Context, teamID int64) ([]models.Participation, error) {
	return t.listParticipations(ctx, `team_id = $1`, teamID)
}

func (t *pgxTx) DeleteUserParticipations(ctx context.Context, competitionID, userID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM participations WHERE competition_id = $1 AND user_id = $2`, competitionID, userID)
}

func (t *pgxTx) DeleteTeamParticipations(ctx context.Context, competitionID, teamID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM participations WHERE competition_id = $1 AND team_id = $2`, competitionID, teamID)
}

func (t *pgxTx) DeleteMemberParticipations(ctx context.Context, teamID, userID int64) (int64, error) {
	return t.exec(ctx, `DELETE FROM participations WHERE team_id = $1 AND user_id = $2`, teamID, userID)
}

func (t *pgxTx) exec(ctx context.Context, query string, args ...any) (int64, error) {
	tag, err := t.tx.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete rows: %w", err)
	}
	return tag.RowsAffected(), nil
}
