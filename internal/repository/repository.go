// repository/repository.go
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/models"
)

// Имена ограничений из миграций, по ним различаются нарушения уникальности
const (
	pendingConstraint    = "uq_team_applications_pending"
	membershipConstraint = "team_members_pkey"
)

// Repository хранилище движка в PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

var (
	_ engine.Store          = (*Repository)(nil)
	_ engine.LimitsProvider = (*ConfigLimits)(nil)
	_ engine.Tx             = (*pgxTx)(nil)
)

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InTx выполняет fn в одной транзакции. Ошибка fn откатывает транзакцию
// и возвращается как есть
func (r *Repository) InTx(ctx context.Context, fn func(ctx context.Context, tx engine.Tx) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(ctx, &pgxTx{tx: tx}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ConfigLimits читает лимиты участия из таблицы configs при каждом вызове
type ConfigLimits struct {
	pool *pgxpool.Pool
}

func NewConfigLimits(pool *pgxpool.Pool) *ConfigLimits {
	return &ConfigLimits{pool: pool}
}

func (c *ConfigLimits) ParticipationLimits(ctx context.Context) (models.ParticipationLimits, error) {
	var value string
	query := `SELECT config_value FROM configs WHERE config_key = $1`
	err := c.pool.QueryRow(ctx, query, models.ParticipateConfigKey).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ParticipationLimits{}, fmt.Errorf("config %s not found", models.ParticipateConfigKey)
	}
	if err != nil {
		return models.ParticipationLimits{}, fmt.Errorf("failed to get config: %w", err)
	}

	var limits models.ParticipationLimits
	if err := json.Unmarshal([]byte(value), &limits); err != nil {
		return models.ParticipationLimits{}, fmt.Errorf("failed to parse %s: %w", models.ParticipateConfigKey, err)
	}
	return limits, nil
}

// uniqueViolation возвращает имя ограничения, если err это нарушение уникальности
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return engine.ErrNotFound
	}
	return err
}
