// Package sqlitestore хранилище движка на SQLite через gorm. Используется
// для локального запуска без PostgreSQL и в тестах с базой в памяти.
package sqlitestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// InMemoryDSN база в памяти, живет пока открыто соединение
const InMemoryDSN = ":memory:"

// Одна ожидающая запись на пару пользователь-команда
const pendingIndexQuery = `
	CREATE UNIQUE INDEX IF NOT EXISTS uq_team_applications_pending
	ON team_applications (user_id, team_id)
	WHERE status = 'pending'
`

type Store struct {
	db *gorm.DB
}

var (
	_ engine.Store          = (*Store)(nil)
	_ engine.LimitsProvider = (*Store)(nil)
	_ engine.Tx             = (*gormTx)(nil)
)

// Open открывает базу и применяет схему
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	// SQLite не допускает параллельных писателей, а база в памяти
	// существует только внутри одного соединения
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.Migrate(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// Migrate создает таблицы и индексы
func (s *Store) Migrate() error {
	err := s.db.AutoMigrate(
		&userRecord{},
		&userSkillRecord{},
		&competitionRecord{},
		&teamRecord{},
		&memberRecord{},
		&applicationRecord{},
		&participationRecord{},
		&configRecord{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}
	if err := s.db.Exec(pendingIndexQuery).Error; err != nil {
		return fmt.Errorf("failed to create pending index: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// InTx выполняет fn в транзакции gorm
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx engine.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(ctx, &gormTx{db: db})
	})
}

// ParticipationLimits читает лимиты из таблицы configs при каждом вызове
func (s *Store) ParticipationLimits(ctx context.Context) (models.ParticipationLimits, error) {
	var rec configRecord
	err := s.db.WithContext(ctx).
		Where("config_key = ?", models.ParticipateConfigKey).
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.ParticipationLimits{}, fmt.Errorf("config %s not found", models.ParticipateConfigKey)
	}
	if err != nil {
		return models.ParticipationLimits{}, fmt.Errorf("failed to get config: %w", err)
	}

	var limits models.ParticipationLimits
	if err := json.Unmarshal([]byte(rec.ConfigValue), &limits); err != nil {
		return models.ParticipationLimits{}, fmt.Errorf("failed to parse %s: %w", models.ParticipateConfigKey, err)
	}
	return limits, nil
}

// SetParticipationLimits сохраняет лимиты в configs
func (s *Store) SetParticipationLimits(ctx context.Context, limits models.ParticipationLimits) error {
	value, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("failed to encode limits: %w", err)
	}
	rec := configRecord{ConfigKey: models.ParticipateConfigKey, ConfigValue: string(value)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to save limits: %w", err)
	}
	return nil
}

// EnsureParticipationLimits записывает лимиты, только если их еще нет
func (s *Store) EnsureParticipationLimits(ctx context.Context, limits models.ParticipationLimits) error {
	value, err := json.Marshal(limits)
	if err != nil {
		return fmt.Errorf("failed to encode limits: %w", err)
	}
	rec := configRecord{ConfigKey: models.ParticipateConfigKey, ConfigValue: string(value)}
	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rec).Error
	if err != nil {
		return fmt.Errorf("failed to seed limits: %w", err)
	}
	return nil
}

// CreateUser добавляет пользователя вместе с навыками
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		rec := userRecord{
			Username: user.Username,
			Email:    user.Email,
			Phone:    user.Phone,
			RealName: user.RealName,
			Major:    user.Major,
		}
		if err := db.Create(&rec).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		user.ID = rec.ID

		for _, skill := range user.Skills {
			if err := db.Create(&userSkillRecord{UserID: rec.ID, Skill: skill}).Error; err != nil {
				return fmt.Errorf("failed to add user skill: %w", err)
			}
		}
		return nil
	})
}

// CreateCompetition добавляет соревнование
func (s *Store) CreateCompetition(ctx context.Context, c *models.Competition) error {
	rec := competitionRecord{Title: c.Title, StartTime: c.StartTime, EndTime: c.EndTime}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("failed to create competition: %w", err)
	}
	c.ID = rec.ID
	return nil
}

// DeleteCompetition удаляет соревнование, записи об участии остаются
func (s *Store) DeleteCompetition(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&competitionRecord{}, id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete competition: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return engine.ErrNotFound
	}
	return nil
}
