package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/untibullet/teamform/internal/config"
	"github.com/untibullet/teamform/internal/engine"
	"github.com/untibullet/teamform/internal/repository"
	"github.com/untibullet/teamform/internal/repository/sqlitestore"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// backend хранилище и источник лимитов, выбранные по конфигурации
type backend struct {
	store  engine.Store
	limits engine.LimitsProvider
	close  func()
}

// openBackend подключает хранилище. Для PostgreSQL при migrate=true
// перед стартом применяются миграции, SQLite схему создает сам
func openBackend(ctx context.Context, cfg *config.Config, migrate bool, logger *zap.Logger) (*backend, error) {
	var b backend

	switch cfg.Store.Driver {
	case config.DriverSQLite:
		store, err := sqlitestore.Open(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureParticipationLimits(ctx, cfg.Participation.Limits); err != nil {
			_ = store.Close()
			return nil, err
		}
		logger.Info("sqlite store opened", zap.String("path", cfg.Store.SQLitePath))

		b.store = store
		b.limits = store
		b.close = func() {
			if err := store.Close(); err != nil {
				logger.Error("failed to close sqlite store", zap.Error(err))
			}
		}
	default:
		pool, err := initDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("database connection established")

		if migrate {
			applied, err := repository.Migrate(ctx, pool)
			if err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info("migrations applied", zap.Strings("files", applied))
		}

		b.store = repository.New(pool)
		b.limits = repository.NewConfigLimits(pool)
		b.close = pool.Close
	}

	if cfg.Participation.LimitsSource == config.LimitsFromConfig {
		watcher := config.NewLimitsWatcher(cfg.Participation.Limits, logger)
		cfg.WatchLimits(watcher)
		b.limits = watcher
		logger.Info("participation limits are read from config file")
	}

	return &b, nil
}

// initLogger инициализирует zap логгер на основе конфигурации
func initLogger(cfg config.LoggerConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapConfig zap.Config
	if cfg.Format == "json" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapConfig.Level = zap.NewAtomicLevelAt(level)

	logger, err := zapConfig.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return logger, nil
}

// initDatabase инициализирует пул подключений к PostgreSQL
func initDatabase(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Debug("database pool configured",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int32("max_conns", poolConfig.MaxConns))
	return pool, nil
}
