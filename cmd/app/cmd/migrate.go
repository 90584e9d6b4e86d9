package cmd

import (
	"github.com/spf13/cobra"
	"github.com/untibullet/teamform/internal/config"
	"github.com/untibullet/teamform/internal/repository"
	"github.com/untibullet/teamform/internal/repository/sqlitestore"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Long: `migrate applies the embedded SQL migrations to PostgreSQL. Already
applied files are skipped. For the sqlite driver the schema is created
from the store models and the default participation limits are seeded.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, err := initLogger(cfg.Logger)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx := cmd.Context()

		if cfg.Store.Driver == config.DriverSQLite {
			store, err := sqlitestore.Open(cfg.Store.SQLitePath)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.EnsureParticipationLimits(ctx, cfg.Participation.Limits); err != nil {
				return err
			}
			logger.Info("sqlite schema is up to date", zap.String("path", cfg.Store.SQLitePath))
			return nil
		}

		pool, err := initDatabase(ctx, cfg.Database, logger)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := repository.Migrate(ctx, pool)
		if err != nil {
			logger.Error("migration failed", zap.Error(err))
			return err
		}
		if len(applied) == 0 {
			logger.Info("no new migrations")
			return nil
		}
		logger.Info("migrations applied", zap.Strings("files", applied))
		return nil
	},
}
