package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/untibullet/teamform/internal/config"
)

var cfgFile string

// rootCmd базовая команда, без подкоманды запускает сервер
var rootCmd = &cobra.Command{
	Use:   "teamformd",
	Short: "Team formation and competition registration service",
	Long: `teamformd serves the team formation API: applications and invitations,
team rosters, match scores and competition registration with
eligibility checks.`,
	SilenceUsage: true,
	RunE:         runServe,
}

// Execute запускает корневую команду. Вызывается из main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or ./config/config.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// loadConfig читает конфигурацию по флагу --config
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}
