package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"github.com/untibullet/teamform/internal/models"
)

// Драйверы хранилища
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Источники лимитов участия
const (
	LimitsFromConfig   = "config"
	LimitsFromDatabase = "database"
)

type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Logger        LoggerConfig        `mapstructure:"logger"`
	Store         StoreConfig         `mapstructure:"store"`
	Participation ParticipationConfig `mapstructure:"participation"`

	v *viper.Viper
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
}

type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// StoreConfig выбор хранилища: PostgreSQL или локальный файл SQLite
type StoreConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// ParticipationConfig откуда брать лимиты участия. Для источника config
// лимиты задаются здесь же и перечитываются при изменении файла
type ParticipationConfig struct {
	LimitsSource string                     `mapstructure:"limits_source"`
	Limits       models.ParticipationLimits `mapstructure:",squash"`
}

// Load загружает конфигурацию из config.yaml и переопределяет значения из переменных окружения.
// Если path не пустой, читается указанный файл
func Load(path string) (*Config, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVariables(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.v = v

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8080")
	v.SetDefault("logger.level", "info")
	v.SetDefault("store.driver", DriverPostgres)
	v.SetDefault("store.sqlite_path", "teamform.db")
	v.SetDefault("participation.limits_source", LimitsFromDatabase)
	v.SetDefault("participation.team_max_participants", 2)
	v.SetDefault("participation.individual_max_participants", 3)
	v.SetDefault("participation.member_max_participants", 3)
}

// bindEnvVariables явно связывает переменные окружения с ключами конфига
func bindEnvVariables(v *viper.Viper) {
	// Database
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("database.sslmode", "DB_SSLMODE")

	// Server
	v.BindEnv("server.host", "SERVER_HOST")
	v.BindEnv("server.port", "SERVER_PORT")

	// Logger
	v.BindEnv("logger.level", "LOG_LEVEL")
	v.BindEnv("logger.format", "LOG_FORMAT")

	// Store
	v.BindEnv("store.driver", "STORE_DRIVER")
	v.BindEnv("store.sqlite_path", "SQLITE_PATH")

	// Participation
	v.BindEnv("participation.limits_source", "LIMITS_SOURCE")
	v.BindEnv("participation.team_max_participants", "TEAM_MAX_PARTICIPANTS")
	v.BindEnv("participation.individual_max_participants", "INDIVIDUAL_MAX_PARTICIPANTS")
	v.BindEnv("participation.member_max_participants", "MEMBER_MAX_PARTICIPANTS")
}

// Validate проверяет значения, которые нельзя исправить значениями по умолчанию
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite:
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Store.Driver == DriverSQLite && c.Store.SQLitePath == "" {
		return fmt.Errorf("store.sqlite_path is required for sqlite driver")
	}
	return c.Participation.Validate()
}

func (p *ParticipationConfig) Validate() error {
	switch p.LimitsSource {
	case LimitsFromDatabase, LimitsFromConfig:
		return nil
	default:
		return fmt.Errorf("unknown limits source %q", p.LimitsSource)
	}
}

// GetDSN возвращает строку подключения к PostgreSQL
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// GetAddress возвращает адрес сервера в формате host:port
func (c *ServerConfig) GetAddress() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}
