// Package config loads service configuration from defaults, an optional
// config.yaml, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/sartorproj/stockcast/ensemble"
	"github.com/sartorproj/stockcast/forecast"
)

type Config struct {
	Environment string         `mapstructure:"environment"`
	LogLevel    string         `mapstructure:"log_level"`
	Server      ServerConfig   `mapstructure:"server"`
	Database    DatabaseConfig `mapstructure:"database"`
	Redis       RedisConfig    `mapstructure:"redis"`
	Forecast    ForecastConfig `mapstructure:"forecast"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	DatabaseURL string `mapstructure:"database_url"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	MaxConns    int32  `mapstructure:"max_conns"`
}

// DSN returns DatabaseURL when set, otherwise a keyword/value connection
// string built from the individual fields.
func (c DatabaseConfig) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	Password   string        `mapstructure:"password"`
	DB         int           `mapstructure:"db"`
	HistoryTTL time.Duration `mapstructure:"history_ttl"`
}

type ForecastConfig struct {
	DefaultHorizon int           `mapstructure:"default_horizon"`
	MaxHorizon     int           `mapstructure:"max_horizon"`
	MinRows        int           `mapstructure:"min_rows"`
	Workers        int           `mapstructure:"workers"`
	FitTimeout     time.Duration `mapstructure:"fit_timeout"`
}

// Options converts the section into forecaster options.
func (c ForecastConfig) Options() forecast.Options {
	return forecast.Options{
		DefaultHorizon: c.DefaultHorizon,
		MaxHorizon:     c.MaxHorizon,
		MinRows:        c.MinRows,
		Ensemble: ensemble.Options{
			Workers:    c.Workers,
			FitTimeout: c.FitTimeout,
		},
	}
}

// Load reads configuration. configFile may be empty, in which case
// config.yaml is looked up in ./configs and the working directory.
// .env.local and .env are loaded first when present; variables already set
// in the environment win.
func Load(configFile string) (*Config, error) {
	for _, f := range []string{".env.local", ".env"} {
		_ = godotenv.Load(f)
	}

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The hosted database exposes a bare DATABASE_URL.
	if err := v.BindEnv("database.database_url", "DATABASE_DATABASE_URL", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("bind DATABASE_URL: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Environment = strings.ToLower(cfg.Environment)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the forecast section.
func (c *Config) Validate() error {
	f := c.Forecast
	if f.DefaultHorizon < 1 {
		return fmt.Errorf("forecast.default_horizon must be at least 1, got %d", f.DefaultHorizon)
	}
	if f.MaxHorizon < f.DefaultHorizon {
		return fmt.Errorf("forecast.max_horizon (%d) is below forecast.default_horizon (%d)", f.MaxHorizon, f.DefaultHorizon)
	}
	if f.MinRows < 1 {
		return fmt.Errorf("forecast.min_rows must be at least 1, got %d", f.MinRows)
	}
	if f.Workers < 1 {
		return fmt.Errorf("forecast.workers must be at least 1, got %d", f.Workers)
	}
	if f.FitTimeout <= 0 {
		return fmt.Errorf("forecast.fit_timeout must be positive, got %s", f.FitTimeout)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "stockcast")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	// Redis
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.history_ttl", "10m")

	// Forecast
	v.SetDefault("forecast.default_horizon", 3)
	v.SetDefault("forecast.max_horizon", 24)
	v.SetDefault("forecast.min_rows", 6)
	v.SetDefault("forecast.workers", 4)
	v.SetDefault("forecast.fit_timeout", "10s")
}
