package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	DB        DBConfig
	Log       LogConfig
	Backends  BackendsConfig
	Review    ReviewConfig
	Analytics AnalyticsConfig
	Batch     BatchConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// BackendConfig holds settings for a single model backend provider.
type BackendConfig struct {
	Provider    string `mapstructure:"provider"`
	APIKey      string `mapstructure:"api_key"`
	Model       string `mapstructure:"model"`
	Endpoint    string `mapstructure:"endpoint"`
	TimeoutSecs int    `mapstructure:"timeout_secs"`
	MaxTokens   int    `mapstructure:"max_tokens"`
}

// BackendsConfig holds the ordered fallback list of model backends. Order in
// the slice is priority order: the first entry is the primary backend.
type BackendsConfig struct {
	Fallback []BackendConfig `mapstructure:"fallback"`
}

// ReviewConfig holds review pipeline settings.
type ReviewConfig struct {
	Enabled          bool    `mapstructure:"enabled"`
	ArithmeticTol    float64 `mapstructure:"arithmetic_tolerance"`
	HighAmountFloor  float64 `mapstructure:"high_amount_floor"`
	RoundNumberFloor float64 `mapstructure:"round_number_floor"`
}

// AnalyticsConfig holds query guard settings.
type AnalyticsConfig struct {
	StatementTimeout time.Duration `mapstructure:"statement_timeout"`
	MaxRows          int           `mapstructure:"max_rows"`
}

// BatchConfig holds batch submission settings.
type BatchConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// NewLogger builds a zap logger from the log settings. Format "console"
// gives the development encoder; anything else gives production JSON.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// Load reads configuration from config.yaml (if present) and environment
// variables with the LEDGERLENS_ prefix; environment wins.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("LEDGERLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000", "http://127.0.0.1:3000"})

	// DB defaults
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "ledgerlens")
	v.SetDefault("db.password", "ledgerlens_secret")
	v.SetDefault("db.name", "ledgerlens_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Review defaults
	v.SetDefault("review.enabled", true)
	v.SetDefault("review.arithmetic_tolerance", 0.01)
	v.SetDefault("review.high_amount_floor", 100000)
	v.SetDefault("review.round_number_floor", 1000)

	// Analytics defaults
	v.SetDefault("analytics.statement_timeout", "5s")
	v.SetDefault("analytics.max_rows", 100)

	// Batch defaults
	v.SetDefault("batch.concurrency", 4)

	// A missing config file is fine (env-only deployments); a malformed one is not.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if len(cfg.Backends.Fallback) == 0 {
		// Single-backend default keyed off the conventional env var so the
		// server can start without a config file.
		cfg.Backends.Fallback = []BackendConfig{{
			Provider:    "openai",
			APIKey:      v.GetString("backends.api_key"),
			Model:       "gpt-4o-mini",
			TimeoutSecs: 120,
		}}
	}

	for i := range cfg.Backends.Fallback {
		b := &cfg.Backends.Fallback[i]
		if b.TimeoutSecs == 0 {
			b.TimeoutSecs = 120
		}
		if b.MaxTokens == 0 {
			b.MaxTokens = 4096
		}
	}

	return &cfg, nil
}
