package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Storage drivers accepted in STORAGE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the application.
type Config struct {
	Port             string        `envconfig:"PORT" default:"3000"`
	StorageDriver    string        `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	DatabaseURL      string        `envconfig:"DATABASE_URL"`
	SQLitePath       string        `envconfig:"SQLITE_PATH" default:"webhooks.db"`
	RedisURL         string        `envconfig:"REDIS_URL"`
	NumWorkers       int           `envconfig:"NUM_WORKERS" default:"50"`
	DeliveryTimeout  time.Duration `envconfig:"DELIVERY_TIMEOUT" default:"5s"`
	SigningSecret    string        `envconfig:"SIGNING_SECRET"`
	TriggerRateLimit int           `envconfig:"TRIGGER_RATE_LIMIT" default:"0"`
	PingStatusTTL    time.Duration `envconfig:"PING_STATUS_TTL" default:"24h"`
	LogLevel         string        `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	cfg.StorageDriver = strings.ToLower(strings.TrimSpace(cfg.StorageDriver))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q (want %s or %s)", c.StorageDriver, DriverSQLite, DriverPostgres)
	}

	if c.NumWorkers < 1 {
		return fmt.Errorf("NUM_WORKERS must be positive, got %d", c.NumWorkers)
	}
	if c.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must be positive, got %s", c.DeliveryTimeout)
	}
	if c.TriggerRateLimit < 0 {
		return fmt.Errorf("TRIGGER_RATE_LIMIT must not be negative, got %d", c.TriggerRateLimit)
	}
	if c.TriggerRateLimit > 0 && c.RedisURL == "" {
		return fmt.Errorf("TRIGGER_RATE_LIMIT requires REDIS_URL")
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// SlogLevel maps LOG_LEVEL onto a slog level.
func (c *Config) SlogLevel() slog.Level {
	lvl, err := parseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q", s)
	}
	return lvl, nil
}
