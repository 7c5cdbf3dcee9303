package config

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"PORT", "STORAGE_DRIVER", "DATABASE_URL", "SQLITE_PATH", "REDIS_URL",
	"NUM_WORKERS", "DELIVERY_TIMEOUT", "SIGNING_SECRET", "TRIGGER_RATE_LIMIT",
	"PING_STATUS_TTL", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		// Setenv registers the restore; envconfig treats set-but-empty as a value.
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "3000", cfg.Port)
	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "webhooks.db", cfg.SQLitePath)
	assert.Equal(t, 50, cfg.NumWorkers)
	assert.Equal(t, 5*time.Second, cfg.DeliveryTimeout)
	assert.Equal(t, 24*time.Hour, cfg.PingStatusTTL)
	assert.Zero(t, cfg.TriggerRateLimit)
	assert.Empty(t, cfg.RedisURL)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8081")
	t.Setenv("STORAGE_DRIVER", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://localhost/webhooks")
	t.Setenv("REDIS_URL", "redis://localhost:6379")
	t.Setenv("NUM_WORKERS", "8")
	t.Setenv("DELIVERY_TIMEOUT", "750ms")
	t.Setenv("TRIGGER_RATE_LIMIT", "20")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Port)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, 8, cfg.NumWorkers)
	assert.Equal(t, 750*time.Millisecond, cfg.DeliveryTimeout)
	assert.Equal(t, 20, cfg.TriggerRateLimit)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"unknown driver", map[string]string{"STORAGE_DRIVER": "mysql"}, "unknown STORAGE_DRIVER"},
		{"postgres without url", map[string]string{"STORAGE_DRIVER": "postgres"}, "DATABASE_URL is required"},
		{"zero workers", map[string]string{"NUM_WORKERS": "0"}, "NUM_WORKERS must be positive"},
		{"non-numeric workers", map[string]string{"NUM_WORKERS": "many"}, "reading environment"},
		{"negative timeout", map[string]string{"DELIVERY_TIMEOUT": "-1s"}, "DELIVERY_TIMEOUT must be positive"},
		{"rate limit without redis", map[string]string{"TRIGGER_RATE_LIMIT": "10"}, "requires REDIS_URL"},
		{"bad log level", map[string]string{"LOG_LEVEL": "loud"}, "invalid LOG_LEVEL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
