package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	for _, k := range []string{"APP_ENV", "DB_PATH", "REDIS_ADDR", "METRICS_ADDR", "GRPC_PORT", "SURVEY_RUN_INTERVAL", "SURVEY_PAGE_SIZE", "MIGRATE_ON_START"} {
		t.Setenv(k, "")
	}

	cfg := LoadFromEnv()

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "sqlite3", cfg.DBDriver)
	assert.Equal(t, "./data/catsurvey.db", cfg.DBPath)
	assert.True(t, cfg.MigrateOnStart)
	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, time.Hour, cfg.LockTTL)
	assert.Equal(t, 500, cfg.PageSize)
	assert.Equal(t, 5*time.Minute, cfg.ConfigCacheTTL)
	assert.False(t, cfg.TracingEnabled)
	// set to empty by the loop above
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.MetricsAddr)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DB_PATH", "/var/lib/catsurvey.db")
	t.Setenv("MIGRATE_ON_START", "false")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("GRPC_REFLECTION_ENABLED", "true")
	t.Setenv("SURVEY_RUN_INTERVAL", "6h")
	t.Setenv("SURVEY_RUN_ON_START", "1")
	t.Setenv("SURVEY_LOCK_TTL", "30m")
	t.Setenv("SURVEY_PAGE_SIZE", "50")
	t.Setenv("TRACING_ENABLED", "true")

	cfg := LoadFromEnv()

	assert.Equal(t, "production", cfg.AppEnv)
	assert.Equal(t, "/var/lib/catsurvey.db", cfg.DBPath)
	assert.False(t, cfg.MigrateOnStart)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 6000, cfg.GRPCPort)
	assert.True(t, cfg.GRPCReflectionEnabled)
	assert.Equal(t, 6*time.Hour, cfg.RunInterval)
	assert.True(t, cfg.RunOnStart)
	assert.Equal(t, 30*time.Minute, cfg.LockTTL)
	assert.Equal(t, 50, cfg.PageSize)
	assert.True(t, cfg.TracingEnabled)
}

func TestLoadFromEnv_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("GRPC_PORT", "not-a-port")
	t.Setenv("SURVEY_RUN_INTERVAL", "daily")
	t.Setenv("SURVEY_LOCK_TTL", "-1h")
	t.Setenv("GRPC_REFLECTION_ENABLED", "maybe")

	cfg := LoadFromEnv()

	assert.Equal(t, 50051, cfg.GRPCPort)
	assert.Equal(t, 24*time.Hour, cfg.RunInterval)
	assert.Equal(t, time.Hour, cfg.LockTTL)
	assert.False(t, cfg.GRPCReflectionEnabled)
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger(&Config{AppEnv: "production"})
	require.NoError(t, err)
	assert.NotNil(t, logger)

	logger, err = NewLogger(&Config{AppEnv: "development"})
	require.NoError(t, err)
	assert.NotNil(t, logger)
}
