package config

import (
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv   string
	DBDriver string
	DBPath   string
	// MigrateOnStart applies the embedded schema before serving.
	MigrateOnStart bool

	RedisAddr string

	GRPCPort              int
	GRPCReflectionEnabled bool
	MetricsAddr           string

	RunInterval    time.Duration
	RunOnStart     bool
	LockTTL        time.Duration
	PageSize       int
	ConfigCacheTTL time.Duration

	TracingEnabled bool
	JaegerEndpoint string
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		DBDriver:       getEnv("DB_DRIVER", "sqlite3"),
		DBPath:         getEnv("DB_PATH", "./data/catsurvey.db"),
		MigrateOnStart: getBool("MIGRATE_ON_START", true),

		// an explicitly empty REDIS_ADDR disables redis
		RedisAddr: getEnvAllowEmpty("REDIS_ADDR", "localhost:6379"),

		GRPCPort:              getInt("GRPC_PORT", 50051),
		GRPCReflectionEnabled: getBool("GRPC_REFLECTION_ENABLED", false),
		MetricsAddr:           getEnvAllowEmpty("METRICS_ADDR", ":9090"),

		RunInterval:    getDuration("SURVEY_RUN_INTERVAL", 24*time.Hour),
		RunOnStart:     getBool("SURVEY_RUN_ON_START", false),
		LockTTL:        getDuration("SURVEY_LOCK_TTL", time.Hour),
		PageSize:       getInt("SURVEY_PAGE_SIZE", 500),
		ConfigCacheTTL: getDuration("CONFIG_CACHE_TTL", 5*time.Minute),

		TracingEnabled: getBool("TRACING_ENABLED", false),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
	}
}

// NewLogger creates a new Zap logger based on the config.
func NewLogger(cfg *Config) (*zap.Logger, error) {
	if cfg.AppEnv == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAllowEmpty(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
