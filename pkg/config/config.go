package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	GinMode         string
	LogLevel        string
	LogFormat       string
	StorageDriver   string
	DatabaseURL     string
	RedisURL        string
	RedisKeyPrefix  string
	SQLitePath      string
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	shutdownTimeout := 10 * time.Second
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed > 0 {
			shutdownTimeout = parsed
		}
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "release"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFormat:       getEnv("LOG_FORMAT", "console"),
		StorageDriver:   getEnv("STORAGE_DRIVER", "memory"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisKeyPrefix:  getEnv("REDIS_KEY_PREFIX", "actionitems:"),
		SQLitePath:      getEnv("SQLITE_PATH", "data/schedules.db"),
		ShutdownTimeout: shutdownTimeout,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
