package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Addr          string
	BackendURL    string
	CORSOrigin    string
	AskTimeout    time.Duration
	MigrationsDir string
	// Redis Configuration
	RedisURL string
	// Postgres Configuration (used when Redis is not configured)
	DatabaseURL string
}

func Load() Config {
	return Config{
		Addr:          getenv("API_ADDR", ":8787"),
		BackendURL:    getenv("TRUSTCITE_BACKEND_URL", ""),
		CORSOrigin:    getenv("TRUSTCITE_CORS_ORIGIN", "*"),
		AskTimeout:    time.Duration(getenvInt("TRUSTCITE_ASK_TIMEOUT_SECONDS", 30)) * time.Second,
		MigrationsDir: getenv("TRUSTCITE_MIGRATIONS_DIR", "./db/migrations"),
		// Redis - preferred document storage backend
		RedisURL: getenv("REDIS_URL", "redis://localhost:6379/0"),
		// Postgres - fallback document storage backend
		DatabaseURL: getenv("DATABASE_URL", ""),
	}
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
