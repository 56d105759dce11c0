package main

import (
	"fmt"
	"os"
	"time"
)

// config is read from the environment (and .env, via godotenv).
type config struct {
	Env             string
	LogLevel        string
	Port            string
	DatabaseURL     string
	DBMaxConns      int32
	DBMinConns      int32
	RunMigrations   bool
	JWTSecret       string
	ShutdownTimeout time.Duration
	IdempotencyTTL  time.Duration // 0 disables Idempotency-Key support
}

func loadConfig() (config, error) {
	cfg := config{
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnv("APP_PORT", "8080"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		DBMaxConns:      int32(getEnvInt("DB_MAX_CONNS", 25)),
		DBMinConns:      int32(getEnvInt("DB_MIN_CONNS", 5)),
		RunMigrations:   getEnvBool("RUN_MIGRATIONS", true),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		IdempotencyTTL:  getEnvDuration("IDEMPOTENCY_TTL", 24*time.Hour),
	}

	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("required environment variable DATABASE_URL not set")
	}
	if cfg.JWTSecret == "" {
		if cfg.Env != "development" {
			return cfg, fmt.Errorf("required environment variable JWT_SECRET not set")
		}
		cfg.JWTSecret = "dev-secret-change-in-production"
	}
	if cfg.DBMinConns > cfg.DBMaxConns {
		return cfg, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", cfg.DBMinConns, cfg.DBMaxConns)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
