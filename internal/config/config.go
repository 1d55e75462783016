package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MigrationsPath  string
}

type Config struct {
	App struct {
		Port string
	}
	Postgres PostgresConfig
	// RedisAddr and KafkaBrokers are optional; empty means the catalog cache
	// and the order event publisher are disabled.
	RedisAddr    string
	KafkaBrokers string
}

// Load reads configuration from the environment, optionally preloading a
// .env file. Required keys fail fast.
func Load(envPath string) (*Config, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: failed to load .env: %w", err)
		}
	}

	cfg := &Config{}
	cfg.App.Port = getEnv("APP_PORT", "8080")

	for _, req := range []struct {
		key string
		dst *string
	}{
		{"DB_HOST", &cfg.Postgres.Host},
		{"DB_PORT", &cfg.Postgres.Port},
		{"DB_USER", &cfg.Postgres.User},
		{"DB_PASSWORD", &cfg.Postgres.Password},
		{"DB_NAME", &cfg.Postgres.DBName},
	} {
		*req.dst = os.Getenv(req.key)
		if *req.dst == "" {
			return nil, fmt.Errorf("config: %s is required", req.key)
		}
	}

	cfg.Postgres.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Postgres.MigrationsPath = getEnv("DB_MIGRATIONS_PATH", "migrations")
	cfg.Postgres.MaxConns = 10
	cfg.Postgres.MinConns = 2
	cfg.Postgres.MaxConnLifetime = 30 * time.Minute

	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.KafkaBrokers = os.Getenv("KAFKA_BROKERS")

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
