// Package config reads process settings from the environment (and a .env file, if present).
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           string
	DatabaseURL    string
	StoreDriver    string // "postgres" or "memory"
	DBMaxConns     int32
	RedisURL       string // empty selects the in-process idempotency store
	JWTSecret      string
	AllowedOrigins string

	OrderNumberPrefix    string
	DefaultCurrency      string
	PlacementMaxAttempts int
	IdempotencyTTL       time.Duration

	OpenAIAPIKey string
	OpenAIModel  string

	LogLevel slog.Level
}

// Load reads .env (ignored when missing) and then the environment, applying defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function. Malformed numeric or duration values are errors.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:              get("SERVER_PORT", "8080"),
		DatabaseURL:       get("DATABASE_URL", ""),
		StoreDriver:       strings.ToLower(get("STORE_DRIVER", "postgres")),
		RedisURL:          get("REDIS_URL", ""),
		JWTSecret:         get("JWT_SECRET", ""),
		AllowedOrigins:    get("ALLOWED_ORIGINS", ""),
		OrderNumberPrefix: get("ORDER_NUMBER_PREFIX", "TK"),
		DefaultCurrency:   strings.ToUpper(get("DEFAULT_CURRENCY", "IDR")),
		OpenAIAPIKey:      get("OPENAI_API_KEY", ""),
		OpenAIModel:       get("OPENAI_MODEL", "gpt-4o-mini"),
	}

	if cfg.StoreDriver != "postgres" && cfg.StoreDriver != "memory" {
		return nil, fmt.Errorf("STORE_DRIVER must be postgres or memory, got %q", cfg.StoreDriver)
	}

	attempts, err := strconv.Atoi(get("PLACEMENT_MAX_ATTEMPTS", "3"))
	if err != nil || attempts <= 0 {
		return nil, fmt.Errorf("PLACEMENT_MAX_ATTEMPTS must be a positive integer, got %q", getenv("PLACEMENT_MAX_ATTEMPTS"))
	}
	cfg.PlacementMaxAttempts = attempts

	maxConns, err := strconv.ParseInt(get("DB_MAX_CONNS", "25"), 10, 32)
	if err != nil || maxConns <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNS must be a positive integer, got %q", getenv("DB_MAX_CONNS"))
	}
	cfg.DBMaxConns = int32(maxConns)

	ttl, err := time.ParseDuration(get("IDEMPOTENCY_TTL", "24h"))
	if err != nil || ttl <= 0 {
		return nil, fmt.Errorf("IDEMPOTENCY_TTL must be a positive duration, got %q", getenv("IDEMPOTENCY_TTL"))
	}
	cfg.IdempotencyTTL = ttl

	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// NewLogger returns the process-wide JSON logger at the configured level.
func (c *Config) NewLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: c.LogLevel}))
}
