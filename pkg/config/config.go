// Package config reads runtime settings from the environment, after loading an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/victormuniz-dev/ProjetoLEDA-Laboratorio5/pkg/models"
)

// Config captures runtime configuration values for the credit engine service.
type Config struct {
	Env                string
	HTTPAddress        string
	LogLevel           string
	LogFormat          string
	Location           *time.Location // calendar used to date reports
	SessionTimeout     time.Duration
	RateLimitPerMinute int
	RateBurst          int
	CSRFKey            []byte
	CreditGoal         int
}

// Production reports whether the service runs with production hardening (CSRF).
func (c Config) Production() bool {
	return c.Env == "production"
}

// Load reads .env (when present) and the process environment, applying defaults for local dev.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		Env:                getEnv("ENV", "development"),
		HTTPAddress:        getEnv("HTTP_ADDRESS", ":8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		LogFormat:          getEnv("LOG_FORMAT", "json"),
		SessionTimeout:     getDurationEnv("SESSION_TIMEOUT", models.SessionTimeout*time.Second),
		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", models.RateLimit),
		RateBurst:          getIntEnv("RATE_BURST", models.RateBurst),
		CreditGoal:         getIntEnv("CREDIT_GOAL", models.CreditGoal),
	}

	tz := getEnv("TIMEZONE", "America/Recife")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Config{}, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}
	cfg.Location = loc

	if key := getEnv("CSRF_KEY", ""); key != "" {
		cfg.CSRFKey = []byte(key)
	}
	if cfg.Production() && len(cfg.CSRFKey) != 32 {
		return Config{}, errors.New("CSRF_KEY must be 32 bytes in production")
	}
	if cfg.RateLimitPerMinute <= 0 || cfg.RateBurst <= 0 {
		return Config{}, errors.New("RATE_LIMIT_PER_MINUTE and RATE_BURST must be positive")
	}
	if cfg.CreditGoal <= 0 {
		return Config{}, errors.New("CREDIT_GOAL must be positive")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
