// Package config loads runtime settings from the environment and an optional .env file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/neexbeast/weather-insights/internal/weather"
)

// Config holds settings shared by the server and the CLI.
type Config struct {
	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string
	BearerToken string
	Port        string

	WeatherAPIKey   string
	WeatherAPIURL   string
	WeatherAPIRPS   float64
	WeatherAPIBurst int

	BackfillConcurrency int
	RefreshInterval     time.Duration
	RefreshDays         int
	LockTTL             time.Duration

	LogLevel slog.Level
}

// Load reads configuration from environment variables (optionally .env).
// Unset keys take defaults; malformed values are errors.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:   env("DATABASE_URL", ""),
		RedisURL:      env("REDIS_URL", ""),
		BearerToken:   env("BEARER_TOKEN", ""),
		Port:          env("PORT", "8080"),
		WeatherAPIKey: env("WEATHER_API_KEY", ""),
		WeatherAPIURL: env("WEATHER_API_URL", weather.DefaultBaseURL),
	}

	var err error
	if cfg.WeatherAPIRPS, err = envFloat("WEATHER_API_RPS", 0); err != nil {
		return nil, err
	}
	if cfg.WeatherAPIBurst, err = envInt("WEATHER_API_BURST", 1); err != nil {
		return nil, err
	}
	maxConns, err := envInt("DB_MAX_CONNS", 0)
	if err != nil {
		return nil, err
	}
	cfg.MaxDBConns = int32(maxConns)
	if cfg.BackfillConcurrency, err = envInt("BACKFILL_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval, err = envDuration("REFRESH_INTERVAL", 0); err != nil {
		return nil, err
	}
	if cfg.RefreshDays, err = envInt("REFRESH_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.LockTTL, err = envDuration("LOCK_TTL", 2*time.Minute); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(env("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	return cfg, nil
}

// Require reports the first of the named settings that is empty.
func (c *Config) Require(keys ...string) error {
	values := map[string]string{
		"DATABASE_URL":    c.DatabaseURL,
		"REDIS_URL":       c.RedisURL,
		"BEARER_TOKEN":    c.BearerToken,
		"WEATHER_API_KEY": c.WeatherAPIKey,
	}
	for _, k := range keys {
		if values[k] == "" {
			return fmt.Errorf("%s is required", k)
		}
	}
	return nil
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
