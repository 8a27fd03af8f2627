// Package config loads service configuration from the environment, with
// optional .env file support for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-driven settings.
type Config struct {
	Port string
	Mode string // "debug" or "release"

	RedisAddr     string
	RedisPassword string

	DBPath string

	AccessSecret  string
	RefreshSecret string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	RateMaxAttempts   int
	RateBlockDuration time.Duration
}

// Load reads configuration from the environment. Missing signing secrets
// are a fatal configuration error: they must never surface at request time.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "8080"),
		Mode:              getEnv("MODE", "debug"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		DBPath:            getEnv("DB_PATH", "authd.db"),
		AccessSecret:      getEnv("JWT_ACCESS_SECRET", ""),
		RefreshSecret:     getEnv("JWT_REFRESH_SECRET", ""),
		AccessTTL:         getEnvAsDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTTL:        getEnvAsDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		RateMaxAttempts:   getEnvAsInt("RATE_MAX_ATTEMPTS", 3),
		RateBlockDuration: getEnvAsDuration("RATE_BLOCK_DURATION", 60*time.Second),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.AccessSecret == "" {
		return fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if c.RefreshSecret == "" {
		return fmt.Errorf("JWT_REFRESH_SECRET is required")
	}
	if c.AccessTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	if c.RefreshTTL <= 0 {
		return fmt.Errorf("REFRESH_TOKEN_TTL must be positive")
	}
	if c.RateMaxAttempts <= 0 {
		return fmt.Errorf("RATE_MAX_ATTEMPTS must be positive")
	}
	return nil
}

// Release reports whether the service runs in release mode. Cookies are
// marked Secure only in release mode.
func (c *Config) Release() bool { return c.Mode == "release" }

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
