// Package config reads the client settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/fjod/storefront/pkg/circuitbreaker"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

var ErrUnknownBackend = errors.New("unknown session backend")

type Config struct {
	APIBase           string
	CategoriesTimeout time.Duration
	Breaker           circuitbreaker.Settings

	SessionBackend string
	RedisAddr      string
	RedisPassword  string
	SessionTTL     time.Duration
	SessionDBPath  string

	LogLevel string
	LogDev   bool
}

// Load reads envFile when it exists and then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var err error
	cfg := Config{
		APIBase:        getEnv("STOREFRONT_API_BASE", "http://localhost:3000"),
		SessionBackend: getEnv("SESSION_BACKEND", BackendMemory),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		SessionDBPath:  getEnv("SESSION_DB_PATH", "storefront-session.db"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}
	if cfg.CategoriesTimeout, err = getDuration("CATEGORIES_TIMEOUT", 10*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 0); err != nil {
		return Config{}, err
	}
	if cfg.LogDev, err = getBool("LOG_DEV", false); err != nil {
		return Config{}, err
	}

	defaults := circuitbreaker.DefaultSettings()
	maxFailures, err := getInt("BREAKER_MAX_FAILURES", int(defaults.MaxFailures))
	if err != nil {
		return Config{}, err
	}
	cfg.Breaker.MaxFailures = uint32(maxFailures)
	if cfg.Breaker.OpenTimeout, err = getDuration("BREAKER_OPEN_TIMEOUT", defaults.OpenTimeout); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	switch c.SessionBackend {
	case BackendMemory, BackendRedis, BackendSQLite:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.SessionBackend)
	}
	if c.APIBase == "" {
		return errors.New("STOREFRONT_API_BASE is required")
	}
	if c.CategoriesTimeout <= 0 {
		return errors.New("CATEGORIES_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
