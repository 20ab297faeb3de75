package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultAppName        = "AtlasCore"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	// 0.01% per day unless overridden.
	defaultInterestRate = "0.0001"
	defaultInterestCron = "0 0 * * *"
	defaultDispatchCron = "*/10 * * * *"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	DatabaseURL      string
	RedisURL         string
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	InterestRate     decimal.Decimal
	InterestCron     string
	DispatchCron     string
	SchedulerEnabled bool
}

// Load reads configuration values from the environment and populates a
// Config instance. DATABASE_URL and REDIS_URL may be empty in development;
// the service then runs on its in-memory backends.
func Load() (Config, error) {
	cfg := Config{
		AppName:          getEnv("APP_NAME", defaultAppName),
		AppEnv:           getEnv("APP_ENV", defaultAppEnv),
		Port:             getEnv("PORT", defaultPort),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		ShutdownPeriod:   defaultShutdownDelay,
		IdempotencyTTL:   defaultIdempotencyTTL,
		InterestCron:     getEnv("INTEREST_CRON", defaultInterestCron),
		DispatchCron:     getEnv("DISPATCH_CRON", defaultDispatchCron),
		SchedulerEnabled: true,
	}

	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownPeriod = d
	}

	if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid IDEMPOTENCY_TTL: %w", err)
		}
		cfg.IdempotencyTTL = d
	}

	rate, err := decimal.NewFromString(getEnv("INTEREST_DAILY_RATE", defaultInterestRate))
	if err != nil {
		return Config{}, fmt.Errorf("invalid INTEREST_DAILY_RATE: %w", err)
	}
	if rate.IsNegative() {
		return Config{}, fmt.Errorf("INTEREST_DAILY_RATE must not be negative")
	}
	cfg.InterestRate = rate

	if v := os.Getenv("SCHEDULER_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SCHEDULER_ENABLED: %w", err)
		}
		cfg.SchedulerEnabled = enabled
	}

	if !isDev(cfg.AppEnv) {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func isDev(env string) bool {
	switch strings.ToLower(env) {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
