/*
Package config loads the service configuration from the environment.

SOURCES:
  Environment variables, optionally read from a .env file first
  (github.com/joho/godotenv). Variables already set in the process win over
  the file. cmd/server flags override the result.

KEYS:
  APP_PORT                  HTTP port (8080)
  DB_DRIVER                 sqlite3 | mysql (sqlite3)
  DB_DSN                    file path, ":memory:" or MySQL DSN (roastery.db)
  JWT_SECRET                HMAC key for bearer tokens (change-me)
  TOKEN_TTL_MINUTES         token lifetime (1440)
  FIRST_SUPERUSER_EMAIL     seeded on start when set
  FIRST_SUPERUSER_PASSWORD
  CURRENCY_DECIMALS         money rounding, 0..8 (0)
  CORS_ORIGINS              comma-separated (http://localhost:5173)
  REDIS_ADDR                enables the Redis locker when set
  REDIS_PASSWORD, REDIS_DB
  SNAPSHOT_CRON             dashboard snapshot schedule (0 23 * * *)
  TIMEZONE                  schedule time zone (UTC)
  LOG_LEVEL                 debug | info | warn | error (info)
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full configuration surface.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	Redis     RedisConfig
	Scheduler SchedulerConfig

	CurrencyDecimals int32
	LogLevel         string
}

type ServerConfig struct {
	Port        string
	CORSOrigins []string
}

type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AuthConfig holds token settings and the optional first superuser.
type AuthConfig struct {
	JWTSecret              string
	TokenTTL               time.Duration
	FirstSuperuserEmail    string
	FirstSuperuserPassword string
}

// RedisConfig is empty (Addr == "") when locks stay in-process.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SchedulerConfig struct {
	SnapshotCron string
	Timezone     string
}

// Load reads environment variables (optionally from envFile) and validates
// the result. A missing envFile is not an error.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	ttl, err := getenvInt("TOKEN_TTL_MINUTES", 1440)
	if err != nil {
		return nil, err
	}
	decimals, err := getenvInt("CURRENCY_DECIMALS", 0)
	if err != nil {
		return nil, err
	}
	redisDB, err := getenvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getenvWithDefault("APP_PORT", "8080"),
			CORSOrigins: splitList(getenvWithDefault("CORS_ORIGINS", "http://localhost:5173")),
		},
		Database: DatabaseConfig{
			Driver: getenvWithDefault("DB_DRIVER", "sqlite3"),
			DSN:    getenvWithDefault("DB_DSN", "roastery.db"),
		},
		Auth: AuthConfig{
			JWTSecret:              getenvWithDefault("JWT_SECRET", "change-me"),
			TokenTTL:               time.Duration(ttl) * time.Minute,
			FirstSuperuserEmail:    os.Getenv("FIRST_SUPERUSER_EMAIL"),
			FirstSuperuserPassword: os.Getenv("FIRST_SUPERUSER_PASSWORD"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Scheduler: SchedulerConfig{
			SnapshotCron: getenvWithDefault("SNAPSHOT_CRON", "0 23 * * *"),
			Timezone:     getenvWithDefault("TIMEZONE", "UTC"),
		},
		CurrencyDecimals: int32(decimals),
		LogLevel:         getenvWithDefault("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures required fields are populated and in range.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.Database.Driver {
	case "sqlite3", "mysql":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or mysql, got %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DB_DSN must be provided")
	}

	if c.Auth.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.Auth.TokenTTL <= 0 {
		return errors.New("TOKEN_TTL_MINUTES must be positive")
	}
	if (c.Auth.FirstSuperuserEmail == "") != (c.Auth.FirstSuperuserPassword == "") {
		return errors.New("FIRST_SUPERUSER_EMAIL and FIRST_SUPERUSER_PASSWORD must be set together")
	}

	if c.CurrencyDecimals < 0 || c.CurrencyDecimals > 8 {
		return fmt.Errorf("CURRENCY_DECIMALS must be between 0 and 8, got %d", c.CurrencyDecimals)
	}

	if c.Scheduler.SnapshotCron == "" {
		return errors.New("SNAPSHOT_CRON must be provided")
	}
	if _, err := time.LoadLocation(c.Scheduler.Timezone); err != nil {
		return fmt.Errorf("TIMEZONE %q: %w", c.Scheduler.Timezone, err)
	}

	return nil
}

// Location returns the scheduler time zone. Validate has already checked it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
