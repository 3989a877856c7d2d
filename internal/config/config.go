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

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	// Server
	Port     string
	Env      string
	LogLevel string

	// Session store
	StoreDriver string
	DatabaseURL string
	SQLitePath  string

	// Redis (observers + update fan-out)
	RedisURL string

	// JWT, empty disables API auth
	JWTSecret string

	// Monitor
	MonitorInterval   time.Duration
	UsageWindow       time.Duration
	NightStartHour    int
	NightEndHour      int
	Timezone          string
	CategoryTablePath string
	AutoStart         bool

	// Ingest
	IngestRateLimit int

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8080"),
		Env:               getEnvOrDefault("ENV", "development"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		StoreDriver:       strings.ToLower(getEnvOrDefault("STORE_DRIVER", DriverSQLite)),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		SQLitePath:        getEnvOrDefault("SQLITE_PATH", "./data/neuropulse.db"),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		JWTSecret:         getEnvOrDefault("JWT_SECRET", ""),
		MonitorInterval:   getEnvAsDurationOrDefault("MONITOR_INTERVAL", time.Minute),
		UsageWindow:       getEnvAsDurationOrDefault("USAGE_WINDOW", 24*time.Hour),
		NightStartHour:    getEnvAsIntOrDefault("NIGHT_START_HOUR", 22),
		NightEndHour:      getEnvAsIntOrDefault("NIGHT_END_HOUR", 6),
		Timezone:          getEnvOrDefault("MONITOR_TIMEZONE", "Local"),
		CategoryTablePath: getEnvOrDefault("CATEGORY_TABLE_PATH", ""),
		AutoStart:         getEnvAsBoolOrDefault("MONITOR_AUTOSTART", false),
		IngestRateLimit:   getEnvAsIntOrDefault("INGEST_RATE_LIMIT", 120),
		FrontendURL:       getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

// ValidateStore checks only the session store settings. Commands that read
// or migrate the store without running the monitor need nothing else.
func (c *Config) ValidateStore() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required when STORE_DRIVER=postgres")
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is required when STORE_DRIVER=sqlite")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

// Validate reports settings that cannot work together for the server.
func (c *Config) Validate() error {
	var errs []error

	if err := c.ValidateStore(); err != nil {
		errs = append(errs, err)
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.MonitorInterval <= 0 {
		errs = append(errs, errors.New("MONITOR_INTERVAL must be positive"))
	}
	if c.UsageWindow <= 0 {
		errs = append(errs, errors.New("USAGE_WINDOW must be positive"))
	}
	if c.NightStartHour < 0 || c.NightStartHour > 23 {
		errs = append(errs, errors.New("NIGHT_START_HOUR must be within 0-23"))
	}
	if c.NightEndHour < 0 || c.NightEndHour > 23 {
		errs = append(errs, errors.New("NIGHT_END_HOUR must be within 0-23"))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid MONITOR_TIMEZONE: %w", err))
	}

	return errors.Join(errs...)
}

// Location resolves the monitor timezone, falling back to time.Local.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
