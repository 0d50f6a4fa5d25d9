/*
config.go - Server configuration

PURPOSE:
  Reads server settings from a .env file (if present) and the process
  environment. Command-line flags in cmd/server override what is loaded here.

VARIABLES:
  PORT                 HTTP port (default 8080)
  DB_PATH              SQLite path, ":memory:" for a throwaway database
                       (default welfare.db)
  LOG_LEVEL            debug | info | warn | error (default info)
  LOG_FILE             rotate JSON logs into this file (default: stdout only)
  LOG_MAX_SIZE_MB      rotation size (default 100)
  LOG_MAX_BACKUPS      rotated files kept (default 7)
  LOG_MAX_AGE_DAYS     days a rotated file is kept (default 30)
  LOG_CONSOLE          also write to stdout when LOG_FILE is set (default true)
  SCHEDULER_ENABLED    run the overdue sweep (default true)
  SCHEDULER_INTERVAL   sweep interval, Go duration syntax (default 1h)
  CORS_ORIGINS         comma-separated allowed origins

SEE ALSO:
  - logging/logging.go: consumes LogConfig
  - cmd/server/main.go: flag overrides
*/
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the server.
type Config struct {
	Port        int
	DBPath      string
	Log         LogConfig
	Scheduler   SchedulerConfig
	CORSOrigins []string
}

// LogConfig controls the slog handler and file rotation.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Console    bool
}

// SchedulerConfig controls the periodic overdue sweep.
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

var defaultOrigins = []string{"http://localhost:5173", "http://localhost:8080"}

// Load reads the given .env files (".env" when none are named) and then the
// environment. Missing .env files are not an error; malformed values are.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv.Load never overrides variables already set in the process.
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
	}

	var errs []error
	cfg := &Config{
		Port:   getInt("PORT", 8080, &errs),
		DBPath: getEnv("DB_PATH", "welfare.db"),
		Log: LogConfig{
			Level:      strings.ToLower(getEnv("LOG_LEVEL", "info")),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getInt("LOG_MAX_SIZE_MB", 100, &errs),
			MaxBackups: getInt("LOG_MAX_BACKUPS", 7, &errs),
			MaxAgeDays: getInt("LOG_MAX_AGE_DAYS", 30, &errs),
			Console:    getBool("LOG_CONSOLE", true, &errs),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getBool("SCHEDULER_ENABLED", true, &errs),
			Interval: getDuration("SCHEDULER_INTERVAL", time.Hour, &errs),
		},
		CORSOrigins: getList("CORS_ORIGINS", defaultOrigins),
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges that the parsers cannot.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.DBPath == "" {
		return errors.New("DB_PATH must not be empty")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid LOG_LEVEL %q (use debug, info, warn or error)", c.Log.Level)
	}
	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHEDULER_INTERVAL must be positive, got %s", c.Scheduler.Interval)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getInt(key string, fallback int, errs *[]error) int {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not an integer", key, v))
		return fallback
	}
	return n
}

func getBool(key string, fallback bool, errs *[]error) bool {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a boolean", key, v))
		return fallback
	}
	return b
}

func getDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %q is not a duration", key, v))
		return fallback
	}
	return d
}

func getList(key string, fallback []string) []string {
	v := getEnv(key, "")
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
