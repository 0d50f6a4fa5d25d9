package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdf/welfare-engine/config"
)

var keys = []string{
	"PORT", "DB_PATH", "LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB", "LOG_MAX_BACKUPS",
	"LOG_MAX_AGE_DAYS", "LOG_CONSOLE", "SCHEDULER_ENABLED", "SCHEDULER_INTERVAL", "CORS_ORIGINS",
}

// clearEnv unsets every variable Load reads; t.Setenv restores them afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func missingEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "absent.env")
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "welfare.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Log.Console)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, time.Hour, cfg.Scheduler.Interval)
	assert.NotEmpty(t, cfg.CORSOrigins)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("SCHEDULER_INTERVAL", "15m")
	t.Setenv("CORS_ORIGINS", " https://fund.example.org , ,https://admin.example.org")

	cfg, err := config.Load(missingEnvFile(t))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, []string{"https://fund.example.org", "https://admin.example.org"}, cfg.CORSOrigins)
}

func TestLoad_DotEnvDoesNotOverrideProcess(t *testing.T) {
	// GIVEN: a .env file with PORT and DB_PATH, and PORT already set
	// WHEN: Load reads the file
	// THEN: DB_PATH comes from the file, PORT from the process
	clearEnv(t)
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7000\nDB_PATH=/var/lib/welfare.db\n"), 0o600))
	t.Setenv("PORT", "9000")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/var/lib/welfare.db", cfg.DBPath)
}

func TestLoad_MalformedValuesAreJoined(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "eighty")
	t.Setenv("SCHEDULER_ENABLED", "maybe")

	_, err := config.Load(missingEnvFile(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "SCHEDULER_ENABLED")
}

func TestValidate(t *testing.T) {
	valid := func() config.Config {
		return config.Config{
			Port:      8080,
			DBPath:    ":memory:",
			Log:       config.LogConfig{Level: "info"},
			Scheduler: config.SchedulerConfig{Enabled: true, Interval: time.Minute},
		}
	}
	base := valid()
	require.NoError(t, base.Validate())

	tests := map[string]func(*config.Config){
		"port out of range": func(c *config.Config) { c.Port = 70000 },
		"empty db path":     func(c *config.Config) { c.DBPath = "" },
		"unknown log level": func(c *config.Config) { c.Log.Level = "verbose" },
		"zero interval":     func(c *config.Config) { c.Scheduler.Interval = 0 },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := valid()
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}

	disabled := valid()
	disabled.Scheduler = config.SchedulerConfig{Enabled: false}
	assert.NoError(t, disabled.Validate(), "interval is ignored when the sweep is off")
}
