package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("COACH_API_URL", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8001", cfg.CoachAPI.BaseURL)
	assert.Equal(t, 1, cfg.CoachAPI.MaxAttempts)
	assert.Equal(t, "tr-TR", cfg.Report.Locale)
	assert.Equal(t, "0 20 * * 0", cfg.Scheduler.WeeklyCron)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Empty(t, cfg.Database.URL)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("COACH_API_URL", "https://coach.example.com/")
	t.Setenv("COACH_API_MAX_ATTEMPTS", "3")
	t.Setenv("REPORT_CACHE_TTL", "2m")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_USER", "coach")
	t.Setenv("DB_PASSWORD", "secret")
	t.Setenv("HTTP_API_KEYS", " key-a, ,key-b ")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "https://coach.example.com", cfg.CoachAPI.BaseURL)
	assert.Equal(t, 3, cfg.CoachAPI.MaxAttempts)
	assert.Equal(t, 2*time.Minute, cfg.Report.CacheTTL)
	assert.Equal(t, "postgres://coach:secret@db:5432/postgres?sslmode=disable", cfg.Database.URL)
	assert.Equal(t, []string{"key-a", "key-b"}, cfg.HTTP.APIKeys)
	assert.Empty(t, cfg.HTTP.AllowedOrigins)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("REPORT_LOCALE=en-US\nHTTP_PORT=9000\n"), 0o600))
	t.Setenv("HTTP_PORT", "7000")
	t.Setenv("REPORT_LOCALE", "")
	os.Unsetenv("REPORT_LOCALE")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "en-US", cfg.Report.Locale)
	assert.Equal(t, 7000, cfg.HTTP.Port)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"bad url", func(c *Config) { c.CoachAPI.BaseURL = "coach.example.com" }, "COACH_API_URL"},
		{"attempts", func(c *Config) { c.CoachAPI.MaxAttempts = 0 }, "COACH_API_MAX_ATTEMPTS"},
		{"port", func(c *Config) { c.HTTP.Port = 70000 }, "HTTP_PORT"},
		{"body limit", func(c *Config) { c.HTTP.MaxBodyBytes = 0 }, "HTTP_MAX_BODY_BYTES"},
		{"cron", func(c *Config) { c.Scheduler.Enabled = true; c.Scheduler.WeeklyCron = "@weekly" }, "SCHEDULER_WEEKLY_CRON"},
		{"log format", func(c *Config) { c.Observability.LogFormat = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				CoachAPI:      CoachAPIConfig{BaseURL: "http://localhost:8001", MaxAttempts: 1},
				HTTP:          HTTPConfig{Port: 8080, MaxBodyBytes: 1 << 20},
				Scheduler:     SchedulerConfig{WeeklyCron: "0 20 * * 0", MaxConcurrent: 1},
				Observability: ObservabilityConfig{LogFormat: "json"},
			}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
