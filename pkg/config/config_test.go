package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("SUBTRACK_APP_ENV", "development")
	t.Setenv("SUBTRACK_FIREBASE_PROJECT_ID", "subtrack-dev")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.App.Port)
	assert.True(t, cfg.App.IsDev())
	assert.False(t, cfg.App.IsProd())
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, 6, cfg.Schedule.TrendMonths)
	assert.Equal(t, 24, cfg.Schedule.TrendMonthsMax)
	assert.Equal(t, 5*time.Minute, cfg.Schedule.SnapshotCacheTTL)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 10, cfg.Redis.PoolSize)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUBTRACK_APP_PORT", "9090")
	t.Setenv("SUBTRACK_SCHEDULE_TREND_MONTHS", "12")
	t.Setenv("SUBTRACK_CORS_ALLOWED_ORIGINS", "https://app.subtrack.dev,https://staging.subtrack.dev")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, 12, cfg.Schedule.TrendMonths)
	assert.Equal(t, []string{"https://app.subtrack.dev", "https://staging.subtrack.dev"}, cfg.CORS.AllowedOrigins)
}

func TestLoadRequiresAppEnv(t *testing.T) {
	t.Setenv("SUBTRACK_APP_ENV", "")
	t.Setenv("SUBTRACK_FIREBASE_PROJECT_ID", "subtrack-dev")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsConflictingCredentials(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SUBTRACK_FIREBASE_CREDENTIALS_FILE", "/tmp/creds.json")
	t.Setenv("SUBTRACK_FIREBASE_CREDENTIALS_JSON_BASE64", "e30=")

	_, err := Load()
	require.Error(t, err)
}
