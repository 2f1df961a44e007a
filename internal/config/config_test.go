package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 30, cfg.Purge.UnactivatedExpirationDays)
	assert.Equal(t, 30, cfg.Purge.ActivatedExpirationDays)
	assert.Equal(t, 7, cfg.Purge.ArchivedExpirationDays)
	assert.Equal(t, 90, cfg.Purge.ManuallyArchivedExpirationDays)
	assert.Equal(t, 7, cfg.Purge.ReminderDaysEarlier)
	assert.Equal(t, 2, cfg.Purge.ReminderIntervalDays)
	assert.False(t, cfg.DemoMode)
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/config.yaml")
	require.NoError(t, err)

	// Falls back to defaults
	assert.Equal(t, 30, cfg.Purge.UnactivatedExpirationDays)
}

func TestLoadConfigOverrides(t *testing.T) {
	content := `
purge:
  unactivated_listings_expiration: 14
  archived_listings_expiration: 10
  daily_run_enabled: true
  daily_run_time: "04:30"
database:
  type: mysql
  mysql:
    host: db.internal
    port: 3307
notify:
  gateway_url: http://mailgw:8025/send
demo_mode: true
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Purge.UnactivatedExpirationDays)
	assert.Equal(t, 10, cfg.Purge.ArchivedExpirationDays)
	assert.True(t, cfg.Purge.DailyRunEnabled)
	assert.Equal(t, "04:30", cfg.Purge.DailyRunTime)
	assert.Equal(t, "mysql", cfg.Database.Type)
	assert.Equal(t, "db.internal", cfg.Database.MySQL.Host)
	assert.Equal(t, 3307, cfg.Database.MySQL.Port)
	assert.Equal(t, "http://mailgw:8025/send", cfg.Notify.GatewayURL)
	assert.True(t, cfg.DemoMode)

	// Untouched values keep their defaults
	assert.Equal(t, 90, cfg.Purge.ManuallyArchivedExpirationDays)
	assert.Equal(t, 500, cfg.Notify.SendsPerHour)
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("purge: [broken"), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}
