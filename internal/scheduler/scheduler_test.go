package scheduler

import (
	"testing"

	"classifieds-portal/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestParseDailyRunTime(t *testing.T) {
	s := NewScheduler(nil, config.DefaultConfig())

	assert.Equal(t, "0 3 * * *", s.parseDailyRunTime("03:00"))
	assert.Equal(t, "30 14 * * *", s.parseDailyRunTime("14:30"))
	assert.Equal(t, "5 0 * * *", s.parseDailyRunTime("00:05"))

	// Malformed input falls back to the default
	assert.Equal(t, "0 3 * * *", s.parseDailyRunTime("midnight"))
	assert.Equal(t, "0 3 * * *", s.parseDailyRunTime(""))
}

func TestStartDisabled(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Purge.DailyRunEnabled = false

	s := NewScheduler(nil, cfg)
	assert.NoError(t, s.Start())
	assert.False(t, s.isRunning)
	s.Stop()
}
