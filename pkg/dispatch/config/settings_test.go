package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/config"
)

func TestSettingsFrom_Defaults(t *testing.T) {
	s, err := config.SettingsFrom(config.New(nil))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultSettings(), s)
}

func TestSettingsFrom_Overrides(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
async_processing: false
max_concurrent_handlers: 4
retry_attempts: 5
retry_delay: 50ms
retry_backoff: exponential
max_retry_delay: 2s
handler_timeout: 3
history_capacity: 100
critical_event_types: [assessment.completed, level.achieved]
breaker_failures: 5
breaker_cooldown: 1m
dead_letter_path: ":memory:"
`))
	require.NoError(t, err)

	s, err := config.SettingsFrom(cfg)
	require.NoError(t, err)

	assert.False(t, s.AsyncProcessing)
	assert.Equal(t, 4, s.MaxConcurrentHandlers)
	assert.Equal(t, 5, s.RetryAttempts)
	assert.Equal(t, 50*time.Millisecond, s.RetryDelay)
	assert.Equal(t, "exponential", s.RetryBackoff)
	assert.Equal(t, 2*time.Second, s.MaxRetryDelay)
	assert.Equal(t, 3*time.Second, s.HandlerTimeout)
	assert.Equal(t, 100, s.HistoryCapacity)
	assert.Equal(t, []string{"assessment.completed", "level.achieved"}, s.CriticalEventTypes)
	assert.Equal(t, 5, s.BreakerFailures)
	assert.Equal(t, time.Minute, s.BreakerCooldown)
	assert.Equal(t, ":memory:", s.DeadLetterPath)
}

func TestSettingsFrom_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"zero concurrency", map[string]any{"max_concurrent_handlers": 0}, "max_concurrent_handlers"},
		{"zero attempts", map[string]any{"retry_attempts": 0}, "retry_attempts"},
		{"negative delay", map[string]any{"retry_delay": "-1s"}, "retry_delay"},
		{"zero history", map[string]any{"history_capacity": 0}, "history_capacity"},
		{"negative breaker", map[string]any{"breaker_failures": -1}, "breaker_failures"},
		{"unknown backoff", map[string]any{"retry_backoff": "fibonacci"}, "retry_backoff"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.SettingsFrom(config.New(tt.data))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestLoadSettings(t *testing.T) {
	dir := t.TempDir()

	t.Run("dispatch section", func(t *testing.T) {
		path := filepath.Join(dir, "app.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
service: assessments
dispatch:
  max_concurrent_handlers: 2
  retry_delay: 10ms
`), 0o600))

		s, err := config.LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, 2, s.MaxConcurrentHandlers)
		assert.Equal(t, 10*time.Millisecond, s.RetryDelay)
		assert.Equal(t, 3, s.RetryAttempts)
	})

	t.Run("top level", func(t *testing.T) {
		path := filepath.Join(dir, "flat.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"retry_attempts": 1}`), 0o600))

		s, err := config.LoadSettings(path)
		require.NoError(t, err)
		assert.Equal(t, 1, s.RetryAttempts)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := config.LoadSettings(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})
}
