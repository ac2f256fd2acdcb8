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

func TestConfig_String(t *testing.T) {
	tests := []struct {
		name       string
		data       map[string]any
		key        string
		defaultVal string
		want       string
	}{
		{"existing", map[string]any{"k": "v"}, "k", "d", "v"},
		{"missing", map[string]any{}, "k", "d", "d"},
		{"wrong type", map[string]any{"k": 1}, "k", "d", "d"},
		{"nil map", nil, "k", "d", "d"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, config.New(tt.data).String(tt.key, tt.defaultVal))
		})
	}
}

func TestConfig_Duration(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want time.Duration
	}{
		{"string", "250ms", 250 * time.Millisecond},
		{"invalid string", "soon", time.Second},
		{"int seconds", 2, 2 * time.Second},
		{"int64 seconds", int64(3), 3 * time.Second},
		{"float seconds", 1.5, 1500 * time.Millisecond},
		{"duration", 5 * time.Minute, 5 * time.Minute},
		{"bool", true, time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"k": tt.val})
			assert.Equal(t, tt.want, cfg.Duration("k", time.Second))
		})
	}
}

func TestConfig_Int(t *testing.T) {
	tests := []struct {
		name string
		val  any
		want int
	}{
		{"int", 4, 4},
		{"int64", int64(5), 5},
		{"whole float", float64(6), 6},
		{"fractional float", 6.5, -1},
		{"string", "7", -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.New(map[string]any{"k": tt.val})
			assert.Equal(t, tt.want, cfg.Int("k", -1))
		})
	}
}

func TestConfig_BoolAndSlices(t *testing.T) {
	cfg := config.New(map[string]any{
		"on":     true,
		"types":  []any{"a", "b"},
		"typed":  []string{"c"},
		"mixed":  []any{"a", 1},
		"nested": map[string]any{"x": "y"},
	})

	assert.True(t, cfg.Bool("on", false))
	assert.True(t, cfg.Bool("missing", true))
	assert.Equal(t, []string{"a", "b"}, cfg.StringSlice("types", nil))
	assert.Equal(t, []string{"c"}, cfg.StringSlice("typed", nil))
	assert.Equal(t, []string{"d"}, cfg.StringSlice("mixed", []string{"d"}))
	assert.Equal(t, "y", cfg.Section("nested").String("x", ""))
	assert.False(t, cfg.Section("on").Has("x"))
	assert.True(t, cfg.Has("on"))
	assert.Len(t, cfg.Raw(), 5)
}

func TestFromYAML(t *testing.T) {
	cfg, err := config.FromYAML([]byte(`
retry_delay: 200ms
retry_attempts: 5
critical_event_types:
  - assessment.completed
`))
	require.NoError(t, err)

	assert.Equal(t, 200*time.Millisecond, cfg.Duration("retry_delay", 0))
	assert.Equal(t, 5, cfg.Int("retry_attempts", 0))
	assert.Equal(t, []string{"assessment.completed"}, cfg.StringSlice("critical_event_types", nil))

	_, err = config.FromYAML([]byte("a: [unclosed"))
	assert.Error(t, err)
}

func TestFromJSON(t *testing.T) {
	cfg, err := config.FromJSON([]byte(`{"max_concurrent_handlers": 4, "async_processing": false}`))
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Int("max_concurrent_handlers", 0))
	assert.False(t, cfg.Bool("async_processing", true))

	_, err = config.FromJSON([]byte(`{`))
	assert.Error(t, err)
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "dispatch.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("retry_attempts: 2\n"), 0o600))
	cfg, err := config.FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Int("retry_attempts", 0))

	jsonPath := filepath.Join(dir, "dispatch.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"retry_attempts": 4}`), 0o600))
	cfg, err = config.FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Int("retry_attempts", 0))

	tomlPath := filepath.Join(dir, "dispatch.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o600))
	_, err = config.FromFile(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("DISPATCH_DLQ", "/var/lib/dlq.db")
	t.Setenv("DISPATCH_EMPTY", "")

	tests := []struct {
		in   string
		want string
	}{
		{"path: ${DISPATCH_DLQ}", "path: /var/lib/dlq.db"},
		{"path: $DISPATCH_DLQ", "path: /var/lib/dlq.db"},
		{"path: ${DISPATCH_UNSET_X:-:memory:}", "path: :memory:"},
		{"path: ${DISPATCH_EMPTY:-fallback}", "path: fallback"},
		{"path: ${DISPATCH_UNSET_X}", "path: "},
		{"no refs", "no refs"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, config.ExpandEnv(tt.in))
		})
	}
}

func TestFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DISPATCH_ATTEMPTS", "7")
	path := filepath.Join(t.TempDir(), "dispatch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry_attempts: ${DISPATCH_ATTEMPTS}\nretry_delay: ${DISPATCH_DELAY:-5ms}\n"), 0o600))

	cfg, err := config.FromFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Int("retry_attempts", 0))
	assert.Equal(t, 5*time.Millisecond, cfg.Duration("retry_delay", 0))
}
