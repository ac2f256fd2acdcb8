package config

import (
	"fmt"
	"time"
)

// Settings are the dispatcher knobs that can come from a file.
type Settings struct {
	AsyncProcessing       bool
	MaxConcurrentHandlers int
	RetryAttempts         int
	RetryDelay            time.Duration
	RetryBackoff          string
	MaxRetryDelay         time.Duration
	HandlerTimeout        time.Duration
	HistoryCapacity       int
	CriticalEventTypes    []string
	BreakerFailures       int
	BreakerCooldown       time.Duration
	DeadLetterPath        string
}

// DefaultSettings mirrors the dispatcher defaults.
func DefaultSettings() Settings {
	return Settings{
		AsyncProcessing:       true,
		MaxConcurrentHandlers: 10,
		RetryAttempts:         3,
		RetryDelay:            1 * time.Second,
		RetryBackoff:          "linear",
		HistoryCapacity:       10000,
		BreakerCooldown:       30 * time.Second,
	}
}

// SettingsFrom reads Settings from c, keeping defaults for missing keys.
//
// Recognized keys:
//
//	async_processing: true
//	max_concurrent_handlers: 10
//	retry_attempts: 3
//	retry_delay: 1s
//	retry_backoff: linear        # linear | constant | exponential
//	max_retry_delay: 0
//	handler_timeout: 0
//	history_capacity: 10000
//	critical_event_types: [assessment.completed]
//	breaker_failures: 0          # 0 disables circuit breakers
//	breaker_cooldown: 30s
//	dead_letter_path: ""         # "", ":memory:" or a SQLite file
func SettingsFrom(c Config) (Settings, error) {
	d := DefaultSettings()
	s := Settings{
		AsyncProcessing:       c.Bool("async_processing", d.AsyncProcessing),
		MaxConcurrentHandlers: c.Int("max_concurrent_handlers", d.MaxConcurrentHandlers),
		RetryAttempts:         c.Int("retry_attempts", d.RetryAttempts),
		RetryDelay:            c.Duration("retry_delay", d.RetryDelay),
		RetryBackoff:          c.String("retry_backoff", d.RetryBackoff),
		MaxRetryDelay:         c.Duration("max_retry_delay", d.MaxRetryDelay),
		HandlerTimeout:        c.Duration("handler_timeout", d.HandlerTimeout),
		HistoryCapacity:       c.Int("history_capacity", d.HistoryCapacity),
		CriticalEventTypes:    c.StringSlice("critical_event_types", nil),
		BreakerFailures:       c.Int("breaker_failures", d.BreakerFailures),
		BreakerCooldown:       c.Duration("breaker_cooldown", d.BreakerCooldown),
		DeadLetterPath:        c.String("dead_letter_path", ""),
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// LoadSettings reads the "dispatch" section of a YAML or JSON file.
// A file without that section is read from its top level.
func LoadSettings(path string) (Settings, error) {
	c, err := FromFile(path)
	if err != nil {
		return Settings{}, err
	}
	if c.Has("dispatch") {
		c = c.Section("dispatch")
	}
	return SettingsFrom(c)
}

// Validate rejects values the dispatcher cannot run with.
func (s Settings) Validate() error {
	if s.MaxConcurrentHandlers < 1 {
		return fmt.Errorf("max_concurrent_handlers must be positive, got %d", s.MaxConcurrentHandlers)
	}
	if s.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be positive, got %d", s.RetryAttempts)
	}
	if s.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must not be negative, got %s", s.RetryDelay)
	}
	if s.HistoryCapacity < 1 {
		return fmt.Errorf("history_capacity must be positive, got %d", s.HistoryCapacity)
	}
	if s.BreakerFailures < 0 {
		return fmt.Errorf("breaker_failures must not be negative, got %d", s.BreakerFailures)
	}
	switch s.RetryBackoff {
	case "", "linear", "constant", "exponential":
	default:
		return fmt.Errorf("unknown retry_backoff %q", s.RetryBackoff)
	}
	return nil
}
