package dispatch

import (
	"log/slog"
	"time"

	"github.com/randalmurphal/eventdispatch/pkg/dispatch/config"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/deadletter"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/history"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/observability"
	"github.com/randalmurphal/eventdispatch/pkg/dispatch/retry"
)

// Config holds Publisher configuration. Build it with Options.
type Config struct {
	Logger  *slog.Logger
	Metrics observability.MetricsRecorder
	Spans   observability.SpanManager

	// AsyncProcessing runs handlers of one event concurrently, in batches.
	// Default: true
	AsyncProcessing bool

	// MaxConcurrentHandlers is the batch size in async mode.
	// Default: 10
	MaxConcurrentHandlers int

	// Retry is the default policy; handlers may override the attempt budget.
	// Default: retry.Default
	Retry retry.Config

	// HistoryCapacity bounds the audit ring buffer.
	// Default: history.DefaultCapacity
	HistoryCapacity int

	// HandlerTimeout bounds each attempt. Zero means no timeout.
	HandlerTimeout time.Duration

	// CriticalEventTypes escalate handler failures to the producer.
	CriticalEventTypes []string

	// DeadLetters receives deliveries that exhausted their attempts.
	DeadLetters deadletter.Store

	// BreakerFailures trips a handler's circuit after this many
	// consecutive failed deliveries. Zero disables breakers.
	BreakerFailures int

	// BreakerCooldown is how long a tripped circuit stays open.
	// Default: 30s
	BreakerCooldown time.Duration
}

func defaultConfig() Config {
	return Config{
		Logger:                slog.Default(),
		Metrics:               observability.NoopMetrics{},
		Spans:                 observability.NoopSpanManager{},
		AsyncProcessing:       true,
		MaxConcurrentHandlers: 10,
		Retry:                 retry.Default,
		HistoryCapacity:       history.DefaultCapacity,
		BreakerCooldown:       30 * time.Second,
	}
}

// Option configures a Publisher.
type Option func(*Config)

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithMetrics sets the metrics recorder.
//
// Example:
//
//	pub := dispatch.New(dispatch.WithMetrics(observability.NewMetricsRecorder()))
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Config) {
		if m != nil {
			c.Metrics = m
		}
	}
}

// WithSpanManager sets the tracer used for publish and handler spans.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *Config) {
		if s != nil {
			c.Spans = s
		}
	}
}

// WithAsyncProcessing toggles concurrent fan-out.
func WithAsyncProcessing(enabled bool) Option {
	return func(c *Config) {
		c.AsyncProcessing = enabled
	}
}

// WithMaxConcurrentHandlers sets the async batch size.
// Non-positive values are ignored.
func WithMaxConcurrentHandlers(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxConcurrentHandlers = n
		}
	}
}

// WithRetry sets the default retry policy.
//
// Example:
//
//	dispatch.WithRetry(retry.Config{MaxAttempts: 5, Delay: 200 * time.Millisecond})
func WithRetry(cfg retry.Config) Option {
	return func(c *Config) {
		if cfg.MaxAttempts < 1 {
			cfg.MaxAttempts = 1
		}
		c.Retry = cfg
	}
}

// WithHistoryCapacity bounds the audit log.
func WithHistoryCapacity(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.HistoryCapacity = n
		}
	}
}

// WithHandlerTimeout bounds each handler attempt.
// The timeout cancels the handler's context; handlers must observe it.
func WithHandlerTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.HandlerTimeout = d
	}
}

// WithCriticalEventTypes marks event types whose handler failures make
// Publish return an error.
func WithCriticalEventTypes(types ...string) Option {
	return func(c *Config) {
		c.CriticalEventTypes = append(c.CriticalEventTypes, types...)
	}
}

// WithDeadLetterStore enables dead-lettering of failed deliveries.
// The Publisher does not close the store.
func WithDeadLetterStore(store deadletter.Store) Option {
	return func(c *Config) {
		c.DeadLetters = store
	}
}

// WithCircuitBreaker enables a per-handler circuit breaker.
func WithCircuitBreaker(failures int, cooldown time.Duration) Option {
	return func(c *Config) {
		c.BreakerFailures = failures
		if cooldown > 0 {
			c.BreakerCooldown = cooldown
		}
	}
}

// WithSettings applies settings loaded from a file.
// DeadLetterPath is not opened here; pass the store with WithDeadLetterStore.
func WithSettings(s config.Settings) Option {
	return func(c *Config) {
		backoff, err := retry.ParseBackoff(s.RetryBackoff)
		if err != nil {
			backoff = retry.BackoffLinear
		}

		c.AsyncProcessing = s.AsyncProcessing
		if s.MaxConcurrentHandlers > 0 {
			c.MaxConcurrentHandlers = s.MaxConcurrentHandlers
		}
		c.Retry = retry.Config{
			MaxAttempts: max(s.RetryAttempts, 1),
			Delay:       s.RetryDelay,
			Backoff:     backoff,
			MaxDelay:    s.MaxRetryDelay,
		}
		if s.HistoryCapacity > 0 {
			c.HistoryCapacity = s.HistoryCapacity
		}
		c.HandlerTimeout = s.HandlerTimeout
		c.CriticalEventTypes = append(c.CriticalEventTypes, s.CriticalEventTypes...)
		c.BreakerFailures = s.BreakerFailures
		if s.BreakerCooldown > 0 {
			c.BreakerCooldown = s.BreakerCooldown
		}
	}
}
