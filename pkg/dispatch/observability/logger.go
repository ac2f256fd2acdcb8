// Package observability provides logging, metrics, and tracing for the
// dispatcher.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry or Prometheus
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds event context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, evt.ID(), evt.Type())
//	enriched.Info("dispatching") // includes event_id, event_type
func EnrichLogger(logger *slog.Logger, eventID, eventType string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
	)
}

// LogPublishStart logs the start of a publish cycle.
func LogPublishStart(logger *slog.Logger, eventID, eventType string, handlers int) {
	if logger == nil {
		return
	}
	logger.Debug("publishing event",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.Int("handlers", handlers),
	)
}

// LogPublishComplete logs a finished publish cycle.
func LogPublishComplete(logger *slog.Logger, eventID, eventType string, durationMs float64, failed int) {
	if logger == nil {
		return
	}
	logger.Info("event published",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.Float64("duration_ms", durationMs),
		slog.Int("failed_handlers", failed),
	)
}

// LogPublishError logs a publish call that returned an error.
func LogPublishError(logger *slog.Logger, eventID, eventType string, err error) {
	if logger == nil {
		return
	}
	logger.Error("event publish failed",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// LogNoHandlers logs an event nobody subscribed to. Not an error.
func LogNoHandlers(logger *slog.Logger, eventID, eventType string) {
	if logger == nil {
		return
	}
	logger.Warn("no handlers registered for event",
		slog.String("event_id", eventID),
		slog.String("event_type", eventType),
	)
}

// LogHandlerRetry logs a failed attempt that will be retried.
func LogHandlerRetry(logger *slog.Logger, handler string, attempt int, delay time.Duration, err error) {
	if logger == nil {
		return
	}
	logger.Warn("handler attempt failed, retrying",
		slog.String("handler", handler),
		slog.Int("attempt", attempt),
		slog.Int64("delay_ms", delay.Milliseconds()),
		slog.String("error", err.Error()),
	)
}

// LogHandlerFailure logs a handler that failed after all attempts.
func LogHandlerFailure(logger *slog.Logger, eventID, handler string, attempts int, err error) {
	if logger == nil {
		return
	}
	logger.Error("handler failed",
		slog.String("event_id", eventID),
		slog.String("handler", handler),
		slog.Int("attempts", attempts),
		slog.String("error", err.Error()),
	)
}

// LogDeadLetterError logs a failure to record a dead letter (non-fatal).
func LogDeadLetterError(logger *slog.Logger, eventID, handler string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("dead letter not recorded",
		slog.String("event_id", eventID),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// LogReplayFailure logs a replayed event that a target handler rejected.
func LogReplayFailure(logger *slog.Logger, eventID, handler string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("replay delivery failed",
		slog.String("event_id", eventID),
		slog.String("handler", handler),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time in milliseconds.
func TimedOperation() func() float64 {
	start := time.Now()
	return func() float64 {
		return float64(time.Since(start).Microseconds()) / 1000
	}
}
