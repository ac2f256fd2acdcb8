package observability

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records dispatcher metrics.
// Use NewMetricsRecorder() for OTel, NewPrometheusRecorder() for Prometheus,
// or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordPublish records one Publish call.
	RecordPublish(ctx context.Context, eventType string, success bool, duration time.Duration)

	// RecordHandler records one handler delivery (all attempts together).
	RecordHandler(ctx context.Context, eventType, handler string, duration time.Duration, attempts int, err error)

	// RecordDeadLetter records a delivery written to the dead-letter store.
	RecordDeadLetter(ctx context.Context, eventType, handler string)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	publishes      metric.Int64Counter
	publishLatency metric.Float64Histogram
	deliveries     metric.Int64Counter
	deliveryErrors metric.Int64Counter
	handlerLatency metric.Float64Histogram
	retries        metric.Int64Counter
	deadLetters    metric.Int64Counter
}

// newOtelMetrics creates the instruments on the given meter provider.
func newOtelMetrics(provider metric.MeterProvider) (*otelMetrics, error) {
	meter := provider.Meter("eventdispatch")

	publishes, err := meter.Int64Counter("eventdispatch.publishes",
		metric.WithDescription("Number of Publish calls"),
	)
	if err != nil {
		return nil, err
	}

	publishLatency, err := meter.Float64Histogram("eventdispatch.publish.latency_ms",
		metric.WithDescription("Publish latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	deliveries, err := meter.Int64Counter("eventdispatch.handler.deliveries",
		metric.WithDescription("Number of handler deliveries"),
	)
	if err != nil {
		return nil, err
	}

	deliveryErrors, err := meter.Int64Counter("eventdispatch.handler.errors",
		metric.WithDescription("Number of handler deliveries that failed after retries"),
	)
	if err != nil {
		return nil, err
	}

	handlerLatency, err := meter.Float64Histogram("eventdispatch.handler.latency_ms",
		metric.WithDescription("Handler delivery latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	retries, err := meter.Int64Counter("eventdispatch.handler.retries",
		metric.WithDescription("Number of extra attempts spent on retries"),
	)
	if err != nil {
		return nil, err
	}

	deadLetters, err := meter.Int64Counter("eventdispatch.dead_letters",
		metric.WithDescription("Number of deliveries written to the dead-letter store"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		publishes:      publishes,
		publishLatency: publishLatency,
		deliveries:     deliveries,
		deliveryErrors: deliveryErrors,
		handlerLatency: handlerLatency,
		retries:        retries,
		deadLetters:    deadLetters,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder backed by the global OTel
// meter provider. If initialization fails, returns a no-op recorder.
//
// Configure the provider before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	return NewMetricsRecorderWithProvider(otel.GetMeterProvider())
}

// NewMetricsRecorderWithProvider is NewMetricsRecorder with an explicit provider.
func NewMetricsRecorderWithProvider(provider metric.MeterProvider) MetricsRecorder {
	m, err := newOtelMetrics(provider)
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordPublish records a Publish call.
func (m *otelMetrics) RecordPublish(ctx context.Context, eventType string, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.Bool("success", success),
	)
	m.publishes.Add(ctx, 1, attrs)
	m.publishLatency.Record(ctx, durationMs(duration), attrs)
}

// RecordHandler records a handler delivery.
func (m *otelMetrics) RecordHandler(ctx context.Context, eventType, handler string, duration time.Duration, attempts int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("handler", handler),
	)
	m.deliveries.Add(ctx, 1, attrs)
	m.handlerLatency.Record(ctx, durationMs(duration), attrs)

	if attempts > 1 {
		m.retries.Add(ctx, int64(attempts-1), attrs)
	}
	if err != nil {
		m.deliveryErrors.Add(ctx, 1, attrs)
	}
}

// RecordDeadLetter records a dead-letter write.
func (m *otelMetrics) RecordDeadLetter(ctx context.Context, eventType, handler string) {
	m.deadLetters.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event_type", eventType),
		attribute.String("handler", handler),
	))
}

func durationMs(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
