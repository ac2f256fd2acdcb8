package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements MetricsRecorder with Prometheus collectors.
type PrometheusRecorder struct {
	// PublishesTotal counts Publish calls by event type and result.
	PublishesTotal *prometheus.CounterVec

	// PublishDuration is the time to dispatch one event.
	PublishDuration *prometheus.HistogramVec

	// DeliveriesTotal counts handler deliveries by handler and status.
	DeliveriesTotal *prometheus.CounterVec

	// DeliveryDuration is the time one handler took, retries included.
	DeliveryDuration *prometheus.HistogramVec

	// RetriesTotal counts extra attempts spent on retries.
	RetriesTotal *prometheus.CounterVec

	// DeadLettersTotal counts deliveries written to the dead-letter store.
	DeadLettersTotal *prometheus.CounterVec
}

// Compile-time interface check.
var _ MetricsRecorder = (*PrometheusRecorder)(nil)

// NewPrometheusRecorder creates and registers collectors on reg.
// A nil reg registers on prometheus.DefaultRegisterer.
func NewPrometheusRecorder(namespace string, reg prometheus.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	buckets := []float64{.001, .005, .01, .05, .1, .5, 1, 2, 5, 10}

	return &PrometheusRecorder{
		PublishesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_published_total",
				Help:      "Total number of Publish calls",
			},
			[]string{"event_type", "success"},
		),

		PublishDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_publish_duration_seconds",
				Help:      "Time to dispatch one event to all handlers",
				Buckets:   buckets,
			},
			[]string{"event_type"},
		),

		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_deliveries_total",
				Help:      "Total number of handler deliveries",
			},
			[]string{"event_type", "handler", "status"},
		),

		DeliveryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_delivery_duration_seconds",
				Help:      "Time spent delivering to one handler, retries included",
				Buckets:   buckets,
			},
			[]string{"handler"},
		),

		RetriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_retries_total",
				Help:      "Total number of retry attempts",
			},
			[]string{"handler"},
		),

		DeadLettersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dead_letters_total",
				Help:      "Total number of deliveries written to the dead-letter store",
			},
			[]string{"event_type", "handler"},
		),
	}
}

// RecordPublish implements MetricsRecorder.
func (p *PrometheusRecorder) RecordPublish(_ context.Context, eventType string, success bool, duration time.Duration) {
	p.PublishesTotal.WithLabelValues(eventType, strconv.FormatBool(success)).Inc()
	p.PublishDuration.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordHandler implements MetricsRecorder.
func (p *PrometheusRecorder) RecordHandler(_ context.Context, eventType, handler string, duration time.Duration, attempts int, err error) {
	status := "success"
	if err != nil {
		status = "failure"
	}
	p.DeliveriesTotal.WithLabelValues(eventType, handler, status).Inc()
	p.DeliveryDuration.WithLabelValues(handler).Observe(duration.Seconds())
	if attempts > 1 {
		p.RetriesTotal.WithLabelValues(handler).Add(float64(attempts - 1))
	}
}

// RecordDeadLetter implements MetricsRecorder.
func (p *PrometheusRecorder) RecordDeadLetter(_ context.Context, eventType, handler string) {
	p.DeadLettersTotal.WithLabelValues(eventType, handler).Inc()
}
