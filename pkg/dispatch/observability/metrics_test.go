package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// setupMetricsTest creates a recorder on a manual-reader meter provider.
func setupMetricsTest(t *testing.T) (MetricsRecorder, *sdkmetric.ManualReader) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down meter provider: %v", err)
		}
	})
	return NewMetricsRecorderWithProvider(provider), reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) *metricdata.ResourceMetrics {
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	return &rm
}

func findMetric(rm *metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

// sumFor adds the data points of an int64 sum carrying attr.
func sumFor(t *testing.T, m *metricdata.Metrics, attr attribute.KeyValue) int64 {
	require.NotNil(t, m)
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "expected Sum[int64], got %T", m.Data)

	var total int64
	for _, dp := range sum.DataPoints {
		if v, found := dp.Attributes.Value(attr.Key); found && v.Emit() == attr.Value.Emit() {
			total += dp.Value
		}
	}
	return total
}

func TestNewMetricsRecorder_GlobalProvider(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	original := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	defer func() {
		otel.SetMeterProvider(original)
		_ = provider.Shutdown(context.Background())
	}()

	m := NewMetricsRecorder()
	require.NotNil(t, m)
	_, isNoop := m.(NoopMetrics)
	assert.False(t, isNoop)

	m.RecordPublish(context.Background(), "x", true, time.Millisecond)
	rm := collectMetrics(t, reader)
	assert.NotNil(t, findMetric(rm, "eventdispatch.publishes"))
}

func TestRecordPublish(t *testing.T) {
	m, reader := setupMetricsTest(t)
	ctx := context.Background()

	m.RecordPublish(ctx, "assessment.completed", true, 5*time.Millisecond)
	m.RecordPublish(ctx, "assessment.completed", true, 7*time.Millisecond)
	m.RecordPublish(ctx, "assessment.completed", false, 0)

	rm := collectMetrics(t, reader)
	publishes := findMetric(rm, "eventdispatch.publishes")
	assert.Equal(t, int64(2), sumFor(t, publishes, attribute.Bool("success", true)))
	assert.Equal(t, int64(1), sumFor(t, publishes, attribute.Bool("success", false)))

	latency := findMetric(rm, "eventdispatch.publish.latency_ms")
	require.NotNil(t, latency)
	hist, ok := latency.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var count uint64
	for _, dp := range hist.DataPoints {
		count += dp.Count
	}
	assert.Equal(t, uint64(3), count)
}

func TestRecordHandler(t *testing.T) {
	m, reader := setupMetricsTest(t)
	ctx := context.Background()

	m.RecordHandler(ctx, "x", "audit", time.Millisecond, 1, nil)
	m.RecordHandler(ctx, "x", "notify", time.Millisecond, 3, errors.New("boom"))

	rm := collectMetrics(t, reader)
	deliveries := findMetric(rm, "eventdispatch.handler.deliveries")
	assert.Equal(t, int64(1), sumFor(t, deliveries, attribute.String("handler", "audit")))
	assert.Equal(t, int64(1), sumFor(t, deliveries, attribute.String("handler", "notify")))

	errs := findMetric(rm, "eventdispatch.handler.errors")
	assert.Equal(t, int64(1), sumFor(t, errs, attribute.String("handler", "notify")))
	assert.Zero(t, sumFor(t, errs, attribute.String("handler", "audit")))

	retries := findMetric(rm, "eventdispatch.handler.retries")
	assert.Equal(t, int64(2), sumFor(t, retries, attribute.String("handler", "notify")))

	assert.NotNil(t, findMetric(rm, "eventdispatch.handler.latency_ms"))
}

func TestRecordDeadLetter(t *testing.T) {
	m, reader := setupMetricsTest(t)

	m.RecordDeadLetter(context.Background(), "x", "audit")

	rm := collectMetrics(t, reader)
	dl := findMetric(rm, "eventdispatch.dead_letters")
	assert.Equal(t, int64(1), sumFor(t, dl, attribute.String("handler", "audit")))
}

func TestNoopMetrics(t *testing.T) {
	var m MetricsRecorder = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordPublish(context.Background(), "x", true, time.Second)
		m.RecordHandler(context.Background(), "x", "h", time.Second, 2, errors.New("x"))
		m.RecordDeadLetter(context.Background(), "x", "h")
	})
}
