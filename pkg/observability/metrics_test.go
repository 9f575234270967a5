package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
)

func newTestMeter(t *testing.T) (*sdkmetric.ManualReader, *observability.Metrics) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	t.Cleanup(func() { require.NoError(t, mp.Shutdown(context.Background())) })

	metrics, err := observability.NewMetrics(mp.Meter("cascadedp-test"))
	require.NoError(t, err)

	return reader, metrics
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}

	return nil
}

func TestMetricsRecordStep(t *testing.T) {
	t.Parallel()

	reader, metrics := newTestMeter(t)

	metrics.RecordStep(context.Background(), 5*time.Millisecond)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	assert.NotNil(t, findMetric(rm, "cascadedp.steps.total"))
	assert.NotNil(t, findMetric(rm, "cascadedp.step.duration.seconds"))
}

func TestMetricsRecordDispatchTracksFailures(t *testing.T) {
	t.Parallel()

	reader, metrics := newTestMeter(t)

	metrics.RecordDispatch(context.Background(), "watcher", "tick", "ok")
	metrics.RecordDispatch(context.Background(), "watcher", "tick", "failure")

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	dispatch := findMetric(rm, "cascadedp.agent.dispatch.total")
	require.NotNil(t, dispatch)

	failures := findMetric(rm, "cascadedp.agent.dispatch.failures.total")
	require.NotNil(t, failures)

	sum, ok := failures.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(1), sum.DataPoints[0].Value)
}

func TestMetricsAdjustStoreSize(t *testing.T) {
	t.Parallel()

	reader, metrics := newTestMeter(t)

	metrics.AdjustStoreSize(context.Background(), "public", 3)
	metrics.AdjustStoreSize(context.Background(), "public", -1)

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	size := findMetric(rm, "cascadedp.store.size")
	require.NotNil(t, size)

	sum, ok := size.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(2), sum.DataPoints[0].Value)
}

func TestMetricsNilReceiverIsNoop(t *testing.T) {
	t.Parallel()

	var metrics *observability.Metrics

	assert.NotPanics(t, func() {
		metrics.RecordStep(context.Background(), time.Second)
		metrics.RecordDispatch(context.Background(), "a", "b", "ok")
		metrics.AdjustStoreSize(context.Background(), "x", 1)
	})
}
