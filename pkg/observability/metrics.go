package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricStepsTotal            = "cascadedp.steps.total"
	metricStepDuration          = "cascadedp.step.duration.seconds"
	metricDispatchTotal         = "cascadedp.agent.dispatch.total"
	metricDispatchFailuresTotal = "cascadedp.agent.dispatch.failures.total"
	metricStoreSize             = "cascadedp.store.size"

	attrAgent  = "agent"
	attrAction = "action"
	attrStatus = "status"

	statusFailure = "failure"
)

// stepDurationBucketBoundaries covers a sub-millisecond agent call up to a
// multi-second step that walks a large cascade.
var stepDurationBucketBoundaries = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// Metrics holds the OTel instruments tracking the step loop and agent
// dispatch across a CascadeDP process.
type Metrics struct {
	stepsTotal       metric.Int64Counter
	stepDuration     metric.Float64Histogram
	dispatchTotal    metric.Int64Counter
	dispatchFailures metric.Int64Counter
	storeSize        metric.Int64UpDownCounter
}

// NewMetrics creates CascadeDP's metric instruments from the given meter.
func NewMetrics(mt metric.Meter) (*Metrics, error) {
	steps, err := mt.Int64Counter(metricStepsTotal,
		metric.WithDescription("Total step-loop iterations driven by the root cascade"),
		metric.WithUnit("{step}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStepsTotal, err)
	}

	stepDur, err := mt.Float64Histogram(metricStepDuration,
		metric.WithDescription("Per-step wall-clock duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(stepDurationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStepDuration, err)
	}

	dispatch, err := mt.Int64Counter(metricDispatchTotal,
		metric.WithDescription("Total agent dispatch calls, by agent and action"),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDispatchTotal, err)
	}

	dispatchFail, err := mt.Int64Counter(metricDispatchFailuresTotal,
		metric.WithDescription("Agent dispatch calls recorded with status \"failure\""),
		metric.WithUnit("{dispatch}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDispatchFailuresTotal, err)
	}

	size, err := mt.Int64UpDownCounter(metricStoreSize,
		metric.WithDescription("Number of records currently held by a store, by record name"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricStoreSize, err)
	}

	return &Metrics{
		stepsTotal:       steps,
		stepDuration:     stepDur,
		dispatchTotal:    dispatch,
		dispatchFailures: dispatchFail,
		storeSize:        size,
	}, nil
}

// RecordStep records one step-loop iteration and its wall-clock duration.
// Safe to call on a nil receiver (no-op).
func (m *Metrics) RecordStep(ctx context.Context, duration time.Duration) {
	if m == nil {
		return
	}

	m.stepsTotal.Add(ctx, 1)
	m.stepDuration.Record(ctx, duration.Seconds())
}

// RecordDispatch records a single agent's response to a cascade action.
// Safe to call on a nil receiver (no-op).
func (m *Metrics) RecordDispatch(ctx context.Context, agent, action, status string) {
	if m == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrAgent, agent),
		attribute.String(attrAction, action),
		attribute.String(attrStatus, status),
	)

	m.dispatchTotal.Add(ctx, 1, attrs)

	if status == statusFailure {
		m.dispatchFailures.Add(ctx, 1, metric.WithAttributes(
			attribute.String(attrAgent, agent),
			attribute.String(attrAction, action),
		))
	}
}

// AdjustStoreSize adds delta to the tracked size of the named store. Pass a
// negative delta on removal. Safe to call on a nil receiver (no-op).
func (m *Metrics) AdjustStoreSize(ctx context.Context, storeName string, delta int64) {
	if m == nil {
		return
	}

	m.storeSize.Add(ctx, delta, metric.WithAttributes(attribute.String("store", storeName)))
}
