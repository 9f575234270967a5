package observability_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
)

func TestInitNoopByDefault(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.NotNil(t, providers.Tracer)
	assert.NotNil(t, providers.Meter)
	assert.NotNil(t, providers.Logger)
}

func TestInitWithTraceAndMetricsExport(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.TraceExport = true
	cfg.MetricsExport = true
	cfg.Mode = observability.ModeCheckpoint

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	ctx, span := providers.Tracer.Start(context.Background(), "checkpoint.hibernate")
	span.End()

	providers.Logger.InfoContext(ctx, "checkpoint.written")
}

func TestInitRespectsDebugTraceSampler(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()
	cfg.TraceExport = true
	cfg.DebugTrace = true

	providers, err := observability.Init(cfg)
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	assert.NotNil(t, providers.Tracer)
}
