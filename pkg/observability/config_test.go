package observability_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
)

func TestDefaultConfig(t *testing.T) {
	t.Parallel()

	cfg := observability.DefaultConfig()

	assert.Equal(t, "cascadedp", cfg.ServiceName)
	assert.Equal(t, observability.ModeRun, cfg.Mode)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.TraceExport)
	assert.False(t, cfg.MetricsExport)
	assert.Positive(t, cfg.ShutdownTimeoutSec)
}
