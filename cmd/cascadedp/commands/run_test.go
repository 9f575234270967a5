package commands

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/cascadedp/pkg/system"
)

func TestWireDemoCounterStartsAtZero(t *testing.T) {
	t.Parallel()

	sys, err := system.New(system.Deps{})
	require.NoError(t, err)

	counter, err := wireDemoCounter(sys)
	require.NoError(t, err)
	require.Equal(t, uint64(0), counterValue(counter))
}

func TestWireDemoCounterTracksStepTic(t *testing.T) {
	t.Parallel()

	sys, err := system.New(system.Deps{})
	require.NoError(t, err)

	counter, err := wireDemoCounter(sys)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sys.Startup(ctx))

	for i := uint64(1); i <= 3; i++ {
		require.NoError(t, sys.Step(ctx))
		require.Equal(t, i, counterValue(counter))
	}

	require.NoError(t, sys.Shutdown(ctx))
}

func TestCounterValueTooShortBufferReturnsZero(t *testing.T) {
	t.Parallel()

	sys, err := system.New(system.Deps{})
	require.NoError(t, err)

	require.Equal(t, uint64(0), counterValue(sys.Void))
}

func TestRunDemoRejectsNonPositiveSteps(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runDemo(context.Background(), runOptions{steps: 0, out: &out})
	require.ErrorIs(t, err, ErrUsage)
}

func TestRunDemoDrivesConfiguredSteps(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runDemo(context.Background(), runOptions{steps: 3, silent: true, out: &out})
	require.NoError(t, err)
}

func TestRunDemoPrintsProgressWhenNotSilent(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runDemo(context.Background(), runOptions{steps: 2, out: &out})
	require.NoError(t, err)
	require.Contains(t, out.String(), "tic=")
	require.Contains(t, out.String(), "counter=")
}

func TestNewRunCommandDefaults(t *testing.T) {
	t.Parallel()

	cmd := NewRunCommand()

	stepsFlag := cmd.Flags().Lookup("steps")
	require.NotNil(t, stepsFlag)
	require.Equal(t, "10", stepsFlag.DefValue)

	silentFlag := cmd.Flags().Lookup("silent")
	require.NotNil(t, silentFlag)
	require.Equal(t, "false", silentFlag.DefValue)

	metricsAddrFlag := cmd.Flags().Lookup("metrics-addr")
	require.NotNil(t, metricsAddrFlag)
	require.Equal(t, "", metricsAddrFlag.DefValue)
}

func TestServeMetricsExposesPrometheusRegistry(t *testing.T) {
	t.Parallel()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// serveMetrics wires promhttp.Handler() onto a live listener; exercise
	// the same handler directly against a recorder so the test does not
	// depend on the OS-assigned port being reachable in time.
	stop := serveMetrics("127.0.0.1:0", logger)
	defer stop(context.Background())

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	promhttp.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "# HELP")
}

func TestRunDemoWithMetricsAddrEnablesExport(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	err := runDemo(context.Background(), runOptions{
		steps:       1,
		silent:      true,
		metricsAddr: "127.0.0.1:0",
		out:         &out,
	})
	require.NoError(t, err)
}
