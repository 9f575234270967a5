package commands

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/cdpconfig"
	"github.com/Sumatoshi-tech/cascadedp/pkg/dt"
	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
	"github.com/Sumatoshi-tech/cascadedp/pkg/system"
)

const demoCounterWord = "counter"

// NewRunCommand creates the run subcommand, which builds a demo cascade
// pipeline (a data leaf wired to the step agent's output) and drives it for
// a fixed number of steps.
func NewRunCommand() *cobra.Command {
	var (
		steps       int
		interval    time.Duration
		configFile  string
		silent      bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the step loop over a demo cascade pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runDemo(cobraCmd.Context(), runOptions{
				steps:       steps,
				interval:    interval,
				configFile:  configFile,
				silent:      silent,
				metricsAddr: metricsAddr,
				out:         cobraCmd.OutOrStdout(),
			})
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 10, "number of steps to drive before exiting")
	cmd.Flags().DurationVar(&interval, "interval", 0, "override the configured step interval (0 = use config)")
	cmd.Flags().StringVar(&configFile, "config", "", "configuration file path (default: CASCADEDP_CONFIG or ./cascadedp.yaml)")
	cmd.Flags().BoolVar(&silent, "silent", false, "disable per-step progress output")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics at /metrics on this address (disabled if empty)")

	return cmd
}

type runOptions struct {
	steps       int
	interval    time.Duration
	configFile  string
	silent      bool
	metricsAddr string
	out         io.Writer
}

func runDemo(ctx context.Context, opts runOptions) error {
	if opts.steps <= 0 {
		return fmt.Errorf("%w: --steps must be positive, got %d", ErrUsage, opts.steps)
	}

	cfg, err := cdpconfig.Load(opts.configFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	oc := buildObservabilityConfig(observability.ModeRun, cfg)
	oc.MetricsExport = opts.metricsAddr != ""

	providers, err := observability.Init(oc)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	if opts.metricsAddr != "" {
		stopMetrics := serveMetrics(opts.metricsAddr, providers.Logger)
		defer stopMetrics(context.Background())
	}

	metrics, err := observability.NewMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("build metrics: %w", err)
	}

	sys, err := system.New(system.Deps{Logger: providers.Logger, Metrics: metrics, Tracer: providers.Tracer})
	if err != nil {
		return fmt.Errorf("build system: %w", err)
	}

	counter, err := wireDemoCounter(sys)
	if err != nil {
		return fmt.Errorf("wire demo pipeline: %w", err)
	}

	if err := sys.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	interval := opts.interval
	if interval <= 0 {
		interval = cfg.System.StepInterval
	}

	bold := color.New(color.FgCyan, color.Bold)

	for range opts.steps {
		select {
		case <-ctx.Done():
			return sys.Shutdown(context.Background())
		default:
		}

		if err := sys.Step(ctx); err != nil {
			return fmt.Errorf("step: %w", err)
		}

		if !opts.silent {
			bold.Fprintf(opts.out, "tic=%d counter=%d\n", sys.Step.Tic(), counterValue(counter))
		}

		if interval > 0 {
			time.Sleep(interval)
		}
	}

	return sys.Shutdown(ctx)
}

// serveMetrics starts an HTTP server exposing the default Prometheus
// registry at /metrics, matching buildMeterProvider's pull-based reader.
// Errors after startup are logged, not fatal, since the demo loop keeps
// running without its metrics endpoint. The returned func shuts the
// server down; callers should defer it.
func serveMetrics(addr string, logger *slog.Logger) func(context.Context) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server failed", "error", err)
		}
	}()

	logger.Info("metrics server listening", "addr", addr)

	return server.Shutdown
}

// wireDemoCounter attaches a data leaf under /data holding an 8-byte
// little-endian counter, connects it to the step agent's output, and
// registers an agent that copies each tic into the counter's payload.
func wireDemoCounter(sys *system.System) (*cdp.Record, error) {
	name, err := dt.EncodeWord(demoCounterWord)
	if err != nil {
		return nil, err
	}

	id := dt.DT{Domain: name, Tag: name}

	data, err := cdp.NewData(id, dt.DT{}, 0, cdp.DataValue, true, make([]byte, 8), 8, nil)
	if err != nil {
		return nil, err
	}

	data.AddAgent(name, name, func(_, _, _ *cdp.Record, action cdp.Action, _ *cdp.Record, value uint64) cdp.Status {
		if action != cdp.ActionDataUpdate {
			return cdp.StatusOk
		}

		buf := make([]byte, 8)
		binary.LittleEndian.PutUint64(buf, value)

		if err := data.Update(8, 8, buf, false); err != nil {
			return cdp.StatusFail
		}

		return cdp.StatusOk
	})

	rec, err := cdp.Initialize(id, cdp.ShadowingNone, false, data)
	if err != nil {
		return nil, err
	}

	if err := sys.Data.Add(rec); err != nil {
		return nil, err
	}

	inlet, err := system.Inlet(rec, id)
	if err != nil {
		return nil, err
	}

	if err := system.Connect(sys.Step.Record(), id, inlet); err != nil {
		return nil, err
	}

	return rec, nil
}

func counterValue(rec *cdp.Record) uint64 {
	buf := rec.Data().Bytes()
	if len(buf) < 8 {
		return 0
	}

	return binary.LittleEndian.Uint64(buf)
}
