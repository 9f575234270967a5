package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdpconfig"
	"github.com/Sumatoshi-tech/cascadedp/pkg/mcp"
	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
	"github.com/Sumatoshi-tech/cascadedp/pkg/system"
)

// NewMCPCommand creates the MCP server command.
func NewMCPCommand() *cobra.Command {
	var (
		debug      bool
		configFile string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve a read-only MCP tree-browsing server",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

The server exposes the live demo record tree as read-only tools an AI
agent can discover and invoke: find_by_path, list_children, and path.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cobraCmd *cobra.Command, _ []string) error {
			return runMCP(cobraCmd.Context(), configFile, debug)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging to stderr")
	cmd.Flags().StringVar(&configFile, "config", "", "configuration file path (default: CASCADEDP_CONFIG or ./cascadedp.yaml)")

	return cmd
}

func runMCP(ctx context.Context, configFile string, debug bool) error {
	cfg, err := cdpconfig.Load(configFile)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}

	oc := buildObservabilityConfig(observability.ModeMCP, cfg)
	oc.LogJSON = true

	if debug {
		oc.LogLevel = slog.LevelDebug
	}

	providers, err := observability.Init(oc)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	metrics, err := observability.NewMetrics(providers.Meter)
	if err != nil {
		return fmt.Errorf("build metrics: %w", err)
	}

	sys, err := system.New(system.Deps{Logger: providers.Logger, Metrics: metrics, Tracer: providers.Tracer})
	if err != nil {
		return fmt.Errorf("build system: %w", err)
	}

	if err := sys.Startup(ctx); err != nil {
		return fmt.Errorf("startup: %w", err)
	}

	srv := mcp.NewServer(mcp.ServerDeps{
		Root:    sys.Root,
		Logger:  providers.Logger,
		Metrics: metrics,
		Tracer:  providers.Tracer,
	})

	return srv.Run(ctx)
}
