// Package observability wires structured logging, tracing, and metrics for
// every CascadeDP run mode: the one-shot CLI, the stdio MCP server, and the
// checkpoint boot/hibernate commands.
package observability

import "log/slog"

// AppMode identifies how the cascadedp binary was launched. It is attached
// as a resource attribute and a log field so traces and logs from different
// entry points can be told apart in a shared backend.
type AppMode string

const (
	// ModeRun is the foreground step-loop execution mode (`cascadedp run`).
	ModeRun AppMode = "run"
	// ModeInspect is a read-only tree inspection invocation (`cascadedp inspect`, `render`, `diff`).
	ModeInspect AppMode = "inspect"
	// ModeCheckpoint is a hibernate/boot invocation (`cascadedp checkpoint`).
	ModeCheckpoint AppMode = "checkpoint"
	// ModeMCP is the MCP stdio server mode (`cascadedp mcp`).
	ModeMCP AppMode = "mcp"
)

const (
	defaultServiceName        = "cascadedp"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration for a single process.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the semantic version of the running binary.
	ServiceVersion string

	// Environment is the deployment environment (e.g. "production", "dev").
	Environment string

	// Mode identifies how the binary was launched.
	Mode AppMode

	// TraceExport enables span export to stderr. False keeps tracing
	// entirely in-process (no-op tracer provider, zero overhead).
	TraceExport bool

	// MetricsExport enables the Prometheus metric reader. False keeps
	// metrics in-process (no-op meter provider).
	MetricsExport bool

	// DebugTrace forces 100% trace sampling when true.
	DebugTrace bool

	// SampleRatio is the trace sampling ratio (0.0 to 1.0) when DebugTrace
	// is false. Zero uses the OTel SDK default (parent-based, always-on root).
	SampleRatio float64

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config with sensible defaults for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeRun,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
