package commands

import (
	"log/slog"

	"github.com/Sumatoshi-tech/cascadedp/pkg/cdpconfig"
	"github.com/Sumatoshi-tech/cascadedp/pkg/observability"
)

// buildObservabilityConfig turns a loaded cdpconfig.Config's logging
// section into an observability.Config for the given run mode. Trace and
// metrics export stay off (in-process, zero-overhead providers) unless a
// command explicitly asks for them; every mode gets the configured logger.
func buildObservabilityConfig(mode observability.AppMode, cfg *cdpconfig.Config) observability.Config {
	oc := observability.DefaultConfig()
	oc.Mode = mode
	oc.LogLevel = parseLogLevel(cfg.Logging.Level)
	oc.LogJSON = cfg.Logging.Format == "json"

	return oc
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
