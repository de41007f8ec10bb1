// Package log configures the process-wide slog logger shared by the deskflow
// binaries.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default logger. An empty level falls back to the
// LOG_LEVEL environment variable, then to info. DESKFLOW_LOG_FORMAT=json
// switches to the JSON handler for log collectors.
func Setup(logLevel string) {
	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}

	var level slog.Level

	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if strings.EqualFold(os.Getenv("DESKFLOW_LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler).With("service", "deskflow"))
}

// WithModule tags the default logger with the deskflow module emitting the
// records, matching the "module" attribute used across packages.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
