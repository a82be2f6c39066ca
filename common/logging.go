// Package common holds build metadata and the logger setup shared by all
// binaries.
package common

import (
	"log/slog"
	"os"
)

// Version is set at build time via ldflags.
var Version = "dev"

// PackageName identifies this service in logs and metrics.
const PackageName = "bybx-activation"

// LoggingOpts configures the process-wide logger.
type LoggingOpts struct {
	// Debug enables debug-level messages.
	Debug bool

	// JSON switches the handler to JSON output.
	JSON bool

	// Service is added as a 'service' tag to all messages, if set.
	Service string

	// Version is added as a 'version' tag to all messages, if set.
	Version string
}

// SetupLogger builds a slog logger for the given options.
func SetupLogger(opts *LoggingOpts) *slog.Logger {
	level := slog.LevelInfo
	if opts.Debug {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger := slog.New(handler)
	if opts.Service != "" {
		logger = logger.With("service", opts.Service)
	}
	if opts.Version != "" {
		logger = logger.With("version", opts.Version)
	}
	return logger
}
