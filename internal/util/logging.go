package util

import (
	"log/slog"
	"os"
)

// InitLogger configures the global slog logger and returns it.
// Accepts levels: debug, info, warn, error. Defaults to info on unknown
// input. In debug mode output is human-readable text instead of JSON.
func InitLogger(level string, debug bool) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{
		Level:     slogLevel,
		AddSource: true,
	}
	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}
