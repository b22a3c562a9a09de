// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// ParseLevel converts a level name to slog.Level.
// Accepts DEBUG, INFO, WARN/WARNING and ERROR in any case; anything else is INFO.
func ParseLevel(level string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR", "CRITICAL":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a JSON logger writing to w at the given level.
func New(level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(level),
	})
	return slog.New(handler)
}

// Setup installs a logger for level as the slog default and returns it.
func Setup(level string) *slog.Logger {
	logger := New(level, os.Stdout)
	slog.SetDefault(logger)
	return logger
}
