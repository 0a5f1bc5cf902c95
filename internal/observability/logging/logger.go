// Package logging builds the slog loggers shared by the api and worker
// binaries. Both emit JSON to stdout with a service attribute so pipeline
// log lines from either process can be filtered by origin.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

const defaultService = "findoc"

// NewJSONLogger returns a JSON logger scoped to service. Unknown level
// strings fall back to info rather than failing startup.
func NewJSONLogger(service, level string) *slog.Logger {
	if strings.TrimSpace(service) == "" {
		service = defaultService
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(level),
	})
	return slog.New(handler).With("service", service)
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
