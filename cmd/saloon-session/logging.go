package main

import (
	"io"
	"log/slog"
	"strings"

	auth "github.com/sandunudayakantha/saloon-auth"
)

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// newLoggerProvider hands out slog loggers tagged with the component name
func newLoggerProvider(w io.Writer, level string, pretty bool) auth.LoggerProvider {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler = slog.NewJSONHandler(w, opts)
	if pretty {
		handler = slog.NewTextHandler(w, opts)
	}
	base := slog.New(handler)

	return auth.LoggerProviderFunc(func(name string) auth.Logger {
		return base.With("logger", name)
	})
}
