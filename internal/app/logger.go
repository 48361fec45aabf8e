package app

import (
	"io"
	"log/slog"
	"strings"
)

// parseLevel maps a --log-level value to a slog level. Unknown values fall
// back to info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(s)))); err != nil {
		return slog.LevelInfo
	}
	return level
}

// newLogger builds the application's own logger against outW. It never
// touches the global logger, so several App instances can coexist in tests.
// Debug level adds the source location of every record.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	level := parseLevel(levelStr)
	handlerOpts := &slog.HandlerOptions{
		Level:     level,
		AddSource: level <= slog.LevelDebug,
	}

	var handler slog.Handler
	switch strings.ToLower(formatStr) {
	case "json":
		handler = slog.NewJSONHandler(outW, handlerOpts)
	default:
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler).With("app", "svcgrid")
}
