package logging

import (
	"io"
	"log/slog"
	"strings"
)

// Options select the level ("debug", "info", "warn", "error") and the
// format ("text" or "json"). Unknown values fall back to info and text.
type Options struct {
	Level  string
	Format string
}

// ParseLevel maps a level name to a slog.Level, case-insensitively.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Setup builds a logger writing to w and installs it as the slog default.
func Setup(w io.Writer, opts Options) *slog.Logger {
	ho := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var h slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		h = slog.NewJSONHandler(w, ho)
	} else {
		h = slog.NewTextHandler(w, ho)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}
