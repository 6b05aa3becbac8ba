package observability

import (
	"io"
	"log/slog"
	"strings"

	"github.com/williamstus/AAR-Reporting-sub000/internal/config"
)

// NewJSONHandler creates a slog JSON handler writing to w at the given
// level. JSON output suits log aggregation pipelines.
func NewJSONHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
}

// NewTextHandler creates a slog text handler writing to w at the given
// level. Text output suits interactive terminal use.
func NewTextHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
}

// NewLogger builds a logger from the logging configuration, defaulting
// to info-level text output for unrecognized values.
func NewLogger(w io.Writer, cfg config.LoggingConfig) *slog.Logger {
	level := ParseLevel(cfg.Level)
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(NewJSONHandler(w, level))
	}
	return slog.New(NewTextHandler(w, level))
}

// ParseLevel maps a config string onto a slog level. Unknown strings
// fall back to info.
func ParseLevel(s string) slog.Level {
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
