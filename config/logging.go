package config

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
	Quiet  bool   `yaml:"-"`

	// Output defaults to stderr so stdout stays free for the MCP stdio transport.
	Output io.Writer `yaml:"-"`
}

// SuppressedLogConfig discards all log output. Used by tests.
func SuppressedLogConfig() LogConfig {
	return LogConfig{Level: "error", Quiet: true}
}

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

func NewLogger(cfg LogConfig) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Quiet {
		out = io.Discard
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

func SetupLogger(cfg LogConfig) {
	slog.SetDefault(NewLogger(cfg))
}
