package config

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger builds the process logger: JSON in prod-like envs, text otherwise.
func NewLogger(cfg *Config) *slog.Logger {
	return newLogger(os.Stdout, cfg)
}

func newLogger(w io.Writer, cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.LogLevel}
	var h slog.Handler
	if cfg.IsProdLike() {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("app", "hostelcare", "env", cfg.AppEnv)
}
