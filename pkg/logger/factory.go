package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Config selects the stdout handler and optional Sentry forwarding.
type Config struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Format string `env:"LOG_FORMAT" envDefault:"json"` // json or text
	Sentry SentryConfig
}

// New creates a JSON-formatted logger on stdout with optional context extractors.
func New(extractors ...ContextExtractor) *slog.Logger {
	return NewWithConfig(Config{}, os.Stdout, extractors...)
}

// NewWithConfig creates a logger writing to w with the configured level and
// format. Records also go to Sentry when a DSN is configured.
func NewWithConfig(cfg Config, w io.Writer, extractors ...ContextExtractor) *slog.Logger {
	base := newHandler(cfg, w)
	if cfg.Sentry.DSN == "" {
		return slog.New(withContext(base, extractors...))
	}
	return slog.New(withContext(withSentry(base, cfg.Sentry), extractors...))
}

func newHandler(cfg Config, w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.NewTextHandler(w, opts)
	}
	return slog.NewJSONHandler(w, opts)
}

// parseLevel accepts slog level names ("debug", "warn", "error+2");
// anything else means info.
func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
