package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects a logging backend and its output.
type Options struct {
	Backend string // "slog" (default) or "zap"
	Format  string // "text" (default) or "json"; slog only
	Level   string // debug, info, warn, error
}

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

// New builds a Logger writing to w according to opts.
func New(w io.Writer, opts Options) (Logger, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		ho := &slog.HandlerOptions{Level: parseLevel(opts.Level)}
		var h slog.Handler
		if strings.EqualFold(opts.Format, "json") {
			h = slog.NewJSONHandler(w, ho)
		} else {
			h = slog.NewTextHandler(w, ho)
		}
		return NewSlogLogger(slog.New(h)), nil

	case "zap":
		lvl, err := zapcore.ParseLevel(strings.ToLower(defaultString(opts.Level, "info")))
		if err != nil {
			return nil, fmt.Errorf("zap level: %w", err)
		}
		enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
		core := zapcore.NewCore(enc, zapcore.AddSync(w), lvl)
		return NewZapLogger(zap.New(core)), nil

	default:
		return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
	}
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
