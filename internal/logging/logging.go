// Package logging wires zerolog for the CLI, the watcher and the pipeline.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var defaultLogger = newLogger(os.Stderr, zerolog.InfoLevel, "auto")

type ctxKey struct{}

// Setup replaces the default logger. format is "json", "console" or "auto".
func Setup(level, format string) zerolog.Logger {
	l := newLogger(os.Stderr, parseLevel(level), format)
	SetDefault(l)
	return l
}

func newLogger(w io.Writer, level zerolog.Level, format string) zerolog.Logger {
	format = strings.ToLower(strings.TrimSpace(format))
	useConsole := format == "console"
	if format == "" || format == "auto" {
		if f, ok := w.(*os.File); ok {
			useConsole = isatty.IsTerminal(f.Fd())
		}
	}
	if useConsole {
		w = zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.Kitchen,
			NoColor:    os.Getenv("NO_COLOR") != "",
		}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	if level <= zerolog.DebugLevel {
		logger = logger.With().Caller().Logger()
	}
	return logger
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

func Default() *zerolog.Logger {
	return &defaultLogger
}

func SetDefault(logger zerolog.Logger) {
	defaultLogger = logger
	log.Logger = logger
}

// WithLogger stores a logger in ctx.
func WithLogger(ctx context.Context, logger *zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger stored in ctx, or the default one.
func FromContext(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok && l != nil {
			return l
		}
	}
	return Default()
}
