package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// Options selects the level and output format of a logger built by Configure.
type Options struct {
	Level  string // debug, info, warn, error; empty means info
	Format string // console or json
}

// New creates a console logger at info level
func New() zerolog.Logger {
	return Configure(Options{})
}

// Configure builds the process logger from Options. Unknown levels fall back
// to info.
func Configure(opts Options) zerolog.Logger {
	return ConfigureWriter(os.Stdout, opts)
}

// ConfigureWriter is Configure with an explicit destination.
func ConfigureWriter(out io.Writer, opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(opts.Level)
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}

	w := out
	if opts.Format != "json" {
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Caller().Logger()
}

// NewWithWriter creates a JSON logger writing to w
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// WithFields adds structured fields to a logger
func WithFields(logger zerolog.Logger, fields map[string]any) zerolog.Logger {
	ctx := logger.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return ctx.Logger()
}
