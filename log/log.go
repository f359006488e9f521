// Package log provides the structured logger used by filtr, built on
// [log/slog].
//
// Diagnostics such as skipped CSV lines or export locations go through
// this package. Program output (print, view) never does.
//
//	logger := log.Make(os.Stderr, log.WithLevel(log.LevelDebug))
//	logger.Info("dataset imported", slog.String("path", p), slog.Int("rows", n))
//
// A package-level logger is configured with [Config] and used through the
// package-level functions.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger wraps a [slog.Logger]. The zero value discards everything.
type Logger struct {
	*slog.Logger
	config
}

// Make creates a Logger writing to w.
func Make(w io.Writer, opts ...Option) Logger {
	cfg := makeConfig(w, opts...)
	return Logger{Logger: slog.New(cfg.handler()), config: cfg}
}

// Wrap returns a copy of l with opts applied on top of its configuration.
func (l Logger) Wrap(opts ...Option) Logger {
	if l.Logger == nil {
		return l
	}
	cfg := apply(l.config, opts...)
	return Logger{Logger: slog.New(cfg.handler()), config: cfg}
}

// With returns a Logger that adds attrs to every message.
func (l Logger) With(attrs ...slog.Attr) Logger {
	if l.Logger == nil {
		return l
	}
	return Logger{Logger: slog.New(l.Handler().WithAttrs(attrs)), config: l.config}
}

// Level returns the minimum level.
func (l Logger) Level() Level {
	if l.Logger == nil {
		return DefaultLevel
	}
	return l.level
}

// Format returns the output format.
func (l Logger) Format() Format {
	if l.Logger == nil {
		return DefaultFormat
	}
	return l.format
}

func (l Logger) log(ctx context.Context, level Level, msg string, attrs ...slog.Attr) {
	if l.Logger == nil {
		return
	}
	l.LogAttrs(ctx, slog.Level(level), msg, attrs...)
}

// Trace logs at trace level.
func (l Logger) Trace(msg string, attrs ...slog.Attr) {
	l.log(context.TODO(), LevelTrace, msg, attrs...)
}

// Debug logs at debug level.
func (l Logger) Debug(msg string, attrs ...slog.Attr) {
	l.log(context.TODO(), LevelDebug, msg, attrs...)
}

// DebugContext logs at debug level with ctx.
func (l Logger) DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, LevelDebug, msg, attrs...)
}

// Info logs at info level.
func (l Logger) Info(msg string, attrs ...slog.Attr) {
	l.log(context.TODO(), LevelInfo, msg, attrs...)
}

// Warn logs at warn level.
func (l Logger) Warn(msg string, attrs ...slog.Attr) {
	l.log(context.TODO(), LevelWarn, msg, attrs...)
}

// Error logs at error level.
func (l Logger) Error(msg string, attrs ...slog.Attr) {
	l.log(context.TODO(), LevelError, msg, attrs...)
}

var (
	mu  sync.RWMutex
	std = Make(os.Stderr)
)

// Config reconfigures the package-level logger.
func Config(opts ...Option) {
	mu.Lock()
	defer mu.Unlock()
	std = std.Wrap(opts...)
}

// Default returns the package-level logger.
func Default() Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// Debug logs at debug level on the package-level logger.
func Debug(msg string, attrs ...slog.Attr) { Default().Debug(msg, attrs...) }

// DebugContext logs at debug level on the package-level logger.
func DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	Default().DebugContext(ctx, msg, attrs...)
}

// Info logs at info level on the package-level logger.
func Info(msg string, attrs ...slog.Attr) { Default().Info(msg, attrs...) }

// Warn logs at warn level on the package-level logger.
func Warn(msg string, attrs ...slog.Attr) { Default().Warn(msg, attrs...) }

// Error logs at error level on the package-level logger.
func Error(msg string, attrs ...slog.Attr) { Default().Error(msg, attrs...) }
