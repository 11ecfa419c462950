// Package log wraps log/slog with component-scoped loggers and a request
// logger carried in the context.
package log

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger that stamps every record with its component.
type Logger struct {
	*slog.Logger
	// base is Logger without the component attribute, so switching
	// components replaces the tag instead of stacking a second one.
	base      *slog.Logger
	component string
}

func newLogger(base *slog.Logger, component string) *Logger {
	return &Logger{Logger: base.With(FieldComponent, component), base: base, component: component}
}

// Config holds logger configuration.
type Config struct {
	Level  slog.Level
	Output io.Writer
	JSON   bool
}

// New builds a root logger for cfg. Output defaults to stderr.
func New(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}
	var h slog.Handler = slog.NewTextHandler(out, opts)
	if cfg.JSON {
		h = slog.NewJSONHandler(out, opts)
	}
	root := slog.New(h)
	return &Logger{Logger: root, base: root, component: ComponentApp}
}

// Setup installs a root logger as the slog default and returns it.
func Setup(cfg Config) *Logger {
	l := New(cfg)
	slog.SetDefault(l.Logger)
	return l
}

// ParseLevel accepts debug, info, warn/warning and error, in any case.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

// Component returns a logger for the named component built on the current
// slog default.
func Component(name string) *Logger {
	return newLogger(slog.Default(), name)
}

// WithComponent returns a copy tagged with a different component. Other
// attributes are kept.
func (l *Logger) WithComponent(name string) *Logger {
	if name == l.component {
		return l
	}
	return newLogger(l.base, name)
}

// With returns a copy carrying extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), base: l.base.With(args...), component: l.component}
}

func (l *Logger) Component() string { return l.component }

// Err logs err at error level together with the operation that failed.
func (l *Logger) Err(ctx context.Context, msg string, op string, err error, args ...any) {
	l.Logger.ErrorContext(ctx, msg, append([]any{FieldOperation, op, FieldError, err}, args...)...)
}
