// Package logger provides the process-wide structured logger.
//
// All logging calls take a context first so that request scoped values
// (currently the chi request id) are attached without callers threading
// them through by hand.
package logger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// ErrInvalidLevel is returned by SetLevelString for unknown level names.
var ErrInvalidLevel = errors.New("invalid log level")

// Field is a single structured key/value pair.
type Field = slog.Attr

// Logger is the logging contract used across the module.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...Field)
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)

	// Named returns a child logger tagged with a component name.
	Named(name string) Logger
}

type slogLogger struct {
	base *slog.Logger
	name string
}

var (
	mu     sync.RWMutex //nolint:gochecknoglobals // process-wide logger
	level  = new(slog.LevelVar)
	global Logger
)

// Init configures the global logger writing JSON lines to stderr.
// It is safe to call more than once.
func Init() error {
	return InitWithWriter(os.Stderr)
}

// InitWithWriter configures the global logger to write to w.
func InitWithWriter(w io.Writer) error {
	if w == nil {
		return fmt.Errorf("logger: nil writer")
	}
	h := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	mu.Lock()
	global = &slogLogger{base: slog.New(h)}
	mu.Unlock()
	return nil
}

// Get returns the global logger, initializing it on first use.
func Get() Logger {
	mu.RLock()
	l := global
	mu.RUnlock()
	if l != nil {
		return l
	}
	_ = Init()
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered output. The slog JSON handler writes synchronously,
// so there is nothing to flush beyond stderr itself.
func Sync() error {
	return nil
}

// SetLevelString changes the minimum level at runtime.
func SetLevelString(s string) error {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		level.Set(slog.LevelDebug)
	case "info", "":
		level.Set(slog.LevelInfo)
	case "warn", "warning":
		level.Set(slog.LevelWarn)
	case "error":
		level.Set(slog.LevelError)
	default:
		return fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
	return nil
}

func (l *slogLogger) log(ctx context.Context, lvl slog.Level, msg string, fields []Field) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.base.Enabled(ctx, lvl) {
		return
	}
	attrs := make([]slog.Attr, 0, len(fields)+2)
	if l.name != "" {
		attrs = append(attrs, slog.String("logger", l.name))
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		attrs = append(attrs, slog.String("request_id", reqID))
	}
	attrs = append(attrs, fields...)
	l.base.LogAttrs(ctx, lvl, msg, attrs...)
}

func (l *slogLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelDebug, msg, fields)
}

func (l *slogLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelInfo, msg, fields)
}

func (l *slogLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelWarn, msg, fields)
}

func (l *slogLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, slog.LevelError, msg, fields)
}

func (l *slogLogger) Named(name string) Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &slogLogger{base: l.base, name: name}
}

// String constructs a string field.
func String(key, val string) Field { return slog.String(key, val) }

// Int constructs an int field.
func Int(key string, val int) Field { return slog.Int(key, val) }

// Int64 constructs an int64 field.
func Int64(key string, val int64) Field { return slog.Int64(key, val) }

// Float64 constructs a float64 field.
func Float64(key string, val float64) Field { return slog.Float64(key, val) }

// Bool constructs a bool field.
func Bool(key string, val bool) Field { return slog.Bool(key, val) }

// Duration constructs a duration field.
func Duration(key string, val time.Duration) Field { return slog.Duration(key, val) }

// Error constructs the conventional "error" field.
func Error(err error) Field {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
