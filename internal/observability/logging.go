package observability

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger wraps slog with request/session correlation pulled from context.
type Logger struct {
	logger *slog.Logger
}

// LogConfig configures Logger construction.
type LogConfig struct {
	// Level is one of "debug", "info", "warn", "error". Defaults to "info".
	Level string

	// Format is "json" or "text". Defaults to "json".
	Format string

	// Output defaults to os.Stdout.
	Output io.Writer

	// AddSource includes file:line in each record.
	AddSource bool
}

type contextKey string

const (
	sessionIDKey contextKey = "session_id"
	runIDKey     contextKey = "run_id"
)

// NewLogger builds a Logger from config, defaulting to info/json/stdout.
func NewLogger(config LogConfig) *Logger {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	if config.Format == "" {
		config.Format = "json"
	}

	opts := &slog.HandlerOptions{
		Level:     levelFromString(config.Level),
		AddSource: config.AddSource,
	}

	var handler slog.Handler
	if config.Format == "text" {
		handler = slog.NewTextHandler(config.Output, opts)
	} else {
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	return &Logger{logger: slog.New(handler)}
}

func levelFromString(s string) slog.Level {
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

// WithSessionID attaches a session id to ctx for later correlation.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

// WithRunID attaches a run id to ctx for later correlation.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

func contextAttrs(ctx context.Context) []any {
	var attrs []any
	if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
		attrs = append(attrs, "session_id", v)
	}
	if v, ok := ctx.Value(runIDKey).(string); ok && v != "" {
		attrs = append(attrs, "run_id", v)
	}
	return attrs
}

// Debug logs at debug level with context correlation.
func (l *Logger) Debug(ctx context.Context, msg string, args ...any) {
	l.logger.Log(ctx, slog.LevelDebug, msg, append(contextAttrs(ctx), args...)...)
}

// Info logs at info level with context correlation.
func (l *Logger) Info(ctx context.Context, msg string, args ...any) {
	l.logger.Log(ctx, slog.LevelInfo, msg, append(contextAttrs(ctx), args...)...)
}

// Warn logs at warn level with context correlation.
func (l *Logger) Warn(ctx context.Context, msg string, args ...any) {
	l.logger.Log(ctx, slog.LevelWarn, msg, append(contextAttrs(ctx), args...)...)
}

// Error logs at error level with context correlation.
func (l *Logger) Error(ctx context.Context, msg string, args ...any) {
	l.logger.Log(ctx, slog.LevelError, msg, append(contextAttrs(ctx), args...)...)
}

// WithFields returns a derived logger that always includes the given
// key-value pairs.
func (l *Logger) WithFields(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// Slog exposes the underlying *slog.Logger for callers that need to pass
// one to a library expecting slog directly (e.g. sessions.New).
func (l *Logger) Slog() *slog.Logger {
	return l.logger
}
