package utils

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
)

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

type contextKey string

const (
	correlationIDKey contextKey = "correlation_id"
	tenantIDKey      contextKey = "tenant_id"
)

type Logger struct {
	service string
	base    *slog.Logger
}

var defaultLogger = CreateLogger("flowent-gateway", os.Stdout, LevelInfo, "json")

func init() {
	if os.Getenv("LOG_LEVEL") == "debug" {
		defaultLogger = CreateLogger(defaultLogger.service, os.Stdout, LevelDebug, "json")
	}
}

func CreateLogger(service string, w io.Writer, level LogLevel, format string) *Logger {
	opts := &slog.HandlerOptions{Level: level.slogLevel()}

	var handler slog.Handler
	if strings.EqualFold(format, "text") {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		service: service,
		base:    slog.New(handler).With(slog.String("service", service)),
	}
}

// Configure replaces the package logger used by Debug, Info, Warn and Error.
func Configure(service string, w io.Writer, level, format string) {
	defaultLogger = CreateLogger(service, w, ParseLogLevel(level), format)
}

func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

func (l LogLevel) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) Debug(ctx context.Context, message string, fields ...map[string]interface{}) {
	l.log(ctx, LevelDebug, message, fields...)
}

func (l *Logger) Info(ctx context.Context, message string, fields ...map[string]interface{}) {
	l.log(ctx, LevelInfo, message, fields...)
}

func (l *Logger) Warn(ctx context.Context, message string, fields ...map[string]interface{}) {
	l.log(ctx, LevelWarn, message, fields...)
}

func (l *Logger) Error(ctx context.Context, message string, fields ...map[string]interface{}) {
	l.log(ctx, LevelError, message, fields...)
}

func (l *Logger) log(ctx context.Context, level LogLevel, message string, fields ...map[string]interface{}) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.base.Enabled(ctx, level.slogLevel()) {
		return
	}

	attrs := make([]slog.Attr, 0, 4)
	if id := GetCorrelationID(ctx); id != "" {
		attrs = append(attrs, slog.String("correlation_id", id))
	}
	if id := GetTenantID(ctx); id != "" {
		attrs = append(attrs, slog.String("tenant_id", id))
	}

	if len(fields) > 0 && len(fields[0]) > 0 {
		keys := make([]string, 0, len(fields[0]))
		for k := range fields[0] {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		group := make([]any, 0, len(keys))
		for _, k := range keys {
			group = append(group, slog.Any(k, fields[0][k]))
		}
		attrs = append(attrs, slog.Group("fields", group...))
	}

	l.base.LogAttrs(ctx, level.slogLevel(), message, attrs...)
}

func GetCorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}

func GetTenantID(ctx context.Context) string {
	if id, ok := ctx.Value(tenantIDKey).(string); ok {
		return id
	}
	return ""
}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

func Debug(ctx context.Context, message string, fields ...map[string]interface{}) {
	defaultLogger.Debug(ctx, message, fields...)
}

func Info(ctx context.Context, message string, fields ...map[string]interface{}) {
	defaultLogger.Info(ctx, message, fields...)
}

func Warn(ctx context.Context, message string, fields ...map[string]interface{}) {
	defaultLogger.Warn(ctx, message, fields...)
}

func Error(ctx context.Context, message string, fields ...map[string]interface{}) {
	defaultLogger.Error(ctx, message, fields...)
}
