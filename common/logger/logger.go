package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/lmittmann/tint"
)

// Level represents log level
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (lv Level) slogLevel() slog.Level {
	switch lv {
	case DEBUG:
		return slog.LevelDebug
	case WARN:
		return slog.LevelWarn
	case ERROR, FATAL:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey string

// Context keys read by WithContext
const (
	RequestIDKey ctxKey = "requestID"
	UserIDKey    ctxKey = "userID"
	UserEmailKey ctxKey = "userEmail"
)

// Config holds logger configuration
type Config struct {
	Level       Level
	Output      io.Writer
	JSONFormat  bool
	EnableColor bool
	TimeFormat  string
	ServiceName string
}

// DefaultConfig returns default logger configuration
func DefaultConfig() *Config {
	level := INFO
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level = parseLevel(lvl)
	}

	return &Config{
		Level:       level,
		Output:      os.Stderr,
		JSONFormat:  os.Getenv("LOG_FORMAT") == "json",
		EnableColor: os.Getenv("LOG_COLOR") != "false",
		TimeFormat:  time.DateTime,
		ServiceName: os.Getenv("SERVICE_NAME"),
	}
}

// Logger is a structured logger with an immutable field set
type Logger struct {
	config *Config
	base   *slog.Logger
	fields map[string]interface{}
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// New creates a new logger with given config
func New(config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Output == nil {
		config.Output = os.Stderr
	}

	var handler slog.Handler
	if config.JSONFormat {
		handler = slog.NewJSONHandler(config.Output, &slog.HandlerOptions{
			Level:     config.Level.slogLevel(),
			AddSource: true,
		})
	} else {
		handler = tint.NewHandler(config.Output, &tint.Options{
			Level:      config.Level.slogLevel(),
			TimeFormat: config.TimeFormat,
			NoColor:    !config.EnableColor,
		})
	}

	base := slog.New(handler)
	if config.ServiceName != "" {
		base = base.With("service", config.ServiceName)
	}

	return &Logger{
		config: config,
		base:   base,
		fields: map[string]interface{}{},
	}
}

// Default returns the default logger singleton
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(nil)
		slog.SetDefault(defaultLogger.base)
	})
	return defaultLogger
}

func (l *Logger) clone(extra int) *Logger {
	fields := make(map[string]interface{}, len(l.fields)+extra)
	for k, v := range l.fields {
		fields[k] = v
	}
	return &Logger{config: l.config, base: l.base, fields: fields}
}

// With creates a child logger with an additional field
func (l *Logger) With(key string, value interface{}) *Logger {
	child := l.clone(1)
	child.fields[key] = value
	return child
}

// WithFields creates a child logger with multiple additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	child := l.clone(len(fields))
	for k, v := range fields {
		child.fields[k] = v
	}
	return child
}

// WithError adds error field to logger
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With("error", err.Error())
}

// WithContext extracts request-scoped fields from context
func (l *Logger) WithContext(ctx context.Context) *Logger {
	child := l.clone(3)
	if ctx == nil {
		return child
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		child.fields["request_id"] = requestID
	}
	if userID, ok := ctx.Value(UserIDKey).(int); ok && userID > 0 {
		child.fields["user_id"] = userID
	}
	if email, ok := ctx.Value(UserEmailKey).(string); ok && email != "" {
		child.fields["user_email"] = email
	}
	return child
}

func (l *Logger) Debug(msg string, args ...interface{}) {
	l.log(DEBUG, msg, args...)
}

func (l *Logger) Info(msg string, args ...interface{}) {
	l.log(INFO, msg, args...)
}

func (l *Logger) Warn(msg string, args ...interface{}) {
	l.log(WARN, msg, args...)
}

func (l *Logger) Error(msg string, args ...interface{}) {
	l.log(ERROR, msg, args...)
}

func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log(FATAL, msg, args...)
	os.Exit(1)
}

func (l *Logger) log(level Level, msg string, args ...interface{}) {
	if level < l.config.Level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}

	keys := make([]string, 0, len(l.fields))
	for k := range l.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	attrs := make([]slog.Attr, 0, len(keys))
	for _, k := range keys {
		attrs = append(attrs, slog.Any(k, l.fields[k]))
	}
	l.base.LogAttrs(context.Background(), level.slogLevel(), msg, attrs...)
}

// ============================================================
// Request Logger - HTTP request/response logging
// ============================================================

// RequestLog represents an HTTP request log
type RequestLog struct {
	Method       string
	Path         string
	Status       int
	Duration     time.Duration
	ClientIP     string
	UserAgent    string
	RequestID    string
	UserID       int
	ResponseSize int64
}

// LogRequest logs an HTTP request
func (l *Logger) LogRequest(req RequestLog) {
	level := INFO
	if req.Status >= 500 {
		level = ERROR
	} else if req.Status >= 400 {
		level = WARN
	}

	fields := map[string]interface{}{
		"method":      req.Method,
		"path":        req.Path,
		"status":      req.Status,
		"duration_ms": req.Duration.Milliseconds(),
		"client_ip":   req.ClientIP,
	}
	if req.UserAgent != "" {
		fields["user_agent"] = req.UserAgent
	}
	if req.RequestID != "" {
		fields["request_id"] = req.RequestID
	}
	if req.UserID > 0 {
		fields["user_id"] = req.UserID
	}
	if req.ResponseSize > 0 {
		fields["response_size"] = req.ResponseSize
	}

	l.WithFields(fields).log(level, fmt.Sprintf("%s %s -> %d", req.Method, req.Path, req.Status))
}

// ============================================================
// Business Event Logger
// ============================================================

// EventLog represents a business event log, e.g. a guest check-in
type EventLog struct {
	Event    string
	UserID   int
	EntityID int64
	Entity   string
	Action   string
	Success  bool
	Metadata map[string]interface{}
	Error    string
}

// LogEvent logs a business event
func (l *Logger) LogEvent(evt EventLog) {
	level := INFO
	if !evt.Success {
		level = ERROR
	}

	fields := map[string]interface{}{
		"event":     evt.Event,
		"action":    evt.Action,
		"entity":    evt.Entity,
		"entity_id": evt.EntityID,
		"success":   evt.Success,
	}
	if evt.UserID > 0 {
		fields["user_id"] = evt.UserID
	}
	for k, v := range evt.Metadata {
		fields[k] = v
	}
	if evt.Error != "" {
		fields["error"] = evt.Error
	}

	l.WithFields(fields).log(level, fmt.Sprintf("[%s] %s %s (ID: %d)", evt.Event, evt.Action, evt.Entity, evt.EntityID))
}

// ============================================================
// Helper functions
// ============================================================

func parseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	case "FATAL":
		return FATAL
	default:
		return INFO
	}
}

// ============================================================
// Package-level convenience functions
// ============================================================

func Debug(msg string, args ...interface{}) { Default().Debug(msg, args...) }
func Info(msg string, args ...interface{})  { Default().Info(msg, args...) }
func Warn(msg string, args ...interface{})  { Default().Warn(msg, args...) }
func Error(msg string, args ...interface{}) { Default().Error(msg, args...) }
func Fatal(msg string, args ...interface{}) { Default().Fatal(msg, args...) }

func With(key string, value interface{}) *Logger       { return Default().With(key, value) }
func WithFields(fields map[string]interface{}) *Logger { return Default().WithFields(fields) }
func WithError(err error) *Logger                      { return Default().WithError(err) }
func WithContext(ctx context.Context) *Logger          { return Default().WithContext(ctx) }
