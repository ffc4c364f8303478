package logging

import (
	"context"
	"io"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns string representation of log level
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string onto a LogLevel, defaulting to InfoLevel.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug", "DEBUG":
		return DebugLevel
	case "warn", "WARN", "warning":
		return WarnLevel
	case "error", "ERROR":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// Fields represents structured log fields
type Fields map[string]interface{}

type ctxKey int

const requestIDKey ctxKey = iota

// WithRequestID attaches a request ID that every log line written with ctx will carry.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// StructuredLogger writes one JSON object per line through go-kit/log.
type StructuredLogger struct {
	mu       sync.RWMutex
	level    LogLevel
	logger   log.Logger
	service  string
	version  string
	hostname string
	exit     func(int)
}

// NewStructuredLogger creates a new structured logger writing to stdout
func NewStructuredLogger(service, version string, lvl LogLevel) *StructuredLogger {
	hostname, _ := os.Hostname()

	l := &StructuredLogger{
		level:    lvl,
		service:  service,
		version:  version,
		hostname: hostname,
		exit:     os.Exit,
	}
	l.logger = l.build(os.Stdout)
	return l
}

func (l *StructuredLogger) build(w io.Writer) log.Logger {
	base := log.NewJSONLogger(log.NewSyncWriter(w))
	return log.With(base,
		"timestamp", log.DefaultTimestampUTC,
		"service", l.service,
		"version", l.version,
		"hostname", l.hostname,
	)
}

// SetOutput sets the output destination for logs
func (l *StructuredLogger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logger = l.build(w)
}

// SetLevel sets the minimum log level
func (l *StructuredLogger) SetLevel(lvl LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = lvl
}

// Debug logs a debug message with structured fields
func (l *StructuredLogger) Debug(ctx context.Context, message string, fields Fields) {
	l.log(ctx, DebugLevel, message, fields, nil)
}

// Info logs an info message with structured fields
func (l *StructuredLogger) Info(ctx context.Context, message string, fields Fields) {
	l.log(ctx, InfoLevel, message, fields, nil)
}

// Warn logs a warning message with structured fields
func (l *StructuredLogger) Warn(ctx context.Context, message string, fields Fields) {
	l.log(ctx, WarnLevel, message, fields, nil)
}

// Error logs an error message with structured fields and error details
func (l *StructuredLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, ErrorLevel, message, fields, err)
}

// Fatal logs a fatal message and exits the program
func (l *StructuredLogger) Fatal(ctx context.Context, message string, fields Fields, err error) {
	l.log(ctx, FatalLevel, message, fields, err)
	l.exit(1)
}

func (l *StructuredLogger) log(ctx context.Context, lvl LogLevel, message string, fields Fields, err error) {
	l.mu.RLock()
	minLevel, logger := l.level, l.logger
	l.mu.RUnlock()

	if lvl < minLevel {
		return
	}

	keyvals := make([]interface{}, 0, 2*len(fields)+12)
	keyvals = append(keyvals, "message", message)

	if id := RequestID(ctx); id != "" {
		keyvals = append(keyvals, "request_id", id)
	}

	if len(fields) > 0 {
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			keyvals = append(keyvals, k, fields[k])
		}
	}

	// Caller information for error and fatal levels
	if lvl >= ErrorLevel {
		if pc, file, line, ok := runtime.Caller(2); ok {
			keyvals = append(keyvals, "file", file, "line", line)
			if fn := runtime.FuncForPC(pc); fn != nil {
				keyvals = append(keyvals, "function", fn.Name())
			}
		}
		if err != nil {
			keyvals = append(keyvals, "error", err.Error())
			if lvl == FatalLevel {
				keyvals = append(keyvals, "stack_trace", captureStackTrace())
			}
		}
	}

	_ = leveled(logger, lvl).Log(keyvals...)
}

func leveled(logger log.Logger, lvl LogLevel) log.Logger {
	switch lvl {
	case DebugLevel:
		return level.Debug(logger)
	case InfoLevel:
		return level.Info(logger)
	case WarnLevel:
		return level.Warn(logger)
	case FatalLevel:
		return log.With(level.Error(logger), "fatal", true)
	default:
		return level.Error(logger)
	}
}

// captureStackTrace captures the current stack trace
func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// WithFields creates a new logger with additional fields
func (l *StructuredLogger) WithFields(fields Fields) *ContextLogger {
	return &ContextLogger{
		logger: l,
		fields: fields,
	}
}

// ContextLogger wraps StructuredLogger with additional context fields
type ContextLogger struct {
	logger *StructuredLogger
	fields Fields
}

// Debug logs a debug message with context fields
func (c *ContextLogger) Debug(ctx context.Context, message string, fields Fields) {
	c.logger.Debug(ctx, message, c.mergeFields(fields))
}

// Info logs an info message with context fields
func (c *ContextLogger) Info(ctx context.Context, message string, fields Fields) {
	c.logger.Info(ctx, message, c.mergeFields(fields))
}

// Warn logs a warning message with context fields
func (c *ContextLogger) Warn(ctx context.Context, message string, fields Fields) {
	c.logger.Warn(ctx, message, c.mergeFields(fields))
}

// Error logs an error message with context fields
func (c *ContextLogger) Error(ctx context.Context, message string, fields Fields, err error) {
	c.logger.Error(ctx, message, c.mergeFields(fields), err)
}

// mergeFields merges context fields with provided fields
func (c *ContextLogger) mergeFields(fields Fields) Fields {
	merged := make(Fields, len(c.fields)+len(fields))
	for k, v := range c.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
