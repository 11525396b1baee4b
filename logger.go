package shelf

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// Logger is the interface for logging in shelf.
// Users can provide custom logger implementations.
type Logger interface {
	// Debug logs a debug message with optional fields
	Debug(msg string, fields ...Field)

	// Info logs an info message with optional fields
	Info(msg string, fields ...Field)

	// Warn logs a warning message with optional fields
	Warn(msg string, fields ...Field)

	// Error logs an error message with optional fields
	Error(msg string, fields ...Field)
}

// Level is a logging severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return fmt.Sprintf("LEVEL(%d)", int(l))
	}
}

// writerLogger writes messages at or above min to a standard library logger.
type writerLogger struct {
	logger *log.Logger
	min    Level
}

// NewLogger creates a logger writing messages at or above min to w.
func NewLogger(w io.Writer, min Level) Logger {
	return &writerLogger{
		logger: log.New(w, "[shelf] ", log.LstdFlags),
		min:    min,
	}
}

// NewDefaultLogger creates a logger that writes every level to stderr.
func NewDefaultLogger() Logger {
	return NewLogger(os.Stderr, LevelDebug)
}

func (l *writerLogger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, fields) }
func (l *writerLogger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, fields) }
func (l *writerLogger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, fields) }
func (l *writerLogger) Error(msg string, fields ...Field) { l.log(LevelError, msg, fields) }

func (l *writerLogger) log(level Level, msg string, fields []Field) {
	if level < l.min {
		return
	}
	if len(fields) == 0 {
		l.logger.Printf("[%s] %s", level, msg)
		return
	}
	l.logger.Printf("[%s] %s %s", level, msg, formatFields(fields))
}

// noopLogger discards everything. It is the default for stores.
type noopLogger struct{}

// NewNoopLogger creates a logger that discards all log messages.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Debug(string, ...Field) {}
func (noopLogger) Info(string, ...Field)  {}
func (noopLogger) Warn(string, ...Field)  {}
func (noopLogger) Error(string, ...Field) {}

// formatFields renders fields as {key: value, ...}.
func formatFields(fields []Field) string {
	if len(fields) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte('{')
	for i, field := range fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %v", field.Key, field.Value)
	}
	b.WriteByte('}')

	return b.String()
}
