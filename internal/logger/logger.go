// Package logger provides structured JSON logging for speedhive-tools.
//
// Every entry is written as a single JSON object per line with a timestamp,
// level, message, optional structured fields and an optional error. The
// package-level functions log through a replaceable default logger, which
// the CLI configures from the logging section of the config file.
//
// Example usage:
//
//	logger.Info("Collected records", logger.Fields{
//	    "org_id":   30476,
//	    "accepted": 112,
//	})
//
//	logger.Warn("Malformed announcement", logger.Fields{
//	    "session_id": 10998445,
//	    "reason":     "Missing trackName",
//	})
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Level represents log severity
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

var levelRank = map[Level]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// Logger provides structured logging
type Logger struct {
	mu       *sync.Mutex
	minLevel Level
	output   io.Writer
	base     Fields
}

// Fields represents structured log fields
type Fields map[string]interface{}

// LogEntry represents a single log entry
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	Fields    Fields `json:"fields,omitempty"`
	Error     string `json:"error,omitempty"`
}

var (
	defaultMu     sync.RWMutex
	defaultLogger = New(LevelInfo, os.Stderr)
)

// New creates a logger that discards messages below level and writes the
// rest to output.
func New(level Level, output io.Writer) *Logger {
	return &Logger{
		mu:       &sync.Mutex{},
		minLevel: level,
		output:   output,
	}
}

// ParseLevel converts a config or flag value such as "debug" to a Level.
func ParseLevel(s string) (Level, error) {
	level := Level(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := levelRank[level]; !ok {
		return "", fmt.Errorf("unknown log level: %q", s)
	}
	return level, nil
}

// SetDefault sets the logger used by the package-level functions.
func SetDefault(logger *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = logger
}

// Default returns the logger used by the package-level functions.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// With returns a logger that adds fields to every entry.
func (l *Logger) With(fields Fields) *Logger {
	merged := make(Fields, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{
		mu:       l.mu,
		minLevel: l.minLevel,
		output:   l.output,
		base:     merged,
	}
}

// log writes a structured log entry
func (l *Logger) log(level Level, message string, fields Fields, err error) {
	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Level:     string(level),
		Message:   message,
		Fields:    l.merge(fields),
	}
	if err != nil {
		entry.Error = err.Error()
	}

	data, marshalErr := json.Marshal(entry)

	l.mu.Lock()
	defer l.mu.Unlock()

	if marshalErr != nil {
		fmt.Fprintf(l.output, "[%s] %s: %s (marshal error: %v)\n",
			entry.Timestamp, entry.Level, entry.Message, marshalErr)
		return
	}
	fmt.Fprintln(l.output, string(data))
}

func (l *Logger) merge(fields Fields) Fields {
	if len(l.base) == 0 {
		return fields
	}
	merged := make(Fields, len(l.base)+len(fields))
	for k, v := range l.base {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}

// Debug logs a debug message with optional structured fields.
func (l *Logger) Debug(message string, fields Fields) {
	l.log(LevelDebug, message, fields, nil)
}

// Info logs an informational message with optional structured fields.
func (l *Logger) Info(message string, fields Fields) {
	l.log(LevelInfo, message, fields, nil)
}

// Warn logs a warning message with optional structured fields.
// Malformed announcements are reported at this level.
func (l *Logger) Warn(message string, fields Fields) {
	l.log(LevelWarn, message, fields, nil)
}

// Error logs an error message with optional structured fields and an error object.
func (l *Logger) Error(message string, fields Fields, err error) {
	l.log(LevelError, message, fields, err)
}

// Package-level convenience functions using default logger

// Debug logs a debug message with the default logger
func Debug(message string, fields Fields) {
	Default().Debug(message, fields)
}

// Info logs an info message with the default logger
func Info(message string, fields Fields) {
	Default().Info(message, fields)
}

// Warn logs a warning message with the default logger
func Warn(message string, fields Fields) {
	Default().Warn(message, fields)
}

// Error logs an error message with the default logger
func Error(message string, fields Fields, err error) {
	Default().Error(message, fields, err)
}
