// Package logger provides the logging interface shared by azfleet
// components. Packages log through it without being coupled to a concrete
// sink, which keeps the tunnel pool and fleet workers testable.
package logger

import (
	"fmt"
	"log"
	"os"
)

// Logger is the minimal logging surface used across azfleet.
// Methods take a printf-style format string.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// envLogger writes to the standard logger. Debug output is suppressed
// unless AZFLEET_DEBUG is set in the environment.
type envLogger struct {
	prefix string
}

// NewEnvLogger returns a logger gated on AZFLEET_DEBUG. The prefix is
// prepended to every line (e.g. "[tunnel]" or "[azure]").
func NewEnvLogger(prefix string) Logger {
	return &envLogger{prefix: prefix}
}

func (l *envLogger) Debug(format string, args ...interface{}) {
	if os.Getenv("AZFLEET_DEBUG") != "" {
		log.Printf(l.prefix+" "+format, args...)
	}
}

func (l *envLogger) Info(format string, args ...interface{}) {
	log.Printf(l.prefix+" "+format, args...)
}

func (l *envLogger) Warn(format string, args ...interface{}) {
	log.Printf(l.prefix+" WARN: "+format, args...)
}

func (l *envLogger) Error(format string, args ...interface{}) {
	log.Printf(l.prefix+" ERROR: "+format, args...)
}

// noopLogger discards everything. Used in tests and wherever log output
// is unwanted.
type noopLogger struct{}

// Noop returns a logger that discards all messages.
func Noop() Logger {
	return &noopLogger{}
}

func (l *noopLogger) Debug(format string, args ...interface{}) {}
func (l *noopLogger) Info(format string, args ...interface{})  {}
func (l *noopLogger) Warn(format string, args ...interface{})  {}
func (l *noopLogger) Error(format string, args ...interface{}) {}

// LogMessage is one captured log line.
type LogMessage struct {
	Level   string
	Message string
}

// BufferLogger captures messages so tests can assert on them.
type BufferLogger struct {
	Messages []LogMessage
}

// NewBufferLogger returns a logger that records every message.
func NewBufferLogger() *BufferLogger {
	return &BufferLogger{Messages: make([]LogMessage, 0)}
}

func (l *BufferLogger) append(level, format string, args ...interface{}) {
	l.Messages = append(l.Messages, LogMessage{Level: level, Message: fmt.Sprintf(format, args...)})
}

func (l *BufferLogger) Debug(format string, args ...interface{}) { l.append("debug", format, args...) }
func (l *BufferLogger) Info(format string, args ...interface{})  { l.append("info", format, args...) }
func (l *BufferLogger) Warn(format string, args ...interface{})  { l.append("warn", format, args...) }
func (l *BufferLogger) Error(format string, args ...interface{}) { l.append("error", format, args...) }

// HasLevel reports whether any message was logged at the given level.
func (l *BufferLogger) HasLevel(level string) bool {
	for _, m := range l.Messages {
		if m.Level == level {
			return true
		}
	}
	return false
}

// Clear drops all captured messages.
func (l *BufferLogger) Clear() {
	l.Messages = l.Messages[:0]
}

var defaultLogger = NewEnvLogger("")

// Default returns the process-wide default logger.
func Default() Logger {
	return defaultLogger
}

// SetDefault replaces the process-wide default logger.
func SetDefault(l Logger) {
	defaultLogger = l
}
