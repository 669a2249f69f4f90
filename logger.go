// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// LogLevel represents the severity of a log message.
type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger is the interface for logging within the client. Implementations
// receive a message plus alternating key-value pairs.
type Logger interface {
	Debug(ctx context.Context, msg string, keysAndValues ...any)
	Info(ctx context.Context, msg string, keysAndValues ...any)
	Warn(ctx context.Context, msg string, keysAndValues ...any)
	Error(ctx context.Context, msg string, keysAndValues ...any)
}

// DefaultLogger is a simple logger implementation using the standard
// library log package.
type DefaultLogger struct {
	Level LogLevel
}

// NewDefaultLogger creates a new DefaultLogger with the specified level.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return &DefaultLogger{Level: level}
}

func (l *DefaultLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelDebug, msg, keysAndValues...)
}

func (l *DefaultLogger) Info(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelInfo, msg, keysAndValues...)
}

func (l *DefaultLogger) Warn(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelWarn, msg, keysAndValues...)
}

func (l *DefaultLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {
	l.log(LogLevelError, msg, keysAndValues...)
}

func (l *DefaultLogger) log(level LogLevel, msg string, keysAndValues ...any) {
	if level < l.Level {
		return
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", level, msg))
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		sb.WriteString(fmt.Sprintf(" %v=%v", keysAndValues[i], sanitizeLogValue(keysAndValues[i+1])))
	}
	log.Println(sb.String())
}

// sanitizeLogValue keeps log lines single-line by escaping newlines and
// truncating very long values.
func sanitizeLogValue(v any) string {
	s := fmt.Sprintf("%v", v)
	s = strings.ReplaceAll(s, "\n", "\\n")
	s = strings.ReplaceAll(s, "\r", "\\r")
	if len(s) > 1024 {
		s = s[:1024] + "...(truncated)"
	}
	return s
}

// NoOpLogger is a logger that discards all messages. It is the default.
type NoOpLogger struct{}

func (NoOpLogger) Debug(ctx context.Context, msg string, keysAndValues ...any) {}
func (NoOpLogger) Info(ctx context.Context, msg string, keysAndValues ...any)  {}
func (NoOpLogger) Warn(ctx context.Context, msg string, keysAndValues ...any)  {}
func (NoOpLogger) Error(ctx context.Context, msg string, keysAndValues ...any) {}
