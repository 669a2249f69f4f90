// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package m2m

import (
	"bytes"
	"context"
	"log"
	"strings"
	"testing"
)

func captureLog(t *testing.T, fn func()) string {
	t.Helper()
	var buf bytes.Buffer
	out := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(out)
	fn()
	return buf.String()
}

func TestDefaultLoggerLevelFiltering(t *testing.T) {
	logger := NewDefaultLogger(LogLevelWarn)
	ctx := context.Background()

	out := captureLog(t, func() {
		logger.Debug(ctx, "debug message")
		logger.Info(ctx, "info message")
		logger.Warn(ctx, "warn message")
		logger.Error(ctx, "error message")
	})

	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below the level were logged:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] warn message") {
		t.Errorf("warn message missing:\n%s", out)
	}
	if !strings.Contains(out, "[ERROR] error message") {
		t.Errorf("error message missing:\n%s", out)
	}
}

func TestDefaultLoggerKeyValues(t *testing.T) {
	logger := NewDefaultLogger(LogLevelDebug)

	out := captureLog(t, func() {
		logger.Info(context.Background(), "request sent", "id", 7, "method", "get")
	})

	if !strings.Contains(out, "id=7") || !strings.Contains(out, "method=get") {
		t.Errorf("key-value pairs missing:\n%s", out)
	}
}

func TestDefaultLoggerSanitizesValues(t *testing.T) {
	logger := NewDefaultLogger(LogLevelDebug)

	out := captureLog(t, func() {
		logger.Info(context.Background(), "payload", "line", "a\nb")
	})

	if !strings.Contains(out, `a\nb`) {
		t.Errorf("newline not escaped:\n%s", out)
	}

	long := strings.Repeat("x", 2000)
	out = captureLog(t, func() {
		logger.Info(context.Background(), "payload", "data", long)
	})
	if !strings.Contains(out, "...(truncated)") {
		t.Error("long value not truncated")
	}
}

func TestNoOpLogger(t *testing.T) {
	logger := NoOpLogger{}

	out := captureLog(t, func() {
		logger.Error(context.Background(), "should not appear")
	})
	if out != "" {
		t.Errorf("NoOpLogger produced output: %q", out)
	}
}
