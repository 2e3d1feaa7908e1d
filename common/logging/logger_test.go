package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/telhawk-systems/relay/common/middleware"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name   string
		level  slog.Level
		format string
	}{
		{name: "json format with info level", level: slog.LevelInfo, format: "json"},
		{name: "text format with debug level", level: slog.LevelDebug, format: "text"},
		{name: "default format (json) with error level", level: slog.LevelError, format: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := New(tt.level, tt.format)
			if logger == nil || logger.Logger == nil {
				t.Fatal("expected non-nil logger")
			}
		})
	}
}

func TestNewWithWriter_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json").With(Service("intake"))

	logger.Info("forwarded", Username("alice"), Bytes(42))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v (%s)", err, buf.String())
	}
	if entry["service"] != "intake" {
		t.Errorf("service = %v, want intake", entry["service"])
	}
	if entry["username"] != "alice" {
		t.Errorf("username = %v, want alice", entry["username"])
	}
	if entry["bytes"] != float64(42) {
		t.Errorf("bytes = %v, want 42", entry["bytes"])
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelInfo, "json")

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "test-req-123")
	logger.InfoContext(ctx, "with id")
	if !strings.Contains(buf.String(), `"request_id":"test-req-123"`) {
		t.Errorf("expected request ID in log output, got: %s", buf.String())
	}

	buf.Reset()
	logger.InfoContext(context.Background(), "without id")
	if strings.Contains(buf.String(), "request_id") {
		t.Errorf("unexpected request_id in log output: %s", buf.String())
	}
}

func TestLevelsAreFiltered(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, slog.LevelWarn, "text")
	ctx := context.Background()

	logger.DebugContext(ctx, "debug message")
	logger.InfoContext(ctx, "info message")
	logger.WarnContext(ctx, "warn message")
	logger.ErrorContext(ctx, "error message", Error(errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "debug message") || strings.Contains(out, "info message") {
		t.Errorf("messages below warn should be filtered: %s", out)
	}
	if !strings.Contains(out, "warn message") || !strings.Contains(out, "error message") {
		t.Errorf("expected warn and error messages: %s", out)
	}
	if !strings.Contains(out, "error=boom") {
		t.Errorf("expected error attribute: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"WARNING", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSetDefault(t *testing.T) {
	original := slog.Default()
	defer slog.SetDefault(original)

	var buf bytes.Buffer
	SetDefault(NewWithWriter(&buf, slog.LevelInfo, "json"))
	slog.Info("via default")

	if !strings.Contains(buf.String(), "via default") {
		t.Errorf("expected default logger to be replaced, got: %s", buf.String())
	}
}
