package logger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"guardian/pkg/config"
)

func TestLoggerJSONEntryShape(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "info"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.With("component", "channel.web").Info("Chat event", "request_id", "42", "ok", true, "error", errors.New("boom"))

	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry LogEntry
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}

	if entry.Level != "info" {
		t.Fatalf("level = %q, want %q", entry.Level, "info")
	}
	if entry.Message != "Chat event" {
		t.Fatalf("message = %q, want %q", entry.Message, "Chat event")
	}
	if entry.Component != "channel.web" {
		t.Fatalf("component = %q, want %q", entry.Component, "channel.web")
	}
	if entry.Timestamp == "" {
		t.Fatal("expected timestamp")
	}
	if entry.RequestID != "42" {
		t.Fatalf("request_id = %q, want %q", entry.RequestID, "42")
	}
	if _, ok := entry.Fields["request_id"]; ok {
		t.Fatal("request_id must not be repeated in fields")
	}
	if got := entry.Fields["ok"]; got != true {
		t.Fatalf("fields.ok = %v, want true", got)
	}
	if got := entry.Fields["error"]; got != "boom" {
		t.Fatalf("fields.error = %v, want %q", got, "boom")
	}
}

func TestLoggerGroupsPrefixKeys(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.WithGroup("registry").Info("Telemetry tick", "bins", 3)

	var entry LogEntry
	if err := json.Unmarshal(bytes.TrimSpace(out.Bytes()), &entry); err != nil {
		t.Fatalf("unmarshal log entry: %v", err)
	}
	if got := entry.Fields["registry.bins"]; got != float64(3) {
		t.Fatalf("fields[registry.bins] = %v, want 3", got)
	}
}

func TestLoggerLiftsCorrelationKeys(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	base := log.With("component", "gateway.sessions", "session_key", "web:abc")
	base.Info("Reply sent", "request_id", "r-1", "latency", 1500*time.Millisecond)
	base.WithGroup("bus").Info("Event dropped", "request_id", "r-2")

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2:\n%s", len(lines), out.String())
	}

	var first, second LogEntry
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal first entry: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal second entry: %v", err)
	}

	if first.Component != "gateway.sessions" || first.SessionKey != "web:abc" || first.RequestID != "r-1" {
		t.Fatalf("first entry = %+v", first)
	}
	if got := first.Fields["latency"]; got != "1.5s" {
		t.Fatalf("fields.latency = %v, want 1.5s", got)
	}

	if second.SessionKey != "web:abc" {
		t.Fatalf("second session_key = %q, want web:abc", second.SessionKey)
	}
	if second.RequestID != "" || second.Fields["bus.request_id"] != "r-2" {
		t.Fatalf("grouped request_id should stay a field, got %+v", second)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Ignored")
	if got := strings.TrimSpace(out.String()); got != "" {
		t.Fatalf("expected no output for info, got %q", got)
	}

	log.Error("Kept")
	if got := strings.TrimSpace(out.String()); got == "" {
		t.Fatal("expected output for error")
	}
}

func TestLoggerEnvironmentOverrides(t *testing.T) {
	t.Setenv(envLevel, "debug")
	t.Setenv(envFormat, "text")

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{Format: "json", Level: "error"}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Debug("Debug enabled", "component", "test")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected debug output with env override")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format override, got %q", line)
	}
}

func TestLoggerDefaultsToTextFormat(t *testing.T) {
	unsetLoggingEnv(t)

	var out bytes.Buffer
	log, err := newWithWriter(config.LoggingConfig{}, &out)
	if err != nil {
		t.Fatalf("newWithWriter error: %v", err)
	}

	log.Info("Default format")
	line := strings.TrimSpace(out.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	if strings.HasPrefix(line, "{") {
		t.Fatalf("expected text format by default, got %q", line)
	}
}

func TestLoggerRejectsUnknownSettings(t *testing.T) {
	unsetLoggingEnv(t)

	if _, err := newWithWriter(config.LoggingConfig{Format: "xml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
	if _, err := newWithWriter(config.LoggingConfig{Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestLoggerWritesRotatingFile(t *testing.T) {
	unsetLoggingEnv(t)

	path := filepath.Join(t.TempDir(), "guardian.log")
	log, closer, err := New(config.LoggingConfig{Format: "json", Level: "error", File: path})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	log.With("component", "gateway.service").Error("Channel stopped", "channel", "web")
	if err := closer.Close(); err != nil {
		t.Fatalf("close log file: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		t.Fatal("expected a line in the log file")
	}

	var entry LogEntry
	if err := json.Unmarshal(scanner.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal file entry: %v", err)
	}
	if entry.Component != "gateway.service" || entry.Fields["channel"] != "web" {
		t.Fatalf("file entry = %+v", entry)
	}
}

func TestNewWithoutFileReturnsNopCloser(t *testing.T) {
	unsetLoggingEnv(t)

	log, closer, err := New(config.LoggingConfig{Format: "json"})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if log == nil {
		t.Fatal("expected logger")
	}
	if err := closer.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
}

func unsetLoggingEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{envLevel, envFormat, envAddSource} {
		t.Setenv(key, "")
		_ = os.Unsetenv(key)
	}
}
