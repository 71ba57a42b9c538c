package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"demandboard/internal/config"
	"demandboard/pkg/contracts/domain"
)

func readLogLines(t *testing.T, path string) []map[string]interface{} {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	var entries []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(string(content)), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]interface{}
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("Log output is not valid JSON: %v", err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestInitializeLogger(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "nested", "test.log")
	cfg := config.LoggingConfig{
		Level:    "info",
		Format:   "json",
		Output:   "file",
		FilePath: logFile,
	}

	logger, err := InitializeLogger(cfg)
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	if logger == nil {
		t.Fatal("Logger is nil")
	}
	if GetLogger() != logger {
		t.Error("GetLogger did not return the initialized logger")
	}

	logger.Info("test message", "key", "value")
	CloseLogFile()

	entries := readLogLines(t, logFile)
	if len(entries) != 1 {
		t.Fatalf("Expected 1 log line, got %d", len(entries))
	}
	if entries[0]["msg"] != "test message" {
		t.Errorf("Expected msg='test message', got %v", entries[0]["msg"])
	}
	if entries[0]["key"] != "value" {
		t.Errorf("Expected key='value', got %v", entries[0]["key"])
	}
	if entries[0]["level"] != "INFO" {
		t.Errorf("Expected level='INFO', got %v", entries[0]["level"])
	}
}

func TestInitializeLogger_OnlyOnce(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	first, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "console"})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}
	second, _ := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "console"})
	if first != second {
		t.Error("Second initialization replaced the logger")
	}
}

func TestTraceIDInjection(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "test.log")
	_, err := InitializeLogger(config.LoggingConfig{Level: "debug", Output: "file", FilePath: logFile})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := WithTraceID(context.Background(), "test-trace-123")
	GetLogger().InfoContext(ctx, "test with trace")
	GetLogger().InfoContext(context.Background(), "test without trace")
	CloseLogFile()

	entries := readLogLines(t, logFile)
	if len(entries) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(entries))
	}
	if entries[0]["trace_id"] != "test-trace-123" {
		t.Errorf("Expected trace_id='test-trace-123', got %v", entries[0]["trace_id"])
	}
	if _, ok := entries[1]["trace_id"]; ok {
		t.Errorf("Unexpected trace_id on untraced entry: %v", entries[1]["trace_id"])
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			if got := ParseLevel(tt.level); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := EnsureTraceID(context.Background())
	traceID := GetTraceID(ctx)
	if traceID == "" {
		t.Fatal("EnsureTraceID did not set a trace ID")
	}
	if got := GetTraceID(EnsureTraceID(ctx)); got != traceID {
		t.Errorf("EnsureTraceID replaced existing trace ID %q with %q", traceID, got)
	}
	if GetTraceID(EnsureTraceID(context.Background())) == traceID {
		t.Error("EnsureTraceID returned duplicate IDs")
	}
}

func TestWithComponent(t *testing.T) {
	ResetLoggerForTesting()
	defer ResetLoggerForTesting()

	logFile := filepath.Join(t.TempDir(), "test.log")
	logger, err := InitializeLogger(config.LoggingConfig{Level: "info", Output: "file", FilePath: logFile})
	if err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	WithComponent(logger, "dataset").Info("generated")
	CloseLogFile()

	entries := readLogLines(t, logFile)
	if entries[0]["component"] != "dataset" {
		t.Errorf("Expected component='dataset', got %v", entries[0]["component"])
	}
}

func TestNewLogger_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo, "text")

	logger.Debug("hidden")
	logger.InfoContext(WithTraceID(context.Background(), "abc"), "shown", "rows", 5)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("Debug record written at info level: %q", out)
	}
	for _, want := range []string{"msg=shown", "rows=5", "trace_id=abc"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %q in %q", want, out)
		}
	}
}

func TestWithEvaluation(t *testing.T) {
	var buf bytes.Buffer
	logger := WithComponent(NewLogger(&buf, slog.LevelInfo, "json"), "dashboard_service")

	ctx := WithEvaluation(context.Background(), "websocket", domain.FilterCriteria{
		Products: []string{"Product 2", "Product 1"},
		Start:    time.Date(2025, 7, 6, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2025, 8, 3, 0, 0, 0, 0, time.UTC),
	})
	ctx = WithLogAttrs(ctx, slog.Bool("cached", true))
	logger.InfoContext(ctx, "evaluation completed")
	logger.Info("no context")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected 2 log lines, got %d", len(lines))
	}

	var entry struct {
		Component  string `json:"component"`
		Cached     bool   `json:"cached"`
		Evaluation struct {
			Source   string   `json:"source"`
			Products []string `json:"products"`
			From     string   `json:"from"`
			To       string   `json:"to"`
		} `json:"evaluation"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("Log output is not valid JSON: %v", err)
	}
	if entry.Component != "dashboard_service" || !entry.Cached {
		t.Errorf("Unexpected attributes: %+v", entry)
	}
	if entry.Evaluation.Source != "websocket" || entry.Evaluation.From != "2025-07-06" || entry.Evaluation.To != "2025-08-03" {
		t.Errorf("Unexpected evaluation group: %+v", entry.Evaluation)
	}
	if strings.Join(entry.Evaluation.Products, ",") != "Product 2,Product 1" {
		t.Errorf("Unexpected products: %v", entry.Evaluation.Products)
	}
	if strings.Contains(lines[1], "evaluation") {
		t.Errorf("Evaluation attributes leaked onto an unrelated record: %s", lines[1])
	}
}
