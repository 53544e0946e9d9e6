package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

func TestInitLogger_ValidLevels(t *testing.T) {
	tests := []struct {
		name  string
		level string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"warn", "warn"},
		{"error", "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := InitLoggerWithWriter(&buf, tt.level, "text")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			logger := GetLogger()
			if logger == nil {
				t.Fatal("GetLogger() returned nil")
			}
		})
	}
}

func TestInitLogger_InvalidLevel(t *testing.T) {
	err := InitLogger("invalid", "text")
	if err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestInitLogger_InvalidFormat(t *testing.T) {
	err := InitLogger("info", "xml")
	if err == nil {
		t.Error("expected error for invalid log format, got nil")
	}
}

func TestInitLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerWithWriter(&buf, "warn", "text"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	GetLogger().Info("hidden message")
	GetLogger().Warn("visible message")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Error("info message should be filtered at warn level")
	}
	if !strings.Contains(out, "visible message") {
		t.Error("warn message should be written")
	}
}

func TestInitLogger_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := InitLoggerWithWriter(&buf, "info", "json"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	GetLogger().Info("processed", "tracks", 2)

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "processed" {
		t.Errorf("msg = %v, want processed", record["msg"])
	}
	if record["tracks"] != float64(2) {
		t.Errorf("tracks = %v, want 2", record["tracks"])
	}
}

func TestGetLogger_BeforeInit(t *testing.T) {
	// globalLoggerをリセット
	globalLogger = nil

	logger := GetLogger()
	if logger == nil {
		t.Error("GetLogger() should return default logger when not initialized")
	}

	// デフォルトロガーが返されることを確認
	if logger != slog.Default() {
		t.Error("GetLogger() should return slog.Default() when not initialized")
	}
}

func TestGetLogger_AfterInit(t *testing.T) {
	var buf bytes.Buffer
	err := InitLoggerWithWriter(&buf, "info", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger := GetLogger()
	if logger == nil {
		t.Error("GetLogger() returned nil after initialization")
	}

	if logger != globalLogger {
		t.Error("GetLogger() should return the initialized logger")
	}
}
