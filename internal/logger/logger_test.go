package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"none", LevelNone},
		{"invalid", LevelInfo}, // defaults to info
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := ParseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestLevelFiltering(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "bridge.log")

	l, err := New(LevelInfo, logPath, "bridge")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}

	l.Info("visible message")
	l.Debug("hidden message")
	l.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	content := string(data)
	if !strings.Contains(content, "visible message") {
		t.Errorf("Expected info message in log, got: %s", content)
	}
	if strings.Contains(content, "hidden message") {
		t.Errorf("Debug message should be filtered at info level, got: %s", content)
	}
	if !strings.Contains(content, "[bridge]") {
		t.Errorf("Expected prefix in log line, got: %s", content)
	}
}

func TestDisabledLogger(t *testing.T) {
	l, err := New(LevelNone, "", "")
	if err != nil {
		t.Fatalf("Failed to create disabled logger: %v", err)
	}
	defer l.Close()

	// Must not panic or write anywhere
	l.Error("nothing happens")
}

func TestWithPrefix(t *testing.T) {
	tempDir := t.TempDir()
	logPath := filepath.Join(tempDir, "prefixed.log")

	base, err := New(LevelDebug, logPath, "bridge")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer base.Close()

	sub := base.WithPrefix("server")
	sub.Info("from subcomponent")
	base.Close()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "[bridge:server]") {
		t.Errorf("Expected nested prefix, got: %s", data)
	}
}
