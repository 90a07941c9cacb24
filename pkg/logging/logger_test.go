package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != LevelInfo {
		t.Errorf("Expected default level to be Info, got %s", cfg.Level)
	}

	if cfg.Pretty != false {
		t.Error("Expected default pretty to be false")
	}
}

func TestSetup(t *testing.T) {
	buf := &bytes.Buffer{}
	logger, err := Setup(Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: buf,
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info().Msg("test info message")

	if !strings.Contains(buf.String(), "test info message") {
		t.Errorf("Expected output to contain message, got %q", buf.String())
	}
}

func TestSetup_FileTee(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	buf := &bytes.Buffer{}

	logger, err := Setup(Config{
		Level:  LevelInfo,
		Output: buf,
		File:   path,
	})
	if err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger.Info().Msg("tee message")

	if !strings.Contains(buf.String(), "tee message") {
		t.Errorf("Expected primary output to contain message, got %q", buf.String())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "tee message") {
		t.Errorf("Expected log file to contain message, got %q", string(data))
	}
}

func TestSetup_BadFile(t *testing.T) {
	if _, err := Setup(Config{
		Level:  LevelInfo,
		Output: &bytes.Buffer{},
		File:   filepath.Join(t.TempDir(), "missing", "run.log"),
	}); err == nil {
		t.Error("Setup() should fail for an uncreatable log file")
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    LogLevel
		expected zerolog.Level
	}{
		{LevelDebug, zerolog.DebugLevel},
		{LevelInfo, zerolog.InfoLevel},
		{LevelWarn, zerolog.WarnLevel},
		{LevelError, zerolog.ErrorLevel},
		{"invalid", zerolog.InfoLevel}, // Should default to Info
	}

	for _, tt := range tests {
		t.Run(string(tt.input), func(t *testing.T) {
			result := parseLevel(tt.input)
			if result != tt.expected {
				t.Errorf("parseLevel(%q) = %v, want %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := Setup(Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: buf,
	}); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger := NewLogger("test-component")
	logger.Info().Msg("test message")

	output := buf.String()
	if !strings.Contains(output, "test-component") {
		t.Errorf("Expected output to contain 'test-component', got %q", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("Expected output to contain 'test message', got %q", output)
	}
}

func TestLogLevelFiltering(t *testing.T) {
	buf := &bytes.Buffer{}
	if _, err := Setup(Config{
		Level:  LevelWarn,
		Pretty: false,
		Output: buf,
	}); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	logger := NewLogger("test")

	// These should NOT appear (below warn level)
	logger.Debug().Msg("debug message")
	logger.Info().Msg("info message")

	// These SHOULD appear (warn level and above)
	logger.Warn().Msg("warn message")
	logger.Error().Msg("error message")

	output := buf.String()

	if strings.Contains(output, "debug message") {
		t.Error("Debug message should be filtered out at Warn level")
	}
	if strings.Contains(output, "info message") {
		t.Error("Info message should be filtered out at Warn level")
	}
	if !strings.Contains(output, "warn message") {
		t.Error("Warn message should be included at Warn level")
	}
	if !strings.Contains(output, "error message") {
		t.Error("Error message should be included at Warn level")
	}
}
