package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestSetupProductionWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("production", &buf)
	logger.Info().Str("component", "test").Msg("hello")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("expected JSON log line, got %q: %v", buf.String(), err)
	}
	if line["message"] != "hello" || line["component"] != "test" {
		t.Fatalf("unexpected log line: %v", line)
	}
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info level, got %v", logger.GetLevel())
	}
}

func TestSetupDevelopmentEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := SetupWithWriter("development", &buf)
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %v", logger.GetLevel())
	}
	logger.Debug().Msg("visible")
	if !bytes.Contains(buf.Bytes(), []byte("visible")) {
		t.Fatalf("debug message missing from output %q", buf.String())
	}
}
