package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"flowbot/pkg/config"
)

func TestNewWithWriterJSON(t *testing.T) {
	t.Setenv("FLOWBOT_LOG_FORMAT", "")
	t.Setenv("FLOWBOT_LOG_LEVEL", "")

	var buf bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	log.Debug("Webhook received", "channel", "messenger")

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("output is not JSON: %v (%q)", err, buf.String())
	}
	if record["msg"] != "Webhook received" || record["channel"] != "messenger" {
		t.Fatalf("unexpected record: %v", record)
	}
}

func TestNewWithWriterText(t *testing.T) {
	t.Setenv("FLOWBOT_LOG_FORMAT", "")
	t.Setenv("FLOWBOT_LOG_LEVEL", "")

	var buf bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "text"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	log.Info("Gateway listening", "addr", "0.0.0.0:8080")

	if !strings.Contains(buf.String(), "Gateway listening") {
		t.Fatalf("message missing from output: %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	t.Setenv("FLOWBOT_LOG_FORMAT", "")
	t.Setenv("FLOWBOT_LOG_LEVEL", "")

	var buf bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "warn"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	log.Info("should be dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record leaked through warn level: %q", buf.String())
	}

	log.Warn("should pass")
	if buf.Len() == 0 {
		t.Fatal("warn record was dropped")
	}
}

func TestEnvOverridesFileConfig(t *testing.T) {
	t.Setenv("FLOWBOT_LOG_FORMAT", "json")
	t.Setenv("FLOWBOT_LOG_LEVEL", "error")

	var buf bytes.Buffer
	log, err := NewWithWriter(config.LoggingConfig{Format: "text", Level: "debug"}, &buf)
	if err != nil {
		t.Fatalf("NewWithWriter: %v", err)
	}

	log.Warn("below env level")
	if buf.Len() != 0 {
		t.Fatalf("env level override ignored: %q", buf.String())
	}

	log.Error("at env level")
	if !json.Valid(buf.Bytes()) {
		t.Fatalf("env format override ignored: %q", buf.String())
	}
}

func TestUnsupportedValues(t *testing.T) {
	t.Setenv("FLOWBOT_LOG_FORMAT", "")
	t.Setenv("FLOWBOT_LOG_LEVEL", "")

	if _, err := NewWithWriter(config.LoggingConfig{Format: "yaml"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
	if _, err := NewWithWriter(config.LoggingConfig{Format: "json", Level: "loud"}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected an error for an unsupported level")
	}
}
