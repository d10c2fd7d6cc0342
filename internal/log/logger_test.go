package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestConfigureSetsLevel(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "warn", Output: &buf})

	logger().Info().Msg("should be filtered")
	logger().Warn().Msg("should pass")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line at warn level, got %d: %s", len(lines), buf.String())
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(lines[0], &entry); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if entry["message"] != "should pass" {
		t.Errorf("unexpected message: %v", entry["message"])
	}
	if entry["service"] != "clearmedia" {
		t.Errorf("expected service field, got %v", entry["service"])
	}

	Configure(Config{})
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Configure(Config{Level: "info", Output: &buf})

	WithComponent("scanner").Info().Msg("hello")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to parse log line: %v", err)
	}
	if entry[FieldComponent] != "scanner" {
		t.Errorf("expected component=scanner, got %v", entry[FieldComponent])
	}

	Configure(Config{})
}

func TestSetLevelRejectsInvalid(t *testing.T) {
	if err := SetLevel("not-a-level"); err == nil {
		t.Error("expected error for invalid level")
	}
	if err := SetLevel("debug"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	Configure(Config{})
}

func TestBase(t *testing.T) {
	b := Base()
	if b.GetLevel() > zerolog.PanicLevel {
		t.Error("expected a valid base logger")
	}
}

func TestL(t *testing.T) {
	if L() == nil {
		t.Fatal("expected non-nil logger pointer")
	}
}
