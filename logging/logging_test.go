package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestNewWithWriter_FiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)

	logger.Debug("hidden message")
	logger.Info("visible message", "module", "test")

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Error("Debug record should be filtered when debug is off")
	}
	if !strings.Contains(out, "visible message") {
		t.Error("Info record should be written")
	}
	if !strings.Contains(out, "module=test") {
		t.Errorf("Expected key/value context in output, got %q", out)
	}
}

func TestNewWithWriter_Debug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, true)

	logger.Debug("debug message")

	if !strings.Contains(buf.String(), "debug message") {
		t.Error("Debug record should be written when debug is on")
	}
}

func TestOrDiscard(t *testing.T) {
	if OrDiscard(nil) == nil {
		t.Fatal("OrDiscard(nil) should return a logger")
	}

	var buf bytes.Buffer
	logger := NewWithWriter(&buf, false)
	if OrDiscard(logger) != logger {
		t.Error("OrDiscard should return the given logger")
	}

	// Must not panic.
	Discard().Error("dropped")
}
