package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/wricardo/telemetry-dashboard/board/counter"
	"github.com/wricardo/telemetry-dashboard/board/store"
)

func TestInspectTelemetryMessage(t *testing.T) {
	var buf bytes.Buffer
	err := inspect(&buf, "msg.json", []byte(`{"temp": 21.5, "humidity": 60, "status": "ok"}`), false)
	if err != nil {
		t.Fatalf("inspect failed: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "msg.json (telemetry message, 3 cards)") {
		t.Errorf("Unexpected header: %q", out)
	}
	temp := strings.Index(out, "| temp")
	humidity := strings.Index(out, "| humidity")
	status := strings.Index(out, "| status")
	if !(temp >= 0 && temp < humidity && humidity < status) {
		t.Errorf("Expected cards in message order:\n%s", out)
	}
}

func TestInspectSnapshotFile(t *testing.T) {
	dir := t.TempDir()
	fs, err := store.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	board, _ := counter.New(counter.DefaultMetrics()...)
	board.Add(counter.Products)
	if err := fs.Save(context.Background(), board.Snapshot()); err != nil {
		t.Fatal(err)
	}
	data, err := json.Marshal(board.Snapshot())
	if err != nil {
		t.Fatal(err)
	}

	if !isSnapshot(data) {
		t.Fatal("Expected snapshot detection")
	}

	var buf bytes.Buffer
	if err := inspect(&buf, fs.Path(), data, false); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "snapshot updated") || !strings.Contains(out, "3 cards") {
		t.Errorf("Unexpected header: %q", out)
	}
	if strings.Contains(out, "| metrics") {
		t.Error("Snapshot should render its metrics, not the wrapper object")
	}
}

func TestInspectHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := inspect(&buf, "msg", []byte(`{"a":1}`), true); err != nil {
		t.Fatalf("inspect failed: %v", err)
	}
	if !strings.Contains(buf.String(), `<h2 class="label">a</h2>`) {
		t.Errorf("Expected card markup, got %s", buf.String())
	}
}

func TestInspectErrors(t *testing.T) {
	tests := []string{`{"a":`, `[1,2]`, `42`}
	for _, input := range tests {
		if err := inspect(&bytes.Buffer{}, "bad", []byte(input), false); err == nil {
			t.Errorf("Expected error for %s", input)
		}
	}
}

func TestIsSnapshot(t *testing.T) {
	tests := []struct {
		input    string
		expected bool
	}{
		{`{"metrics":{"a":1},"updated_at":"2024-01-01T00:00:00Z"}`, true},
		{`{"metrics":{"a":1}}`, false},
		{`{"metrics":5,"updated_at":"x"}`, false},
		{`{"orders":1}`, false},
	}
	for _, test := range tests {
		if got := isSnapshot([]byte(test.input)); got != test.expected {
			t.Errorf("isSnapshot(%s) = %v, expected %v", test.input, got, test.expected)
		}
	}
}
