package logutil

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConfigureFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	if err := Configure("warn"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	slog.Info("hidden line")
	slog.Warn("visible line", "path", "/tmp/x.jsonl")
	out := buf.String()
	if strings.Contains(out, "hidden line") {
		t.Fatalf("info line should be filtered:\n%s", out)
	}
	if !strings.Contains(out, "visible line") || !strings.Contains(out, "/tmp/x.jsonl") {
		t.Fatalf("expected warn line with attrs:\n%s", out)
	}
}

func TestConfigureTraceMapsToDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(nil) })
	if err := Configure("TRACE"); err != nil {
		t.Fatalf("configure: %v", err)
	}
	slog.Debug("debug line")
	if !strings.Contains(buf.String(), "debug line") {
		t.Fatalf("expected debug output, got %q", buf.String())
	}
}

func TestConfigureRejectsUnknownLevel(t *testing.T) {
	if err := Configure("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
