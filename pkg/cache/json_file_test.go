package cache

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type sample struct {
	Name  string         `json:"name"`
	Items map[string]int `json:"items"`
}

func TestLoadJSONMissingFile(t *testing.T) {
	var out sample
	err := LoadJSON(filepath.Join(t.TempDir(), "missing.json"), &out)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadJSONCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatal(err)
	}
	var out sample
	err := LoadJSON(path, &out)
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}

func TestSaveJSONCreatesParentAndRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "state.json")
	in := sample{Name: "a", Items: map[string]int{"z": 1, "b": 2}}
	if err := SaveJSON(path, in); err != nil {
		t.Fatalf("save: %v", err)
	}
	var out sample
	if err := LoadJSON(path, &out); err != nil {
		t.Fatalf("load: %v", err)
	}
	if out.Name != "a" || out.Items["z"] != 1 || out.Items["b"] != 2 {
		t.Fatalf("unexpected round trip: %+v", out)
	}
}

func TestSaveJSONIsByteIdentical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	in := sample{Name: "same", Items: map[string]int{"c": 3, "a": 1, "b": 2}}
	if err := SaveJSON(path, in); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := SaveJSON(path, in); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("expected identical bytes:\n%s\n---\n%s", first, second)
	}
}

func TestSaveJSONLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	if err := SaveJSON(path, sample{Name: "x"}); err != nil {
		t.Fatal(err)
	}
	// Unencodable value fails before any temp file is created.
	if err := SaveJSON(path, map[string]any{"bad": make(chan int)}); err == nil {
		t.Fatal("expected encode error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "state.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only state.json, got %v", names)
	}
}

func TestWriteFileAtomicRemovesTempOnRenameFailure(t *testing.T) {
	dir := t.TempDir()
	// A directory at the target path makes the final rename fail.
	target := filepath.Join(dir, "target")
	if err := os.MkdirAll(filepath.Join(target, "child"), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := WriteFileAtomic(target, []byte("data"), 0o600); err == nil {
		t.Fatal("expected rename error")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp file to be removed, found %d entries", len(entries))
	}
}
