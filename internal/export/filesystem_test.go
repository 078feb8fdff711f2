package export

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFileSystemSink_PutGet(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink, err := NewFileSystemSink(dir)
	if err != nil {
		t.Fatalf("NewFileSystemSink() error = %v", err)
	}

	ctx := context.Background()
	data := []byte(`{"platforms":[]}`)
	if err := sink.Put(ctx, "a.json", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	var buf bytes.Buffer
	if err := sink.Get(ctx, "a.json", &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !bytes.Equal(buf.Bytes(), data) {
		t.Errorf("Get() = %q, want %q", buf.String(), data)
	}

	if got, want := sink.Location("a.json"), filepath.Join(dir, "a.json"); got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file %s left behind", e.Name())
		}
	}
}

func TestFileSystemSink_SizeMismatch(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSystemSink(dir)
	if err != nil {
		t.Fatalf("NewFileSystemSink() error = %v", err)
	}

	err = sink.Put(context.Background(), "a.json", strings.NewReader("abc"), 10)
	if err == nil {
		t.Fatal("Put() expected size mismatch error")
	}
	if _, statErr := os.Stat(filepath.Join(dir, "a.json")); !os.IsNotExist(statErr) {
		t.Errorf("destination should not exist after failed Put, stat error = %v", statErr)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("directory has %d entries, want 0", len(entries))
	}
}

func TestFileSystemSink_InvalidNames(t *testing.T) {
	sink, err := NewFileSystemSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemSink() error = %v", err)
	}

	tests := []string{"", ".", "..", "../escape.json", "sub/dir.json", `win\path.json`}
	for _, name := range tests {
		t.Run(name, func(t *testing.T) {
			if err := sink.Put(context.Background(), name, strings.NewReader("x"), 1); err == nil {
				t.Errorf("Put(%q) expected error", name)
			}
			if err := sink.Get(context.Background(), name, &bytes.Buffer{}); err == nil {
				t.Errorf("Get(%q) expected error", name)
			}
		})
	}
}

func TestFileSystemSink_GetMissing(t *testing.T) {
	sink, err := NewFileSystemSink(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileSystemSink() error = %v", err)
	}
	err = sink.Get(context.Background(), "missing.json", &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("Get() error = %v, want not found", err)
	}
}

func TestFileSystemSink_ValidateSetup(t *testing.T) {
	dir := t.TempDir()
	sink, err := NewFileSystemSink(dir)
	if err != nil {
		t.Fatalf("NewFileSystemSink() error = %v", err)
	}
	if err := sink.ValidateSetup(context.Background()); err != nil {
		t.Errorf("ValidateSetup() error = %v", err)
	}

	if err := os.RemoveAll(dir); err != nil {
		t.Fatalf("RemoveAll() error = %v", err)
	}
	if err := sink.ValidateSetup(context.Background()); err == nil {
		t.Error("ValidateSetup() expected error for removed directory")
	}
}
