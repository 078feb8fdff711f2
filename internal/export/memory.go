package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"

	"bagger/internal/bagger"
)

// MemorySink keeps exports in memory. Useful for tests and dry runs.
// Safe for concurrent use.
type MemorySink struct {
	mu    sync.RWMutex
	files map[string][]byte
}

var _ bagger.ExportSink = (*MemorySink)(nil)

func NewMemorySink() *MemorySink {
	return &MemorySink{files: make(map[string][]byte)}
}

func (m *MemorySink) Put(_ context.Context, name string, r io.Reader, size int64) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read export: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return nil
}

func (m *MemorySink) Get(_ context.Context, name string, w io.Writer) error {
	m.mu.RLock()
	data, ok := m.files[name]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("export not found: %s", name)
	}
	_, err := io.Copy(w, bytes.NewReader(data))
	return err
}

func (m *MemorySink) Location(name string) string {
	return "memory:" + name
}

func (m *MemorySink) ValidateSetup(context.Context) error { return nil }

// Names returns the stored export names, sorted.
func (m *MemorySink) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.files))
	for n := range m.files {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
