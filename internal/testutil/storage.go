package testutil

import (
	"path/filepath"
	"testing"

	"bagger/internal/bagger"
	"bagger/internal/storage"
)

// NewTestStorage creates an in-memory Storage.
func NewTestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage()
}

// NewTestSQLiteStorage creates a migrated SQLite Storage in a temp directory.
// It is closed when the test completes.
func NewTestSQLiteStorage(t *testing.T) bagger.Storage {
	t.Helper()

	s, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "bagger.db"))
	if err != nil {
		t.Fatalf("failed to open sqlite storage: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})
	return s
}
