package export

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"bagger/internal/bagger"
)

// FileSystemSink writes exports as files in a single directory.
type FileSystemSink struct {
	dir string
}

var _ bagger.ExportSink = (*FileSystemSink)(nil)

// NewFileSystemSink creates the directory if needed.
func NewFileSystemSink(dir string) (*FileSystemSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}
	return &FileSystemSink{dir: dir}, nil
}

// Put writes the export atomically (temp file + rename).
func (s *FileSystemSink) Put(_ context.Context, name string, r io.Reader, size int64) error {
	dest, err := s.path(name)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (s *FileSystemSink) Get(_ context.Context, name string, w io.Writer) error {
	src, err := s.path(name)
	if err != nil {
		return err
	}
	f, err := os.Open(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("export not found: %s", name)
		}
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	return nil
}

func (s *FileSystemSink) Location(name string) string {
	return filepath.Join(s.dir, name)
}

// ValidateSetup checks that the export directory exists and is a directory.
func (s *FileSystemSink) ValidateSetup(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return fmt.Errorf("export directory not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("export path is not a directory: %s", s.dir)
	}
	return nil
}

// path rejects names that would escape the export directory.
func (s *FileSystemSink) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("invalid export name %q", name)
	}
	return filepath.Join(s.dir, name), nil
}
