package bagger

import (
	"context"
	"io"
)

// ExportSink is a destination for library exports.
// Put reads exactly size bytes from r and stores them under name.
type ExportSink interface {
	Put(ctx context.Context, name string, r io.Reader, size int64) error

	// Get writes the export stored under name to w.
	Get(ctx context.Context, name string, w io.Writer) error

	// Location describes where name ends up, for display.
	Location(name string) string

	// ValidateSetup verifies the sink is reachable and writable.
	ValidateSetup(ctx context.Context) error
}
