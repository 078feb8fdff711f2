package app

import (
	"strings"
	"time"
)

// Operation identifies one CLI invocation in the log. Every record written
// during the invocation carries its ID.
type Operation struct {
	Name      string
	ID        string
	StartedAt time.Time
}

// NewOperation creates an operation started at now. The ID is the UTC start
// time followed by the lowercased name, e.g. "20240115T103000Z-sync".
func NewOperation(name string, now time.Time) *Operation {
	now = now.UTC()
	id := now.Format("20060102T150405Z")
	if name != "" {
		id += "-" + strings.ToLower(name)
	}
	return &Operation{Name: name, ID: id, StartedAt: now}
}

// Elapsed returns the time since the operation started.
func (op *Operation) Elapsed(now time.Time) time.Duration {
	return now.Sub(op.StartedAt)
}
