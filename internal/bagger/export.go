package bagger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bagger/internal/model"
)

// BuildExport snapshots the three shared collections, stamped with now.
func BuildExport(snap model.CacheSnapshot, now time.Time) model.Export {
	exp := model.Export{
		Platforms:  snap.Platforms,
		Topics:     snap.Topics,
		Cheats:     snap.Cheats,
		ExportedAt: now.UTC().Truncate(time.Second),
	}
	if exp.Platforms == nil {
		exp.Platforms = []model.Platform{}
	}
	if exp.Topics == nil {
		exp.Topics = []model.Topic{}
	}
	if exp.Cheats == nil {
		exp.Cheats = []model.Cheat{}
	}
	return exp
}

// ExportName is the default file name for an export taken at now.
func ExportName(now time.Time) string {
	return "bagger-export-" + now.UTC().Format("20060102T150405Z") + ".json"
}

// MarshalExport renders exp as indented JSON with a trailing newline.
func MarshalExport(exp model.Export) ([]byte, error) {
	data, err := json.MarshalIndent(exp, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding export: %w", err)
	}
	return append(data, '\n'), nil
}

// Exporter writes library exports to a sink.
type Exporter struct {
	sink   ExportSink
	clock  Clock
	logger Logger
}

func NewExporter(sink ExportSink, clock Clock, logger Logger) *Exporter {
	return &Exporter{sink: sink, clock: clock, logger: logger}
}

// Export writes snap to the sink under name, or ExportName(now) when name is
// empty, and returns where it was written.
func (e *Exporter) Export(ctx context.Context, snap model.CacheSnapshot, name string) (string, error) {
	now := e.clock.Now()
	if name == "" {
		name = ExportName(now)
	}
	data, err := MarshalExport(BuildExport(snap, now))
	if err != nil {
		return "", err
	}
	if err := e.sink.ValidateSetup(ctx); err != nil {
		return "", fmt.Errorf("export destination unavailable: %w", err)
	}
	if err := e.sink.Put(ctx, name, bytes.NewReader(data), int64(len(data))); err != nil {
		return "", fmt.Errorf("writing export %s: %w", name, err)
	}
	loc := e.sink.Location(name)
	e.logger.Info("library exported", "location", loc, "bytes", len(data),
		"cheats", len(snap.Cheats))
	return loc, nil
}

// Read loads the export stored under name back from the sink.
func (e *Exporter) Read(ctx context.Context, name string) (model.Export, error) {
	var buf bytes.Buffer
	if err := e.sink.Get(ctx, name, &buf); err != nil {
		return model.Export{}, fmt.Errorf("reading export %s: %w", name, err)
	}
	var exp model.Export
	if err := json.Unmarshal(buf.Bytes(), &exp); err != nil {
		return model.Export{}, fmt.Errorf("decoding export %s: %w", name, err)
	}
	return exp, nil
}

// Verify reads name back and checks it holds the collections of snap.
func (e *Exporter) Verify(ctx context.Context, snap model.CacheSnapshot, name string) error {
	exp, err := e.Read(ctx, name)
	if err != nil {
		return err
	}
	if len(exp.Platforms) != len(snap.Platforms) || len(exp.Topics) != len(snap.Topics) || len(exp.Cheats) != len(snap.Cheats) {
		return fmt.Errorf("export %s holds %d platforms, %d topics and %d cheats, want %d, %d and %d", name,
			len(exp.Platforms), len(exp.Topics), len(exp.Cheats),
			len(snap.Platforms), len(snap.Topics), len(snap.Cheats))
	}
	e.logger.Debug("export verified", "name", name)
	return nil
}
