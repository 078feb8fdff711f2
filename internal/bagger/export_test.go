package bagger_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"bagger/internal/bagger"
	"bagger/internal/export"
	"bagger/internal/model"
	"bagger/internal/testutil"
)

func TestBuildExport(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 30, 45, 999, time.FixedZone("CET", 3600))

	exp := bagger.BuildExport(model.CacheSnapshot{
		UserCheats: []model.UserCheat{{ID: 1, CheatID: 1, IsFavorite: true}},
	}, now)

	if exp.Platforms == nil || exp.Topics == nil || exp.Cheats == nil {
		t.Error("BuildExport() left nil collections")
	}
	if want := time.Date(2024, 3, 1, 11, 30, 45, 0, time.UTC); !exp.ExportedAt.Equal(want) || exp.ExportedAt.Location() != time.UTC {
		t.Errorf("ExportedAt = %v, want %v", exp.ExportedAt, want)
	}

	data, err := bagger.MarshalExport(exp)
	if err != nil {
		t.Fatalf("MarshalExport() error = %v", err)
	}
	if !bytes.HasSuffix(data, []byte("}\n")) {
		t.Error("export does not end with a newline")
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	for _, key := range []string{"platforms", "topics", "cheats", "exported_at"} {
		if _, ok := raw[key]; !ok {
			t.Errorf("export missing %q", key)
		}
	}
	if _, ok := raw["userCheats"]; ok {
		t.Error("export leaked user cheats")
	}
	if string(raw["cheats"]) != "[]" {
		t.Errorf("cheats = %s, want []", raw["cheats"])
	}
	if string(raw["exported_at"]) != `"2024-03-01T11:30:45Z"` {
		t.Errorf("exported_at = %s", raw["exported_at"])
	}
}

func TestExportName(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if got, want := bagger.ExportName(now), "bagger-export-20240115T103000Z.json"; got != want {
		t.Errorf("ExportName() = %q, want %q", got, want)
	}
}

func TestExporter_Export(t *testing.T) {
	sink := export.NewMemorySink()
	clock := testutil.FixedClock()
	exporter := bagger.NewExporter(sink, clock, bagger.NewNopLogger())

	snap := model.CacheSnapshot{
		Platforms: []model.Platform{{ID: 1, Name: "Go", Slug: "go", Type: model.PlatformLanguage}},
		Cheats:    []model.Cheat{{ID: 2, Title: "t", Code: "c", PlatformIDs: []int64{1}, TopicIDs: []int64{}}},
	}

	loc, err := exporter.Export(context.Background(), snap, "")
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	name := bagger.ExportName(clock.Now())
	if loc != "memory:"+name {
		t.Errorf("Export() location = %q", loc)
	}

	var buf bytes.Buffer
	if err := sink.Get(context.Background(), name, &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	var got model.Export
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if len(got.Platforms) != 1 || len(got.Cheats) != 1 || got.Cheats[0].Title != "t" {
		t.Errorf("exported = %+v", got)
	}

	if _, err := exporter.Export(context.Background(), snap, "custom.json"); err != nil {
		t.Fatalf("Export(custom) error = %v", err)
	}
	if names := sink.Names(); len(names) != 2 || !strings.HasPrefix(names[0], "bagger-export-") {
		t.Errorf("Names() = %v", names)
	}
}

func TestExporter_UnavailableDestination(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	sink, err := export.NewFileSystemSink(dir)
	if err != nil {
		t.Fatalf("NewFileSystemSink() error = %v", err)
	}
	if err := os.Remove(dir); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	exporter := bagger.NewExporter(sink, testutil.FixedClock(), bagger.NewNopLogger())

	_, err = exporter.Export(context.Background(), model.CacheSnapshot{}, "")
	if err == nil || !strings.Contains(err.Error(), "export destination unavailable") {
		t.Fatalf("Export() error = %v, want destination unavailable", err)
	}
	if _, statErr := os.Stat(dir); !os.IsNotExist(statErr) {
		t.Error("Export() recreated the missing directory")
	}
}

func TestExporter_Verify(t *testing.T) {
	sink := export.NewMemorySink()
	exporter := bagger.NewExporter(sink, testutil.FixedClock(), bagger.NewNopLogger())
	snap := model.CacheSnapshot{
		Platforms: []model.Platform{{ID: 1, Name: "Go", Slug: "go", Type: model.PlatformLanguage}},
		Topics:    []model.Topic{{ID: 10, Name: "Concurrency", Slug: "concurrency"}},
		Cheats:    []model.Cheat{{ID: 2, Title: "t", Code: "c", PlatformIDs: []int64{1}, TopicIDs: []int64{10}}},
	}

	if _, err := exporter.Export(context.Background(), snap, "lib.json"); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if err := exporter.Verify(context.Background(), snap, "lib.json"); err != nil {
		t.Errorf("Verify() error = %v", err)
	}

	exp, err := exporter.Read(context.Background(), "lib.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if len(exp.Cheats) != 1 || exp.Cheats[0].Title != "t" {
		t.Errorf("Read() cheats = %+v", exp.Cheats)
	}

	grown := snap
	grown.Cheats = append(slices.Clone(snap.Cheats), model.Cheat{ID: 3, Title: "u", Code: "d"})
	if err := exporter.Verify(context.Background(), grown, "lib.json"); err == nil {
		t.Error("Verify() error = nil for a mismatched export")
	}
	if err := exporter.Verify(context.Background(), snap, "missing.json"); err == nil {
		t.Error("Verify() error = nil for a missing export")
	}
}
