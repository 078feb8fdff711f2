package export

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func TestNormalizePrefix(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"exports", "exports/"},
		{"exports/", "exports/"},
		{"/exports/daily", "exports/daily/"},
		{"///", ""},
	}
	for _, tt := range tests {
		if got := normalizePrefix(tt.in); got != tt.want {
			t.Errorf("normalizePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewS3Sink_RequiresBucket(t *testing.T) {
	if _, err := NewS3Sink(context.Background(), S3Options{Region: "us-east-1"}); err == nil {
		t.Error("NewS3Sink() expected error without bucket")
	}
}

func TestS3Sink_Location(t *testing.T) {
	sink, err := NewS3Sink(context.Background(), S3Options{
		Bucket:          "cheats",
		Prefix:          "/backups",
		Region:          "us-east-1",
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	if err != nil {
		t.Fatalf("NewS3Sink() error = %v", err)
	}
	if got, want := sink.Location("x.json"), "s3://cheats/backups/x.json"; got != want {
		t.Errorf("Location() = %q, want %q", got, want)
	}
}

// TestS3Sink_Integration runs against a real bucket when BAGGER_S3_TEST_BUCKET
// is set. BAGGER_S3_TEST_ENDPOINT may point at an S3-compatible store.
func TestS3Sink_Integration(t *testing.T) {
	bucket := os.Getenv("BAGGER_S3_TEST_BUCKET")
	if bucket == "" {
		t.Skip("BAGGER_S3_TEST_BUCKET not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, err := NewS3Sink(ctx, S3Options{
		Bucket:          bucket,
		Prefix:          "bagger-test",
		Region:          os.Getenv("AWS_REGION"),
		Endpoint:        os.Getenv("BAGGER_S3_TEST_ENDPOINT"),
		AccessKeyID:     os.Getenv("BAGGER_S3_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("BAGGER_S3_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		t.Fatalf("NewS3Sink() error = %v", err)
	}
	if err := sink.ValidateSetup(ctx); err != nil {
		t.Fatalf("ValidateSetup() error = %v", err)
	}

	data := `{"cheats":[]}`
	name := "it-" + time.Now().UTC().Format("20060102T150405.000000000") + ".json"
	if err := sink.Put(ctx, name, strings.NewReader(data), int64(len(data))); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	var buf bytes.Buffer
	if err := sink.Get(ctx, name, &buf); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if buf.String() != data {
		t.Errorf("Get() = %q, want %q", buf.String(), data)
	}
}
