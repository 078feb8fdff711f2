package export

import (
	"context"
	"fmt"
	"os"

	"bagger/internal/bagger"
	"bagger/internal/config"
)

// NewSinkFromConfig creates an ExportSink based on the export config type.
// S3 static credentials are read from BAGGER_S3_ACCESS_KEY_ID and
// BAGGER_S3_SECRET_ACCESS_KEY when set.
func NewSinkFromConfig(ctx context.Context, cfg config.ExportConfig) (bagger.ExportSink, error) {
	switch cfg.Type {
	case "filesystem", "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem export requires dir to be set")
		}
		s, err := NewFileSystemSink(cfg.Dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "memory":
		return NewMemorySink(), nil
	case "s3":
		s, err := NewS3Sink(ctx, S3Options{
			Bucket:          cfg.S3Bucket,
			Prefix:          cfg.S3Prefix,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     os.Getenv("BAGGER_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("BAGGER_S3_SECRET_ACCESS_KEY"),
		})
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown export type: %s", cfg.Type)
	}
}
