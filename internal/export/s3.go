package export

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"bagger/internal/bagger"
)

// S3Options configures an S3Sink. Empty credentials fall back to the default
// AWS credential chain. Endpoint targets S3-compatible stores such as MinIO.
type S3Options struct {
	Bucket          string
	Prefix          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// S3Sink uploads exports to an S3 bucket under an optional key prefix.
type S3Sink struct {
	client   *s3.Client
	uploader *manager.Uploader
	bucket   string
	prefix   string
}

var _ bagger.ExportSink = (*S3Sink)(nil)

// NewS3Sink loads AWS configuration and creates the client.
func NewS3Sink(ctx context.Context, opts S3Options) (*S3Sink, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 export requires s3_bucket to be set")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" && opts.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Sink{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   opts.Bucket,
		prefix:   normalizePrefix(opts.Prefix),
	}, nil
}

func (s *S3Sink) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(name)),
		Body:          r,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("uploading %s: %w", s.key(name), err)
	}
	return nil
}

func (s *S3Sink) Get(ctx context.Context, name string, w io.Writer) error {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(name)),
	})
	if err != nil {
		return fmt.Errorf("downloading %s: %w", s.key(name), err)
	}
	defer out.Body.Close()

	if _, err := io.Copy(w, out.Body); err != nil {
		return fmt.Errorf("reading %s: %w", s.key(name), err)
	}
	return nil
}

func (s *S3Sink) Location(name string) string {
	return "s3://" + s.bucket + "/" + s.key(name)
}

// ValidateSetup checks that the bucket exists and is reachable.
func (s *S3Sink) ValidateSetup(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.bucket)}); err != nil {
		return fmt.Errorf("s3 bucket %s not accessible: %w", s.bucket, err)
	}
	return nil
}

func (s *S3Sink) key(name string) string {
	return s.prefix + name
}

// normalizePrefix strips leading slashes and ensures a trailing one.
func normalizePrefix(p string) string {
	p = strings.TrimLeft(p, "/")
	if p != "" && !strings.HasSuffix(p, "/") {
		p += "/"
	}
	return p
}
