// Package ingest loads the source CSV files into the raw landing area.
//
// Sources are pluggable: a plain directory for local runs, or an S3
// prefix (s3://bucket/prefix) for data-lake drops. Parsing is strict -
// an unreadable file or a malformed header is an operational error, not
// a quality failure.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source yields the raw input files for one run.
type Source interface {
	// Open returns the named file's contents. The caller closes it.
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// DirSource reads input files from a local directory.
type DirSource struct {
	Dir string
}

// Open opens a file under the source directory.
func (d DirSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(d.Dir, name))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return f, nil
}

// S3Source reads input files from an S3 bucket prefix.
type S3Source struct {
	client *s3.Client
	bucket string
	prefix string
}

// S3Options configures the S3 client beyond the default credential chain.
type S3Options struct {
	// Region is the AWS region; empty uses the default chain.
	Region string
	// Endpoint is an optional custom endpoint (MinIO, LocalStack).
	// Setting it also enables path-style addressing.
	Endpoint string
}

// NewS3Source builds a source from an s3://bucket/prefix URL.
func NewS3Source(ctx context.Context, rawURL string, opts S3Options) (*S3Source, error) {
	bucket, prefix, err := splitS3URL(rawURL)
	if err != nil {
		return nil, err
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if opts.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		})
	}

	return &S3Source{
		client: s3.NewFromConfig(awsCfg, s3Opts...),
		bucket: bucket,
		prefix: prefix,
	}, nil
}

// NewS3SourceWithClient builds a source with a pre-configured client.
// Used by tests.
func NewS3SourceWithClient(client *s3.Client, bucket, prefix string) *S3Source {
	return &S3Source{client: client, bucket: bucket, prefix: prefix}
}

// Open fetches an object under the source prefix.
func (s *S3Source) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	key := name
	if s.prefix != "" {
		key = strings.TrimSuffix(s.prefix, "/") + "/" + name
	}

	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get s3://%s/%s: %w", s.bucket, key, err)
	}
	return out.Body, nil
}

// IsS3URL reports whether the data dir refers to an S3 prefix.
func IsS3URL(dir string) bool {
	return strings.HasPrefix(dir, "s3://")
}

func splitS3URL(rawURL string) (bucket, prefix string, err error) {
	if !IsS3URL(rawURL) {
		return "", "", fmt.Errorf("not an s3 URL: %q", rawURL)
	}
	rest := strings.TrimPrefix(rawURL, "s3://")
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("s3 URL %q has no bucket", rawURL)
	}
	return bucket, strings.TrimSuffix(prefix, "/"), nil
}
