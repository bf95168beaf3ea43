package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/fly-io/imgdispatch/pkg/errors"
)

// ErrNotFound is returned when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// ErrTooLarge is returned when an object exceeds the read limit.
var ErrTooLarge = errors.New("object too large")

// Options configures a bucket client
type Options struct {
	Bucket    string
	Region    string
	Anonymous bool
}

// Client reads image objects from one S3 bucket
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates a new S3 client for the bucket
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	slog.Info("s3_client_init", "bucket", opts.Bucket, "region", opts.Region, "anonymous", opts.Anonymous)

	loadOpts := []func(*config.LoadOptions) error{config.WithRegion(opts.Region)}
	if opts.Anonymous {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(aws.AnonymousCredentials{}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		slog.Error("aws_config_load_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	// Create S3 client
	s3Client := s3.NewFromConfig(cfg)

	slog.Info("s3_client_created", "bucket", opts.Bucket)

	return &Client{
		s3Client: s3Client,
		bucket:   opts.Bucket,
	}, nil
}

// Fetch reads an object into memory. Objects larger than limit bytes are
// rejected with ErrTooLarge; a limit of zero disables the check.
func (c *Client) Fetch(ctx context.Context, key string, limit int64) ([]byte, error) {
	slog.Info("s3_fetch_start", "bucket", c.bucket, "s3_key", key)

	result, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			slog.Info("s3_object_not_found", "s3_key", key)
			return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
		}
		slog.Error("s3_get_object_failed", "s3_key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from S3")
	}
	defer result.Body.Close()

	if limit > 0 && result.ContentLength != nil && *result.ContentLength > limit {
		slog.Error("s3_object_too_large", "s3_key", key, "size", *result.ContentLength, "limit", limit)
		return nil, fmt.Errorf("%s: %w", key, ErrTooLarge)
	}

	var body io.Reader = result.Body
	if limit > 0 {
		body = io.LimitReader(result.Body, limit+1)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		slog.Error("s3_fetch_failed", "s3_key", key, "error", err)
		return nil, errors.Wrap(err, "failed to read object body")
	}
	if limit > 0 && int64(len(data)) > limit {
		slog.Error("s3_object_too_large", "s3_key", key, "limit", limit)
		return nil, fmt.Errorf("%s: %w", key, ErrTooLarge)
	}

	slog.Info("s3_fetch_complete", "s3_key", key, "size", len(data))

	return data, nil
}

// Exists checks if an object exists in S3
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})

	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			slog.Info("s3_object_not_found", "s3_key", key)
			return false, nil
		}
		slog.Error("s3_head_object_failed", "s3_key", key, "error", err)
		return false, errors.Wrap(err, "failed to check object existence")
	}

	slog.Info("s3_object_exists", "s3_key", key)
	return true, nil
}
