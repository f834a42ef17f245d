// Package storage provides the binary object store facade over an
// S3-compatible backend.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PresignTTL is the lifetime of issued download and preview URLs.
const PresignTTL = 15 * time.Minute

// SignedURL is a presigned locator together with the instant the store
// stops honoring it. Callers that cache or relay the URL must carry the
// expiry with it; a fresh clock reading would overstate the lifetime of
// a URL signed earlier.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// Config holds the object store connection settings.
type Config struct {
	// Endpoint overrides the AWS default, e.g. a MinIO address.
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UsePathStyle bool
}

// Store wraps an S3 client plus its presigner for a single bucket.
type Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

// New builds a Store from static credentials.
func New(ctx context.Context, cfg Config) (*Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
	}, nil
}

// NewObjectKey generates an opaque storage key. Keys are date-prefixed
// so bucket listings stay navigable during incident debugging.
func NewObjectKey() string {
	d := time.Now().UTC()
	return fmt.Sprintf("users/%04d/%02d/%02d/%s", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Upload stores raw content under the given key. Retried uploads write
// new keys; this layer makes no idempotency promise.
func (s *Store) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("upload object %s: %w", key, err)
	}

	return nil
}

// Delete removes stored bytes. Deleting a missing key succeeds, which
// keeps the janitor's retries idempotent.
func (s *Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}

	return nil
}

// DownloadURL produces a time-limited locator that serves the object as
// an attachment with the original filename.
func (s *Store) DownloadURL(ctx context.Context, key, filename string) (SignedURL, error) {
	expiresAt := time.Now().UTC().Add(PresignTTL)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(contentDisposition("attachment", filename)),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return SignedURL{}, fmt.Errorf("presign download for %s: %w", key, err)
	}

	return SignedURL{URL: req.URL, ExpiresAt: expiresAt}, nil
}

// PreviewURL produces a time-limited locator that renders inline.
// Callers are expected to filter to image content first; the store does
// not inspect the bytes.
func (s *Store) PreviewURL(ctx context.Context, key string) (SignedURL, error) {
	expiresAt := time.Now().UTC().Add(PresignTTL)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String("inline"),
	}, s3.WithPresignExpires(PresignTTL))
	if err != nil {
		return SignedURL{}, fmt.Errorf("presign preview for %s: %w", key, err)
	}

	return SignedURL{URL: req.URL, ExpiresAt: expiresAt}, nil
}

// Ping checks bucket reachability.
func (s *Store) Ping(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		return fmt.Errorf("head bucket %s: %w", s.bucket, err)
	}

	return nil
}

// contentDisposition builds a header value with a sanitized filename.
func contentDisposition(kind, filename string) string {
	sanitized := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || r < 0x20 {
			return '_'
		}
		return r
	}, filename)

	return fmt.Sprintf(`%s; filename="%s"`, kind, sanitized)
}
