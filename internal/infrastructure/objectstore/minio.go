// Package objectstore keeps transaction images in MinIO or any S3 compatible
// store.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/securetransact/escrow-api/internal/core/ports"
)

const defaultBucket = "transaction-images"

// Config holds the MinIO connection settings.
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL prefixes returned object URIs; defaults to the endpoint URL.
	PublicURL string
}

// MinioStore implements ports.ImageStore.
type MinioStore struct {
	mc        *minio.Client
	bucket    string
	publicURL string
}

var _ ports.ImageStore = (*MinioStore)(nil)

// NewMinioStore creates the client. It does not contact the server; call
// EnsureBucket for that.
func NewMinioStore(cfg Config) (*MinioStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("minio endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("minio access key and secret key are required")
	}

	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	bucket := cfg.Bucket
	if bucket == "" {
		bucket = defaultBucket
	}
	public := strings.TrimRight(cfg.PublicURL, "/")
	if public == "" {
		public = strings.TrimRight(mc.EndpointURL().String(), "/")
	}
	return &MinioStore{mc: mc, bucket: bucket, publicURL: public}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.mc.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		if err := s.mc.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("create bucket: %w", err)
		}
	}
	return nil
}

// Put uploads an object and returns the URI it can be fetched from.
func (s *MinioStore) Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.mc.PutObject(ctx, s.bucket, key, body, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return s.objectURL(key), nil
}

func (s *MinioStore) objectURL(key string) string {
	return s.publicURL + "/" + url.PathEscape(s.bucket) + "/" + (&url.URL{Path: key}).EscapedPath()
}
