package ports

import (
	"context"
	"io"
)

// ImageStore persists uploaded transaction images and returns their URI.
type ImageStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
}
