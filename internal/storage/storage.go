// Package storage provides object storage for media assets, narration audio,
// and generated reel output.
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectStore abstracts the S3-compatible backend so the pipeline can be
// tested against fakes.
type ObjectStore interface {
	// Upload writes an object. Keys are unique per pipeline run, so uploads
	// never contend.
	Upload(ctx context.Context, bucket, key string, r io.Reader, size int64, contentType string) error
	// SignedURL mints a fresh time-limited access URL. URLs are never cached
	// across pipeline runs.
	SignedURL(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
}
