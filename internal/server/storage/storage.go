// Package storage keeps item photo blobs, either on the local filesystem or
// in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Storage stores blobs under slash-separated keys.
type Storage interface {
	Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error
	// Open returns common.ErrorNotFound for a missing key.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete is idempotent.
	Delete(ctx context.Context, key string) error
	// URL returns where a client can fetch the blob.
	URL(ctx context.Context, key string) (string, error)
}

// NewKey returns a fresh random key for a photo uploaded as filename,
// e.g. items/2025/3/14/<uuid>.jpg.
func NewKey(now time.Time, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("items/%d/%d/%d/%s%s", now.Year(), now.Month(), now.Day(), uuid.New(), ext)
}
