package storage

import (
	"context"
	"io"
)

// BlobStore is byte-object storage keyed by path.
type BlobStore interface {
	// Put writes data under path and returns the stored path.
	Put(ctx context.Context, path string, data []byte, contentType string) (string, error)

	// Get returns a ReadCloser for the stored bytes.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Remove deletes the blobs at the given paths.
	Remove(ctx context.Context, paths []string) error

	// PublicURL returns the URL clients can retrieve the blob from.
	PublicURL(path string) string
}
