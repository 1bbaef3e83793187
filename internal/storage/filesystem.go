package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Compile-time check that FileSystem implements BlobStore.
var _ BlobStore = (*FileSystem)(nil)

// FileSystem implements BlobStore on the local filesystem. Blobs are
// stored at <basePath>/<path> and served under <baseURL>/files/<path>.
type FileSystem struct {
	basePath string
	baseURL  string
}

// NewFileSystem creates a FileSystem store rooted at basePath.
func NewFileSystem(basePath, baseURL string) *FileSystem {
	return &FileSystem{basePath: basePath, baseURL: strings.TrimRight(baseURL, "/")}
}

// blobPath maps a blob path onto the filesystem. Paths whose cleaned
// form escapes the base directory are rejected.
func (fs *FileSystem) blobPath(path string) (string, error) {
	dst := filepath.Join(fs.basePath, filepath.FromSlash(path))
	base := filepath.Clean(fs.basePath)
	if dst == base || !strings.HasPrefix(dst, base+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid blob path: %s", path)
	}
	return dst, nil
}

// Put writes data to disk using atomic write (temp file + rename) and
// returns the stored path.
func (fs *FileSystem) Put(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	dst, err := fs.blobPath(path)
	if err != nil {
		return "", err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Write to a temp file in the same directory for atomic rename.
	tmp, err := os.CreateTemp(dir, "upload-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	// Clean up the temp file on any error path.
	defer func() {
		if tmpPath != "" {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return "", fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}

	// Rename succeeded; prevent deferred cleanup from removing the final file.
	tmpPath = ""

	return path, nil
}

// Get opens the stored blob and returns an io.ReadCloser.
func (fs *FileSystem) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	p, err := fs.blobPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob not found: %s", path)
		}
		return nil, fmt.Errorf("opening blob %s: %w", path, err)
	}
	return f, nil
}

// Remove deletes the blobs at the given paths. It is idempotent: removing
// a non-existent blob returns no error.
func (fs *FileSystem) Remove(ctx context.Context, paths []string) error {
	for _, p := range paths {
		dst, err := fs.blobPath(p)
		if err != nil {
			return err
		}
		if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing blob %s: %w", p, err)
		}
	}
	return nil
}

// PublicURL returns the delivery URL for a stored blob.
func (fs *FileSystem) PublicURL(path string) string {
	return fs.baseURL + "/files/" + path
}
