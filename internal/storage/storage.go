// Package storage contains the narrow client for the distributed filesystem
// that holds durable, primary copies of uploaded files. Implementations report
// failures as plain errors with no structured retry of their own; retry policy
// belongs to the caller.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"wastemap/internal/config"
)

// FileInfo contains basic information about a file in the distributed store.
type FileInfo struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// DistributedStore is the remote filesystem client used by the upload
// coordinator, the retry reconciler and the unified reader. All methods are
// blocking I/O against a potentially slow or unavailable cluster; callers
// must treat every error as transient unless it wraps fs.ErrNotExist.
type DistributedStore interface {
	// MkdirAll recursively creates dir. Creating an existing directory is not
	// an error.
	MkdirAll(ctx context.Context, dir string) error
	// Write streams r to path, replacing any existing file, and returns the
	// number of bytes written.
	Write(ctx context.Context, path string, r io.Reader) (int64, error)
	// Read opens path for streaming. The caller must close the returned reader.
	Read(ctx context.Context, path string) (io.ReadCloser, error)
	// Delete removes path. A missing file is not an error.
	Delete(ctx context.Context, path string) error
	// Stat returns information about path, or an error wrapping fs.ErrNotExist.
	Stat(ctx context.Context, path string) (FileInfo, error)
}

// New constructs the distributed store backend selected by cfg.Backend.
func New(cfg config.StorageConfig) (DistributedStore, error) {
	switch cfg.Backend {
	case "hdfs":
		return NewHDFS(cfg.HDFS)
	case "s3":
		return NewMinIO(cfg.S3)
	default:
		return nil, fmt.Errorf("unknown storage backend: %q", cfg.Backend)
	}
}
