// Package cache implements the local fallback cache: a directory on local
// durable storage holding files that could not reach the distributed store.
// It is a durability backstop, not a performance cache — its contents are the
// only copy of at-risk bytes and are never treated as disposable.
package cache

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Cache manages files under a configured root directory, keyed by
// "{record-id}_{basename(filename)}".
type Cache struct {
	root string
}

// New creates a Cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache root %q: %w", dir, err)
	}
	// Resolve to an absolute path so the containment checks below are stable.
	absRoot, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	return &Cache{root: absRoot}, nil
}

// Root returns the absolute cache root directory.
func (c *Cache) Root() string {
	return c.root
}

// FileName derives the record-scoped cache key for an uploaded file.
// Only the basename of the client-supplied filename is used, so a hostile
// filename cannot navigate outside the cache root.
func FileName(id int64, filename string) string {
	return fmt.Sprintf("%d_%s", id, filepath.Base(filename))
}

// contains verifies that path is a file under the cache root.
func (c *Cache) contains(path string) error {
	rel, err := filepath.Rel(c.root, filepath.Clean(path))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("path %q is outside the cache root", path)
	}
	return nil
}

// Stage streams r into a temporary file inside the cache root and returns its
// path and size. Staging inside the root keeps the later Promote rename on a
// single volume, which is what makes it atomic. The caller must Discard the
// staged file on every exit path; Discard after a successful Promote is a no-op.
func (c *Cache) Stage(r io.Reader) (string, int64, error) {
	f, err := os.CreateTemp(c.root, ".staging-*")
	if err != nil {
		return "", 0, fmt.Errorf("create staging file: %w", err)
	}

	n, werr := io.Copy(f, r)
	cerr := f.Close()

	if werr != nil {
		os.Remove(f.Name())
		return "", 0, fmt.Errorf("stage upload: %w", werr)
	}
	if cerr != nil {
		os.Remove(f.Name())
		return "", 0, fmt.Errorf("flush staging file: %w", cerr)
	}
	return f.Name(), n, nil
}

// Promote atomically moves a staged file into the cache under the record's
// key and returns the final path. No partial file is ever visible to
// concurrent readers.
func (c *Cache) Promote(staged string, id int64, filename string) (string, error) {
	if err := c.contains(staged); err != nil {
		return "", err
	}
	dest := filepath.Join(c.root, FileName(id, filename))
	if err := os.Rename(staged, dest); err != nil {
		return "", fmt.Errorf("promote staged file: %w", err)
	}
	return dest, nil
}

// Open opens a cached file for sequential reading, returning its size.
// The caller must close the returned ReadCloser.
func (c *Cache) Open(path string) (io.ReadCloser, int64, error) {
	if err := c.contains(path); err != nil {
		return nil, 0, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

// Exists reports whether a cached file is present at path.
func (c *Cache) Exists(path string) bool {
	if c.contains(path) != nil {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes a cached file. A missing file is not an error: it may have
// already been evicted by a prior successful retry.
func (c *Cache) Remove(path string) error {
	if err := c.contains(path); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Discard removes a staging file, tolerating its absence. Used in defers so
// every exit path of an upload attempt cleans up after itself.
func (c *Cache) Discard(staged string) {
	if staged == "" {
		return
	}
	_ = os.Remove(staged)
}
