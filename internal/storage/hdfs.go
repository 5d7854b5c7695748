package storage

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/colinmarc/hdfs/v2"

	"wastemap/internal/config"
)

// hdfsStore implements DistributedStore against an HDFS cluster using the
// native namenode protocol. It is safe for concurrent use.
//
// The hdfs client exposes no per-operation context; cancellation is honored
// at dial time via the configured dial timeout, which also bounds how long a
// request can hang on an unreachable cluster.
type hdfsStore struct {
	client *hdfs.Client
}

// NewHDFS creates a DistributedStore backed by the HDFS namenode(s) in cfg.
// The connection is established lazily per operation by the client, so an
// unreachable cluster at startup does not prevent the service from serving
// metadata and cache-tier reads.
func NewHDFS(cfg config.HDFSConfig) (DistributedStore, error) {
	if cfg.Namenode == "" {
		return nil, fmt.Errorf("hdfs namenode address is required")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("hdfs user is required")
	}

	dialer := &net.Dialer{Timeout: time.Duration(cfg.DialTimeoutSec) * time.Second}
	client, err := hdfs.NewClient(hdfs.ClientOptions{
		Addresses:        strings.Split(cfg.Namenode, ","),
		User:             cfg.User,
		NamenodeDialFunc: dialer.DialContext,
		DatanodeDialFunc: dialer.DialContext,
	})
	if err != nil {
		return nil, fmt.Errorf("create hdfs client: %w", err)
	}
	return &hdfsStore{client: client}, nil
}

func (h *hdfsStore) MkdirAll(_ context.Context, dir string) error {
	if err := h.client.MkdirAll(dir, 0o755); err != nil && !os.IsExist(err) {
		return err
	}
	return nil
}

// Write replaces any existing file at path. HDFS has no overwrite flag on
// create, so an existing file is removed first.
func (h *hdfsStore) Write(_ context.Context, path string, r io.Reader) (int64, error) {
	if err := h.client.Remove(path); err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("remove existing %q: %w", path, err)
	}

	w, err := h.client.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", path, err)
	}

	n, werr := io.Copy(w, r)
	cerr := w.Close()

	if werr != nil || cerr != nil {
		// A partial file must not be left claiming the remote tier.
		_ = h.client.Remove(path)
		if werr != nil {
			return 0, fmt.Errorf("stream write %q: %w", path, werr)
		}
		return 0, fmt.Errorf("flush %q: %w", path, cerr)
	}
	return n, nil
}

func (h *hdfsStore) Read(_ context.Context, path string) (io.ReadCloser, error) {
	return h.client.Open(path)
}

func (h *hdfsStore) Delete(_ context.Context, path string) error {
	if err := h.client.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (h *hdfsStore) Stat(_ context.Context, path string) (FileInfo, error) {
	info, err := h.client.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}
