package storage

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"wastemap/internal/config"
)

// minioStore implements DistributedStore against an S3-compatible backend
// (MinIO, AWS S3, etc.). Distributed-store paths map to object keys inside a
// single bucket, with the leading slash stripped. It is safe for concurrent
// use by multiple goroutines.
type minioStore struct {
	client *minio.Client
	bucket string
}

// NewMinIO creates an S3-compatible DistributedStore backed by MinIO.
// It validates connectivity and ensures the bucket exists (creates it if missing).
func NewMinIO(cfg config.S3Config) (DistributedStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("s3 credentials are required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	cli, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	ms := &minioStore{client: cli, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ensure bucket exists.
	exists, err := cli.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket existence: %w", err)
	}
	if !exists {
		if err := cli.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket: %w", err)
		}
	}

	return ms, nil
}

func (m *minioStore) key(path string) string {
	return strings.TrimPrefix(path, "/")
}

// MkdirAll is a no-op: the object namespace is flat and the bucket is ensured
// at construction time.
func (m *minioStore) MkdirAll(_ context.Context, _ string) error {
	return nil
}

// Write uploads the stream with unknown length; the client buffers and chunks
// as required by the backend.
func (m *minioStore) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	info, err := m.client.PutObject(ctx, m.bucket, m.key(path), r, -1, minio.PutObjectOptions{})
	if err != nil {
		return 0, err
	}
	return info.Size, nil
}

// Read opens the object for streaming. Stat is forced up front so a missing
// object fails here rather than on the first read.
func (m *minioStore) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	obj, err := m.client.GetObject(ctx, m.bucket, m.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, asNotExist(err)
	}
	return obj, nil
}

func (m *minioStore) Delete(ctx context.Context, path string) error {
	// RemoveObject is already a no-op for a missing key.
	return m.client.RemoveObject(ctx, m.bucket, m.key(path), minio.RemoveObjectOptions{})
}

func (m *minioStore) Stat(ctx context.Context, path string) (FileInfo, error) {
	st, err := m.client.StatObject(ctx, m.bucket, m.key(path), minio.StatObjectOptions{})
	if err != nil {
		return FileInfo{}, asNotExist(err)
	}
	return FileInfo{Path: path, Size: st.Size, ModTime: st.LastModified}, nil
}

// asNotExist maps the S3 NoSuchKey error onto fs.ErrNotExist so callers can
// use errors.Is across backends.
func asNotExist(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == 404 {
		return fmt.Errorf("%w: %s", fs.ErrNotExist, err)
	}
	return err
}
