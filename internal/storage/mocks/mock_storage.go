package mocks

import (
	"context"
	"io"

	"wastemap/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockDistributedStore struct {
	mock.Mock
}

func (m *MockDistributedStore) MkdirAll(ctx context.Context, dir string) error {
	args := m.Called(ctx, dir)
	return args.Error(0)
}

func (m *MockDistributedStore) Write(ctx context.Context, path string, r io.Reader) (int64, error) {
	args := m.Called(ctx, path, r)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDistributedStore) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockDistributedStore) Delete(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}

func (m *MockDistributedStore) Stat(ctx context.Context, path string) (storage.FileInfo, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(storage.FileInfo), args.Error(1)
}
