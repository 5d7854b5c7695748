package mocks

import (
	"context"

	"wastemap/internal/model"
	"wastemap/internal/service"

	"github.com/stretchr/testify/mock"
)

type MockWasteService struct {
	mock.Mock
}

func (m *MockWasteService) Create(ctx context.Context, in service.CreateInput) (*service.CreateResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CreateResult), args.Error(1)
}

func (m *MockWasteService) List(ctx context.Context, limit, offset int) (*service.WasteListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.WasteListResult), args.Error(1)
}

func (m *MockWasteService) Get(ctx context.Context, id int64) (*model.WasteRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WasteRecord), args.Error(1)
}

func (m *MockWasteService) Update(ctx context.Context, id int64, in service.UpdateInput) (*model.WasteRecord, error) {
	args := m.Called(ctx, id, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WasteRecord), args.Error(1)
}

func (m *MockWasteService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockWasteService) Retry(ctx context.Context, id int64) (*service.RetryResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RetryResult), args.Error(1)
}

func (m *MockWasteService) OpenFile(ctx context.Context, id int64) (*service.FileStream, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.FileStream), args.Error(1)
}
