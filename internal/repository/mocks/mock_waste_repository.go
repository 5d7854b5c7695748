package mocks

import (
	"context"

	"wastemap/internal/model"
	"wastemap/internal/repository"

	"github.com/stretchr/testify/mock"
)

type MockWasteRepository struct {
	mock.Mock
}

func (m *MockWasteRepository) Create(ctx context.Context, rec *model.WasteRecord) (*model.WasteRecord, error) {
	args := m.Called(ctx, rec)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WasteRecord), args.Error(1)
}

func (m *MockWasteRepository) FindByID(ctx context.Context, id int64) (*model.WasteRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WasteRecord), args.Error(1)
}

func (m *MockWasteRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.WasteRecord], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.WasteRecord]), args.Error(1)
}

func (m *MockWasteRepository) Update(ctx context.Context, id int64, fields repository.UpdateFields) (*model.WasteRecord, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WasteRecord), args.Error(1)
}

func (m *MockWasteRepository) SetTier(ctx context.Context, id int64, tier repository.TierUpdate) error {
	args := m.Called(ctx, id, tier)
	return args.Error(0)
}

func (m *MockWasteRepository) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
