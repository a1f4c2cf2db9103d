package service

import (
	"context"

	"github.com/executive-war-room/internal/domain/activity"
	"github.com/executive-war-room/internal/domain/ledger"
	"github.com/stretchr/testify/mock"
)

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, e *ledger.Event, act *activity.Activity) error {
	args := m.Called(ctx, e, act)
	return args.Error(0)
}

func (m *MockEventRepository) Get(ctx context.Context, id string) (*ledger.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Event), args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context, f ledger.Filter) ([]*ledger.Event, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*ledger.Event), args.Error(1)
}

func (m *MockEventRepository) Update(ctx context.Context, id string, mutate ledger.Mutation) (*ledger.Event, error) {
	args := m.Called(ctx, id, mutate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ledger.Event), args.Error(1)
}

type MockActivityRepository struct {
	mock.Mock
}

func (m *MockActivityRepository) Create(ctx context.Context, a *activity.Activity) error {
	args := m.Called(ctx, a)
	return args.Error(0)
}

func (m *MockActivityRepository) GetByEventID(ctx context.Context, eventID string, limit, offset int) ([]*activity.Activity, error) {
	args := m.Called(ctx, eventID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*activity.Activity), args.Error(1)
}

func (m *MockActivityRepository) CountByEventID(ctx context.Context, eventID string) (int64, error) {
	args := m.Called(ctx, eventID)
	return args.Get(0).(int64), args.Error(1)
}
