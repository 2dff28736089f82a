package services

import (
	"context"

	"go-gin-supper-club/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type WaitlistServiceMock struct {
	mock.Mock
}

func NewWaitlistServiceMock() *WaitlistServiceMock {
	return &WaitlistServiceMock{}
}

func (m *WaitlistServiceMock) Join(ctx context.Context, req model.JoinWaitlistRequest) (*model.WaitlistEntry, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WaitlistEntry), args.Error(1)
}

func (m *WaitlistServiceMock) GetEntry(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WaitlistEntry), args.Error(1)
}

func (m *WaitlistServiceMock) ListByEvent(ctx context.Context, eventID uuid.UUID, statuses ...model.WaitlistStatus) ([]*model.WaitlistEntry, error) {
	args := m.Called(ctx, eventID, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WaitlistEntry), args.Error(1)
}

func (m *WaitlistServiceMock) Claim(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Booking), args.Error(1)
}

func (m *WaitlistServiceMock) Withdraw(ctx context.Context, id uuid.UUID) (*model.WaitlistEntry, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.WaitlistEntry), args.Error(1)
}

func (m *WaitlistServiceMock) Promote(ctx context.Context, eventID uuid.UUID) ([]*model.WaitlistEntry, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.WaitlistEntry), args.Error(1)
}

func (m *WaitlistServiceMock) Sweep(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *WaitlistServiceMock) WithdrawAll(ctx context.Context, eventID uuid.UUID) (int, error) {
	args := m.Called(ctx, eventID)
	return args.Int(0), args.Error(1)
}
