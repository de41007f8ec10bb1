package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deskflow/deskflow/pkg/models"
)

// MockTrackingStore is a mock implementation of monitor.TrackingStore.
type MockTrackingStore struct {
	mock.Mock
}

func (m *MockTrackingStore) Track(ctx context.Context, conversation models.TrackedConversation) error {
	args := m.Called(ctx, conversation)

	return args.Error(0)
}

func (m *MockTrackingStore) List(ctx context.Context) ([]models.TrackedConversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.TrackedConversation), args.Error(1)
}

func (m *MockTrackingStore) ListByTicket(
	ctx context.Context,
	ticketID string,
) ([]models.TrackedConversation, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.TrackedConversation), args.Error(1)
}

func (m *MockTrackingStore) Remove(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)

	return args.Bool(0), args.Error(1)
}
