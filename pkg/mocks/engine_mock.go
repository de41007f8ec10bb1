package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/events"
)

// MockWorkflowStarter is a mock implementation of dispatch.WorkflowStarter.
type MockWorkflowStarter struct {
	mock.Mock
}

func (m *MockWorkflowStarter) StartWorkflow(ctx context.Context, req engine.StartWorkflowRequest) error {
	args := m.Called(ctx, req)

	return args.Error(0)
}

// MockCredentialProvider is a mock implementation of
// engine.CredentialProvider.
type MockCredentialProvider struct {
	mock.Mock
}

func (m *MockCredentialProvider) EnsureValid(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}

func (m *MockCredentialProvider) Invalidate() {
	m.Called()
}

// MockEventPublisher is a mock implementation of eventbus.EventPublisher.
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, event events.DomainEvent) error {
	args := m.Called(ctx, event)

	return args.Error(0)
}
