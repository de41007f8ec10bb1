// Package mocks provides shared testify mocks for the persistence and engine
// collaborators.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/deskflow/deskflow/pkg/models"
)

// MockWorkflowRepository is a mock implementation of
// persistence.WorkflowRepository.
type MockWorkflowRepository struct {
	mock.Mock
}

func (m *MockWorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) ListByStatus(
	ctx context.Context,
	tenantID string,
	status models.WorkflowStatus,
) ([]*models.Workflow, error) {
	args := m.Called(ctx, tenantID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) GetByID(ctx context.Context, id string) (*models.Workflow, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Workflow), args.Error(1)
}

func (m *MockWorkflowRepository) Save(ctx context.Context, workflow *models.Workflow) error {
	args := m.Called(ctx, workflow)

	return args.Error(0)
}

func (m *MockWorkflowRepository) UpdateStatus(
	ctx context.Context,
	id string,
	status models.WorkflowStatus,
) error {
	args := m.Called(ctx, id, status)

	return args.Error(0)
}

func (m *MockWorkflowRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)

	return args.Error(0)
}

// MockEntityRepository is a mock implementation of
// persistence.EntityRepository and facts.EntityStore.
type MockEntityRepository struct {
	mock.Mock
}

func (m *MockEntityRepository) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockEntityRepository) ContactByID(ctx context.Context, id string) (*models.Contact, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Contact), args.Error(1)
}

func (m *MockEntityRepository) CompanyByID(ctx context.Context, id string) (*models.Company, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.Company), args.Error(1)
}

func (m *MockEntityRepository) CustomFieldValues(
	ctx context.Context,
	ticketID string,
	fieldIDs []string,
) (map[string]any, error) {
	args := m.Called(ctx, ticketID, fieldIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}

func (m *MockEntityRepository) CustomObjectFieldValues(
	ctx context.Context,
	ticketID, objectID string,
	fieldIDs []string,
) (map[string]any, error) {
	args := m.Called(ctx, ticketID, objectID, fieldIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(map[string]any), args.Error(1)
}

// MockRoutingRepository is a mock implementation of
// persistence.RoutingRepository.
type MockRoutingRepository struct {
	mock.Mock
}

func (m *MockRoutingRepository) TicketAIEnabled(ctx context.Context, tenantID string) (bool, error) {
	args := m.Called(ctx, tenantID)

	return args.Bool(0), args.Error(1)
}

func (m *MockRoutingRepository) ChatbotsByTenant(ctx context.Context, tenantID string) ([]*models.Chatbot, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Chatbot), args.Error(1)
}

func (m *MockRoutingRepository) AssignChatbot(ctx context.Context, ticketID, chatbotID string) error {
	args := m.Called(ctx, ticketID, chatbotID)

	return args.Error(0)
}

func (m *MockRoutingRepository) TeamsForChannel(
	ctx context.Context,
	kind models.ChannelKind,
	channelID string,
) ([]*models.Team, error) {
	args := m.Called(ctx, kind, channelID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Team), args.Error(1)
}

func (m *MockRoutingRepository) TeamAssociationExists(ctx context.Context, ticketID, teamID string) (bool, error) {
	args := m.Called(ctx, ticketID, teamID)

	return args.Bool(0), args.Error(1)
}

func (m *MockRoutingRepository) CreateTeamAssociation(
	ctx context.Context,
	association *models.TeamAssociation,
) error {
	args := m.Called(ctx, association)

	return args.Error(0)
}
