// Package persistence provides the data storage abstraction for workflows,
// CRM entity lookups and routing configuration.
package persistence

import (
	"context"

	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/models"
)

// Persistence aggregates the repositories the engine consumes.
type Persistence interface {
	WorkflowRepository() WorkflowRepository
	EntityRepository() EntityRepository
	RoutingRepository() RoutingRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// WorkflowRepository stores workflow definitions.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	ListByStatus(ctx context.Context, tenantID string, status models.WorkflowStatus) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id string) (*models.Workflow, error)
	Save(ctx context.Context, workflow *models.Workflow) error
	UpdateStatus(ctx context.Context, id string, status models.WorkflowStatus) error
	Delete(ctx context.Context, id string) error
}

// EntityRepository performs the point lookups fact resolution needs.
// Implementations exclude soft-deleted rows.
type EntityRepository interface {
	facts.EntityStore
}

// RoutingRepository stores fallback-routing configuration and results.
type RoutingRepository interface {
	// TicketAIEnabled reports whether the tenant has ticket AI turned on.
	TicketAIEnabled(ctx context.Context, tenantID string) (bool, error)

	// ChatbotsByTenant returns enabled chatbots in evaluation order.
	ChatbotsByTenant(ctx context.Context, tenantID string) ([]*models.Chatbot, error)

	// AssignChatbot sets the chatbot as the ticket's assignee.
	AssignChatbot(ctx context.Context, ticketID, chatbotID string) error

	// TeamsForChannel returns the teams bound to an inbound channel.
	TeamsForChannel(ctx context.Context, kind models.ChannelKind, channelID string) ([]*models.Team, error)

	// TeamAssociationExists checks for an existing ticket/team row. Team
	// association is idempotent by this check, not by unique constraint.
	TeamAssociationExists(ctx context.Context, ticketID, teamID string) (bool, error)

	// CreateTeamAssociation links a ticket to a team.
	CreateTeamAssociation(ctx context.Context, association *models.TeamAssociation) error
}
