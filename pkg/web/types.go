// Package web provides the HTTP handlers for workflow management and
// dispatch.
package web

import (
	"github.com/deskflow/deskflow/pkg/models"
)

// CreateWorkflowRequest is the body for creating a new workflow. Graph
// content is added through updates; new workflows start empty and draft.
type CreateWorkflowRequest struct {
	TenantID string                 `json:"tenant_id" validate:"required"`
	Name     string                 `json:"name"      validate:"required,min=3"`
	Channels []models.ChannelFilter `json:"channels"`
}

// UpdateWorkflowRequest is the body for partial workflow updates. Nodes,
// edges, rule tree and channels are structural: changing any of them on a
// live workflow reverts it to draft.
type UpdateWorkflowRequest struct {
	Name     *string                 `json:"name,omitempty"      validate:"omitempty,min=3"`
	Channels *[]models.ChannelFilter `json:"channels,omitempty"`
	Nodes    *[]*models.WorkflowNode `json:"nodes,omitempty"`
	Edges    *[]*models.Edge         `json:"edges,omitempty"`
	RuleRoot *models.RuleGroup       `json:"rule_root,omitempty"`
}

// DispatchRequest is the body for the manual dispatch endpoint.
type DispatchRequest struct {
	TicketID string `json:"ticket_id" validate:"required"`
}

// InjectEventRequest is the body for pushing a domain event onto the change
// feed, used by upstream services without direct Kafka access.
type InjectEventRequest struct {
	Kind     string         `json:"kind"      validate:"required"`
	TenantID string         `json:"tenant_id" validate:"required"`
	TicketID string         `json:"ticket_id" validate:"required"`
	New      map[string]any `json:"new,omitempty"`
	Old      map[string]any `json:"old,omitempty"`
}
