package models

import "time"

// WorkflowStatus represents the lifecycle state of a workflow.
type WorkflowStatus string

const (
	WorkflowStatusDraft WorkflowStatus = "draft" // Editable, not dispatchable
	WorkflowStatusLive  WorkflowStatus = "live"  // Validated, dispatchable
)

// ChannelKind distinguishes the inbound channel families a workflow can be
// restricted to.
type ChannelKind string

const (
	ChannelKindChat  ChannelKind = "chat"
	ChannelKindEmail ChannelKind = "email"
)

// ChannelFilter restricts a workflow to tickets arriving on a specific
// inbound channel. An email filter must match the ticket's specific inbound
// email channel, not just "any email".
type ChannelFilter struct {
	Kind      ChannelKind `json:"kind"       validate:"required,oneof=chat email"`
	ChannelID string      `json:"channel_id" validate:"required"`
}

// Matches reports whether a ticket on the given channel passes this filter.
func (f ChannelFilter) Matches(kind ChannelKind, channelID string) bool {
	return f.Kind == kind && f.ChannelID == channelID
}

// Workflow is a node-based automation triggered by domain events. A workflow
// transitions to live only after the full build-time validation pipeline
// succeeds, and reverts to draft on any structural edit.
type Workflow struct {
	ID        string          `json:"id"`
	TenantID  string          `json:"tenant_id"`
	Name      string          `json:"name"       validate:"required,min=3"`
	Status    WorkflowStatus  `json:"status"     validate:"required"`
	Channels  []ChannelFilter `json:"channels"`
	Nodes     []*WorkflowNode `json:"nodes"`
	Edges     []*Edge         `json:"edges"`
	RuleRoot  *RuleGroup      `json:"rule_root,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// TriggerNodes returns the nodes flagged as triggers.
func (w *Workflow) TriggerNodes() []*WorkflowNode {
	var triggers []*WorkflowNode

	for _, node := range w.Nodes {
		if node.IsTrigger {
			triggers = append(triggers, node)
		}
	}

	return triggers
}

// NodeByID returns the node with the given ID, or nil.
func (w *Workflow) NodeByID(id string) *WorkflowNode {
	for _, node := range w.Nodes {
		if node.ID == id {
			return node
		}
	}

	return nil
}
