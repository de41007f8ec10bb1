package models

import "time"

// Chatbot is an AI assignee candidate for new chat tickets. AudienceRoot is
// the same rule-tree shape used by workflows, restricted to contact and
// company facts.
type Chatbot struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Name         string     `json:"name"`
	AudienceRoot *RuleGroup `json:"audience_root,omitempty"`
	Position     int        `json:"position"` // Evaluation order; first match wins
	Enabled      bool       `json:"enabled"`
}

// Team is an agent group that tickets can be routed to.
type Team struct {
	ID       string `json:"id"`
	TenantID string `json:"tenant_id"`
	Name     string `json:"name"`
}

// TeamRoute binds an inbound channel (chat widget or email channel) to a
// team. One channel may route to several teams.
type TeamRoute struct {
	ID          string      `json:"id"`
	TeamID      string      `json:"team_id"`
	ChannelKind ChannelKind `json:"channel_kind"`
	ChannelID   string      `json:"channel_id"`
}

// TeamAssociation links a ticket to a team. Creation is idempotent by
// existence check, not by unique constraint.
type TeamAssociation struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	TeamID    string    `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ResponseParty identifies whose silence an unresponsiveness trigger watches.
type ResponseParty string

const (
	PartyCustomer ResponseParty = "customer"
	PartyAgent    ResponseParty = "agent"
)

// TrackedConversation is a ticket/workflow pair awaiting a response. The row
// is removed when the timeout fires or the ticket closes; removal is the
// commit point that prevents duplicate firing.
type TrackedConversation struct {
	TicketID       string        `json:"ticket_id"`
	WorkflowID     string        `json:"workflow_id"`
	NodeID         string        `json:"node_id"`
	Party          ResponseParty `json:"party"`
	TimeoutMinutes int           `json:"timeout_minutes"`
	LastMessageAt  time.Time     `json:"last_message_at"`
	LastCheckAt    time.Time     `json:"last_check_at"`
}

// Key returns the tracking row identity used by the tracking store.
func (t TrackedConversation) Key() string {
	return t.TicketID + ":" + t.WorkflowID
}
