// Package trigger provides the trigger node kinds that start workflows from
// domain events. Trigger nodes expose a single exit handle; the event data
// itself enters the workflow through the execution engine, not a handle.
package trigger

import (
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/models"
)

// baseTrigger carries the shared shape of all trigger kinds.
type baseTrigger struct {
	id          string
	name        string
	description string
	eventKind   events.EventKind
	schemas     map[int]map[string]any
}

func (t *baseTrigger) ID() string          { return t.id }
func (t *baseTrigger) Name() string        { return t.name }
func (t *baseTrigger) Description() string { return t.description }

func (t *baseTrigger) Schemas() map[int]map[string]any {
	return t.schemas
}

func (t *baseTrigger) Handles(_ map[string]any) []string {
	return []string{models.HandleExit}
}

// Matches reports whether the trigger reacts to the given domain event kind.
// Matching is exact; a trigger never fires for a related kind.
func (t *baseTrigger) Matches(kind events.EventKind) bool {
	return t.eventKind == kind
}

var emptyConfigSchema = map[string]any{
	"type":                 "object",
	"additionalProperties": false,
}

// NewTicketCreatedKind reacts to new tickets.
func NewTicketCreatedKind() *baseTrigger {
	return &baseTrigger{
		id:          models.NodeTypeTriggerTicketCreated,
		name:        "Ticket Created",
		description: "Starts the workflow when a ticket is created",
		eventKind:   events.TicketCreatedEvent,
		schemas:     map[int]map[string]any{1: emptyConfigSchema},
	}
}

// NewCustomerMessageKind reacts to inbound customer messages.
func NewCustomerMessageKind() *baseTrigger {
	return &baseTrigger{
		id:          models.NodeTypeTriggerCustomerMessage,
		name:        "Customer Message",
		description: "Starts the workflow when a customer sends a message",
		eventKind:   events.CustomerMessageEvent,
		schemas:     map[int]map[string]any{1: emptyConfigSchema},
	}
}
