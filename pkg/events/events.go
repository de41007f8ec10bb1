// Package events defines the domain events the dispatcher reacts to.
package events

import (
	"reflect"
	"time"
)

// EventKind discriminates domain events arriving on the change feed.
type EventKind string

// Kafka topic and message metadata keys.
const (
	ChangeFeedTopic = "deskflow.changefeed"

	EventKeyMetadataKey  = "key"
	EventKindMetadataKey = "event_kind"
)

const (
	TicketCreatedEvent     EventKind = "ticket.created"
	TicketDataChangedEvent EventKind = "ticket.data_changed"
	CustomerMessageEvent   EventKind = "customer.message"
	AgentMessageEvent      EventKind = "agent.message"

	// TicketUnresponsiveEvent is derived by the unresponsiveness monitor,
	// not delivered by the upstream feed.
	TicketUnresponsiveEvent EventKind = "ticket.unresponsive"
)

// DomainEvent is one at-least-once delivery from the change feed: an event
// kind, the changed entity payload, and for update events the prior snapshot.
type DomainEvent struct {
	ID        string         `json:"id"`
	Kind      EventKind      `json:"kind"`
	TenantID  string         `json:"tenant_id"`
	TicketID  string         `json:"ticket_id"`
	New       map[string]any `json:"new,omitempty"`
	Old       map[string]any `json:"old,omitempty"`
	Timestamp time.Time      `json:"timestamp"`

	// WorkflowID narrows derived events to a single tracked workflow.
	WorkflowID string `json:"workflow_id,omitempty"`
}

// GetKind returns the event kind.
func (e DomainEvent) GetKind() EventKind {
	return e.Kind
}

// ChangedFields returns the keys whose values differ between the old and new
// payloads, by shallow literal comparison. Values of different dynamic types
// compare unequal even when numerically equivalent ("1" vs 1); this mirrors
// the raw update payloads the feed delivers.
func (e DomainEvent) ChangedFields() []string {
	if e.Old == nil {
		keys := make([]string, 0, len(e.New))
		for k := range e.New {
			keys = append(keys, k)
		}

		return keys
	}

	var changed []string

	for key, newValue := range e.New {
		oldValue, existed := e.Old[key]
		if !existed || !literalEqual(oldValue, newValue) {
			changed = append(changed, key)
		}
	}

	for key := range e.Old {
		if _, exists := e.New[key]; !exists {
			changed = append(changed, key)
		}
	}

	return changed
}

// literalEqual compares two payload values without coercion. Values of
// different dynamic types are unequal; non-comparable values (nested objects,
// arrays) are always treated as changed.
func literalEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}

	return a == b
}
