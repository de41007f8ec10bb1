// Package eventbus carries the domain change feed between the upstream CRM
// and the dispatcher. Delivery is at-least-once; consumers must tolerate
// redelivered events.
package eventbus

import (
	"context"

	"github.com/deskflow/deskflow/pkg/events"
)

// EventHandler processes one decoded domain event. Returning an error nacks
// the message for redelivery.
type EventHandler func(ctx context.Context, event events.DomainEvent) error

// EventPublisher writes domain events onto the change feed. Used by the
// monitor for derived events and by the event-injection API.
type EventPublisher interface {
	Publish(ctx context.Context, event events.DomainEvent) error
}

// EventSubscriber routes feed events to handlers registered per event kind.
// Kinds with no handler are acked and dropped.
type EventSubscriber interface {
	Handle(kind events.EventKind, handler EventHandler)
	Subscribe(ctx context.Context) error
}

// EventBus is the full change-feed connection.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
}
