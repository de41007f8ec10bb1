// Package protocol defines the interfaces and contracts for workflow node
// kinds.
package protocol

import (
	"github.com/deskflow/deskflow/pkg/events"
)

// NodeKind describes one node type: its configuration schemas and the
// connection handles a node of this kind exposes. Handle computation is
// deterministic over node config; handles are recomputed on every validation
// pass, never persisted.
type NodeKind interface {
	// ID returns the unique node type identifier, e.g. "choice".
	ID() string

	// Name returns the human-readable name for this node kind.
	Name() string

	// Description returns a description of what this node kind does.
	Description() string

	// Schemas returns the JSON schema for each supported schema version.
	Schemas() map[int]map[string]any

	// Handles returns the handle names a node with the given config exposes.
	Handles(config map[string]any) []string
}

// TriggerKind is a node kind that can start a workflow from a domain event.
type TriggerKind interface {
	NodeKind

	// Matches reports whether this trigger reacts to the given event kind.
	Matches(kind events.EventKind) bool
}
