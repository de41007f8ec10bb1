// Package facts resolves entity references into the flat fact namespace the
// rule evaluator consumes. Resolution is read-only and built fresh per
// evaluation; facts are never cached across calls.
package facts

import (
	"context"

	"github.com/deskflow/deskflow/pkg/models"
)

// Facts is the flat namespace mapping canonical dotted keys to scalar values.
// Missing facts are present with a nil value so the evaluator can distinguish
// "resolved to null" from "never requested".
type Facts map[string]any

// Lookup returns the fact for a reference, or nil when unresolved.
func (f Facts) Lookup(ref models.EntityReference) any {
	return f[ref.FactKey()]
}

// EntityStore is the collaborator performing point lookups of entity rows.
// Implementations must exclude soft-deleted rows.
type EntityStore interface {
	TicketByID(ctx context.Context, id string) (*models.Ticket, error)
	ContactByID(ctx context.Context, id string) (*models.Contact, error)
	CompanyByID(ctx context.Context, id string) (*models.Company, error)
	CustomFieldValues(ctx context.Context, ticketID string, fieldIDs []string) (map[string]any, error)
	CustomObjectFieldValues(ctx context.Context, ticketID, objectID string, fieldIDs []string) (map[string]any, error)
}

// RootIDs carries the identifiers resolution starts from. Contact and company
// IDs are optional; when absent they are derived from the ticket's contact
// reference and the contact's company reference respectively.
type RootIDs struct {
	TicketID  string
	ContactID string
	CompanyID string
}
