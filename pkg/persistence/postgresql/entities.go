package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lib/pq"

	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/persistence"
)

// EntityRepository performs the point lookups fact resolution needs. Every
// query filters out soft-deleted rows.
type EntityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewEntityRepository(db *sql.DB, logger *slog.Logger) *EntityRepository {
	return &EntityRepository{
		db:     db,
		logger: logger.With("module", "entity_repository"),
	}
}

func (r *EntityRepository) TicketByID(ctx context.Context, id string) (*models.Ticket, error) {
	query := `SELECT id, tenant_id, COALESCE(contact_id::text, ''), COALESCE(assignee_id, ''),
			channel_kind, channel_id, status, subject, priority, fields, created_at
		FROM tickets WHERE id = $1 AND deleted_at IS NULL`

	var (
		ticket      models.Ticket
		channelKind string
		fields      []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.TenantID,
		&ticket.ContactID,
		&ticket.AssigneeID,
		&channelKind,
		&ticket.ChannelID,
		&ticket.Status,
		&ticket.Subject,
		&ticket.Priority,
		&fields,
		&ticket.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrTicketNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query ticket %s: %w", id, err)
	}

	ticket.ChannelKind = models.ChannelKind(channelKind)

	if err := json.Unmarshal(fields, &ticket.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode ticket fields: %w", err)
	}

	return &ticket, nil
}

func (r *EntityRepository) ContactByID(ctx context.Context, id string) (*models.Contact, error) {
	query := `SELECT id, tenant_id, COALESCE(company_id::text, ''), name, email, fields
		FROM contacts WHERE id = $1 AND deleted_at IS NULL`

	var (
		contact models.Contact
		fields  []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&contact.ID,
		&contact.TenantID,
		&contact.CompanyID,
		&contact.Name,
		&contact.Email,
		&fields,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrContactNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query contact %s: %w", id, err)
	}

	if err := json.Unmarshal(fields, &contact.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode contact fields: %w", err)
	}

	return &contact, nil
}

func (r *EntityRepository) CompanyByID(ctx context.Context, id string) (*models.Company, error) {
	query := `SELECT id, tenant_id, name, domain, fields
		FROM companies WHERE id = $1 AND deleted_at IS NULL`

	var (
		company models.Company
		fields  []byte
	)

	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&company.ID,
		&company.TenantID,
		&company.Name,
		&company.Domain,
		&fields,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", persistence.ErrCompanyNotFound, id)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to query company %s: %w", id, err)
	}

	if err := json.Unmarshal(fields, &company.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode company fields: %w", err)
	}

	return &company, nil
}

// CustomFieldValues returns the values for the given field IDs on one
// ticket. Fields without a stored value are simply absent from the result.
func (r *EntityRepository) CustomFieldValues(
	ctx context.Context,
	ticketID string,
	fieldIDs []string,
) (map[string]any, error) {
	query := `SELECT custom_field_id, value FROM custom_field_values
		WHERE ticket_id = $1 AND custom_field_id = ANY($2)`

	rows, err := r.db.QueryContext(ctx, query, ticketID, pq.Array(fieldIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query custom field values: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	return scanFieldValues(rows)
}

// CustomObjectFieldValues returns the values for the given field IDs of one
// custom object linked to one ticket. One call covers every requested field
// of the object.
func (r *EntityRepository) CustomObjectFieldValues(
	ctx context.Context,
	ticketID, objectID string,
	fieldIDs []string,
) (map[string]any, error) {
	query := `SELECT custom_object_field_id, value FROM custom_object_field_values
		WHERE ticket_id = $1 AND custom_object_id = $2 AND custom_object_field_id = ANY($3)`

	rows, err := r.db.QueryContext(ctx, query, ticketID, objectID, pq.Array(fieldIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query custom object field values: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	return scanFieldValues(rows)
}

func scanFieldValues(rows *sql.Rows) (map[string]any, error) {
	values := make(map[string]any)

	for rows.Next() {
		var (
			fieldID string
			raw     []byte
		)

		if err := rows.Scan(&fieldID, &raw); err != nil {
			return nil, err
		}

		var value any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &value); err != nil {
				return nil, fmt.Errorf("failed to decode value for field %s: %w", fieldID, err)
			}
		}

		values[fieldID] = value
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate field values: %w", err)
	}

	return values, nil
}
