// Package models defines the CRM entity rows consumed during fact resolution
// and fallback routing. Persistence of these rows is a collaborator concern;
// the engine only performs point lookups.
package models

import "time"

// Ticket statuses the engine inspects. Tenants may define further statuses;
// only closed has engine-level meaning (tracking rows are pruned).
const (
	TicketStatusOpen   = "open"
	TicketStatusClosed = "closed"
)

// Ticket is the triggering entity for most automations.
type Ticket struct {
	ID          string         `json:"id"`
	TenantID    string         `json:"tenant_id"`
	ContactID   string         `json:"contact_id,omitempty"`
	AssigneeID  string         `json:"assignee_id,omitempty"`
	ChannelKind ChannelKind    `json:"channel_kind"`
	ChannelID   string         `json:"channel_id"` // Widget ID for chat, inbound email channel ID for email
	Status      string         `json:"status"`
	Subject     string         `json:"subject"`
	Priority    string         `json:"priority"`
	Fields      map[string]any `json:"fields,omitempty"` // Remaining scalar columns by field key
	CreatedAt   time.Time      `json:"created_at"`
	DeletedAt   *time.Time     `json:"deleted_at,omitempty"`
}

// FieldValue returns the named ticket field, checking well-known columns
// before the generic field map.
func (t *Ticket) FieldValue(key string) any {
	switch key {
	case "id":
		return t.ID
	case "contact_id":
		return t.ContactID
	case "assignee_id":
		return t.AssigneeID
	case "status":
		return t.Status
	case "subject":
		return t.Subject
	case "priority":
		return t.Priority
	case "channel_id":
		return t.ChannelID
	case "channel_kind":
		return string(t.ChannelKind)
	default:
		return t.Fields[key]
	}
}

// Contact is the person a ticket belongs to.
type Contact struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	CompanyID string         `json:"company_id,omitempty"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Fields    map[string]any `json:"fields,omitempty"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

func (c *Contact) FieldValue(key string) any {
	switch key {
	case "id":
		return c.ID
	case "company_id":
		return c.CompanyID
	case "name":
		return c.Name
	case "email":
		return c.Email
	default:
		return c.Fields[key]
	}
}

// Company groups contacts.
type Company struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenant_id"`
	Name      string         `json:"name"`
	Domain    string         `json:"domain"`
	Fields    map[string]any `json:"fields,omitempty"`
	DeletedAt *time.Time     `json:"deleted_at,omitempty"`
}

func (c *Company) FieldValue(key string) any {
	switch key {
	case "id":
		return c.ID
	case "name":
		return c.Name
	case "domain":
		return c.Domain
	default:
		return c.Fields[key]
	}
}

// CustomFieldValue is a single tenant-defined field value on a ticket.
type CustomFieldValue struct {
	CustomFieldID string `json:"custom_field_id"`
	TicketID      string `json:"ticket_id"`
	Value         any    `json:"value"`
}

// CustomObjectFieldValue is a field value on a tenant-defined custom object
// linked to a ticket.
type CustomObjectFieldValue struct {
	CustomObjectID      string `json:"custom_object_id"`
	CustomObjectFieldID string `json:"custom_object_field_id"`
	TicketID            string `json:"ticket_id"`
	Value               any    `json:"value"`
}
