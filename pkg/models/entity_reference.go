// Package models defines the core domain models for ticket automation.
package models

import (
	"errors"
	"fmt"
)

// EntityKind identifies where a referenced field value comes from.
type EntityKind string

const (
	EntityKindTicket            EntityKind = "ticket"
	EntityKindContact           EntityKind = "contact"
	EntityKindCompany           EntityKind = "company"
	EntityKindCustomField       EntityKind = "custom_field"
	EntityKindCustomObjectField EntityKind = "custom_object_field"
)

var (
	ErrCustomFieldIDRequired  = errors.New("custom_field references require a custom field ID")
	ErrCustomObjectIDRequired = errors.New("custom_object_field references require custom object and field IDs")
	ErrUnknownEntityKind      = errors.New("unknown entity kind")
)

// EntityReference is a tagged union identifying a single field on a ticket,
// contact, company, custom field or custom object field.
type EntityReference struct {
	Kind                EntityKind `json:"kind"                             validate:"required"`
	FieldKey            string     `json:"field_key"`
	CustomFieldID       string     `json:"custom_field_id,omitempty"`
	CustomObjectID      string     `json:"custom_object_id,omitempty"`
	CustomObjectFieldID string     `json:"custom_object_field_id,omitempty"`
}

// Validate enforces the tagged-union invariants: the custom field ID is set
// iff the kind is custom_field, and both custom object IDs are set iff the
// kind is custom_object_field.
func (r EntityReference) Validate() error {
	switch r.Kind {
	case EntityKindTicket, EntityKindContact, EntityKindCompany:
		if r.CustomFieldID != "" || r.CustomObjectID != "" || r.CustomObjectFieldID != "" {
			return fmt.Errorf("%s references cannot carry custom field IDs", r.Kind)
		}

		if r.FieldKey == "" {
			return fmt.Errorf("%s references require a field key", r.Kind)
		}

		return nil
	case EntityKindCustomField:
		if r.CustomFieldID == "" {
			return ErrCustomFieldIDRequired
		}

		return nil
	case EntityKindCustomObjectField:
		if r.CustomObjectID == "" || r.CustomObjectFieldID == "" {
			return ErrCustomObjectIDRequired
		}

		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEntityKind, r.Kind)
	}
}

// FactKey returns the canonical dotted key this reference resolves under in
// the fact namespace, e.g. "ticket.status" or "custom_field.<id>".
func (r EntityReference) FactKey() string {
	switch r.Kind {
	case EntityKindCustomField:
		return fmt.Sprintf("custom_field.%s", r.CustomFieldID)
	case EntityKindCustomObjectField:
		return fmt.Sprintf("custom_object_field.%s.%s", r.CustomObjectID, r.CustomObjectFieldID)
	default:
		return fmt.Sprintf("%s.%s", r.Kind, r.FieldKey)
	}
}
