package trigger

import (
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/models"
)

// NewDataChangedKind reacts to ticket field updates. Its config names the
// watched fields; the dispatcher only runs the validation pipeline when the
// actually-changed field set intersects them.
func NewDataChangedKind() *baseTrigger {
	return &baseTrigger{
		id:          models.NodeTypeTriggerDataChanged,
		name:        "Data Changed",
		description: "Starts the workflow when a watched ticket field changes",
		eventKind:   events.TicketDataChangedEvent,
		schemas: map[int]map[string]any{
			1: {
				"type": "object",
				"properties": map[string]any{
					"watched_fields": map[string]any{
						"type":        "array",
						"description": "Field keys whose changes fire this trigger",
						"items":       map[string]any{"type": "string"},
						"minItems":    1,
					},
				},
				"required":             []string{"watched_fields"},
				"additionalProperties": false,
			},
		},
	}
}

// WatchedFields extracts the watched field keys from a data-changed trigger
// config. Schema validation guarantees the shape for live workflows; unknown
// shapes yield an empty set, which never intersects.
func WatchedFields(config map[string]any) []string {
	raw, ok := config["watched_fields"].([]any)
	if !ok {
		return nil
	}

	fields := make([]string, 0, len(raw))

	for _, entry := range raw {
		if field, ok := entry.(string); ok {
			fields = append(fields, field)
		}
	}

	return fields
}
