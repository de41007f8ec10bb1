package trigger

import (
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/models"
)

// NewUnresponsivenessKind reacts to the derived events emitted by the
// unresponsiveness monitor when a tracked party stays silent past the
// configured timeout.
func NewUnresponsivenessKind() *baseTrigger {
	return &baseTrigger{
		id:          models.NodeTypeTriggerUnresponsiveness,
		name:        "Unresponsiveness",
		description: "Starts the workflow when a party has not replied within the timeout",
		eventKind:   events.TicketUnresponsiveEvent,
		schemas: map[int]map[string]any{
			1: {
				"type": "object",
				"properties": map[string]any{
					"time_in_minutes": map[string]any{
						"type":        "integer",
						"description": "Silence duration before the trigger fires",
						"minimum":     1,
					},
					"party": map[string]any{
						"type":        "string",
						"description": "Whose silence is watched",
						"enum":        []any{"customer", "agent"},
					},
				},
				"required":             []string{"time_in_minutes", "party"},
				"additionalProperties": false,
			},
		},
	}
}

// TimeoutMinutes extracts the configured silence timeout. JSON decoding
// delivers numbers as float64.
func TimeoutMinutes(config map[string]any) int {
	switch v := config["time_in_minutes"].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return 0
	}
}

// Party extracts the watched party, defaulting to the customer.
func Party(config map[string]any) models.ResponseParty {
	if p, ok := config["party"].(string); ok && p == string(models.PartyAgent) {
		return models.PartyAgent
	}

	return models.PartyCustomer
}
