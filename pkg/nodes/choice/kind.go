// Package choice provides the multi-way choice node kind. A choice node
// presents buttons to the customer; each button is its own exit path.
package choice

import (
	"github.com/deskflow/deskflow/pkg/models"
)

type Kind struct{}

func NewKind() *Kind {
	return &Kind{}
}

func (k *Kind) ID() string {
	return models.NodeTypeChoice
}

func (k *Kind) Name() string {
	return "Choice"
}

func (k *Kind) Description() string {
	return "Presents choice buttons and branches on the customer's pick"
}

func (k *Kind) Schemas() map[int]map[string]any {
	return map[int]map[string]any{
		1: {
			"type": "object",
			"properties": map[string]any{
				"prompt": map[string]any{
					"type": "string",
				},
				"buttons": map[string]any{
					"type":     "array",
					"minItems": 1,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":    map[string]any{"type": "string", "minLength": 1},
							"label": map[string]any{"type": "string", "minLength": 1},
						},
						"required": []string{"id", "label"},
					},
				},
			},
			"required":             []string{"buttons"},
			"additionalProperties": false,
		},
	}
}

// Handles exposes the entry handle plus one handle per configured button and
// never an exit handle: N buttons yield N+1 handles.
func (k *Kind) Handles(config map[string]any) []string {
	handles := []string{models.HandleEntry}

	buttons, ok := config["buttons"].([]any)
	if !ok {
		return handles
	}

	for _, entry := range buttons {
		button, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		if id, ok := button["id"].(string); ok && id != "" {
			handles = append(handles, "button:"+id)
		}
	}

	return handles
}
