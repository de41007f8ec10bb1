// Package wait provides the wait node kind. Registering the ticket for
// unresponsiveness tracking happens in the execution engine; here the node is
// a plain entry/exit pass-through with a validated timeout.
package wait

import (
	"github.com/deskflow/deskflow/pkg/models"
)

type Kind struct{}

func NewKind() *Kind {
	return &Kind{}
}

func (k *Kind) ID() string {
	return models.NodeTypeWait
}

func (k *Kind) Name() string {
	return "Wait"
}

func (k *Kind) Description() string {
	return "Pauses the execution path for a configured duration"
}

func (k *Kind) Schemas() map[int]map[string]any {
	return map[int]map[string]any{
		1: {
			"type": "object",
			"properties": map[string]any{
				"time_in_minutes": map[string]any{
					"type":    "integer",
					"minimum": 1,
				},
			},
			"required":             []string{"time_in_minutes"},
			"additionalProperties": false,
		},
	}
}

func (k *Kind) Handles(_ map[string]any) []string {
	return []string{models.HandleEntry, models.HandleExit}
}
