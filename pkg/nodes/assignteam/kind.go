// Package assignteam provides the assign-team action node kind.
package assignteam

import (
	"github.com/deskflow/deskflow/pkg/models"
)

type Kind struct{}

func NewKind() *Kind {
	return &Kind{}
}

func (k *Kind) ID() string {
	return models.NodeTypeAssignTeam
}

func (k *Kind) Name() string {
	return "Assign Team"
}

func (k *Kind) Description() string {
	return "Routes the ticket to a team"
}

func (k *Kind) Schemas() map[int]map[string]any {
	return map[int]map[string]any{
		1: {
			"type": "object",
			"properties": map[string]any{
				"team_id": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
			},
			"required":             []string{"team_id"},
			"additionalProperties": false,
		},
	}
}

func (k *Kind) Handles(_ map[string]any) []string {
	return []string{models.HandleEntry, models.HandleExit}
}
