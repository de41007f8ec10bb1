// Package end provides the terminal node kind. Every execution path must
// reach an end node; its entry handle is the only handle allowed to be an
// edge target without a matching source.
package end

import (
	"github.com/deskflow/deskflow/pkg/models"
)

type Kind struct{}

func NewKind() *Kind {
	return &Kind{}
}

func (k *Kind) ID() string {
	return models.NodeTypeEnd
}

func (k *Kind) Name() string {
	return "End"
}

func (k *Kind) Description() string {
	return "Terminates an execution path"
}

func (k *Kind) Schemas() map[int]map[string]any {
	return map[int]map[string]any{
		1: {
			"type":                 "object",
			"additionalProperties": false,
		},
	}
}

func (k *Kind) Handles(_ map[string]any) []string {
	return []string{models.HandleEntry}
}
