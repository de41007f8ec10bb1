// Package sendmessage provides the send-message action node kind. The
// message semantics live in the external execution engine; this engine only
// validates config and computes handles.
package sendmessage

import (
	"github.com/deskflow/deskflow/pkg/models"
)

type Kind struct{}

func NewKind() *Kind {
	return &Kind{}
}

func (k *Kind) ID() string {
	return models.NodeTypeSendMessage
}

func (k *Kind) Name() string {
	return "Send Message"
}

func (k *Kind) Description() string {
	return "Sends a message to the ticket's conversation"
}

func (k *Kind) Schemas() map[int]map[string]any {
	return map[int]map[string]any{
		1: {
			"type": "object",
			"properties": map[string]any{
				"message": map[string]any{
					"type":      "string",
					"minLength": 1,
				},
				"sender": map[string]any{
					"type": "string",
					"enum": []any{"bot", "workflow"},
				},
			},
			"required":             []string{"message"},
			"additionalProperties": false,
		},
	}
}

func (k *Kind) Handles(_ map[string]any) []string {
	return []string{models.HandleEntry, models.HandleExit}
}
