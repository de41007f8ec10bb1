package registry_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/registry"
)

func newRegistry() *registry.Registry {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultKinds()

	return reg
}

func TestKind(t *testing.T) {
	reg := newRegistry()

	kind, ok := reg.Kind(models.NodeTypeSendMessage)
	require.True(t, ok)
	assert.Equal(t, models.NodeTypeSendMessage, kind.ID())

	_, ok = reg.Kind("teleport")
	assert.False(t, ok)
}

func TestTriggerKind(t *testing.T) {
	reg := newRegistry()

	kind, ok := reg.TriggerKind(models.NodeTypeTriggerTicketCreated)
	require.True(t, ok)
	assert.True(t, kind.Matches(events.TicketCreatedEvent))
	assert.False(t, kind.Matches(events.CustomerMessageEvent))

	// Non-trigger kinds are not trigger kinds
	_, ok = reg.TriggerKind(models.NodeTypeSendMessage)
	assert.False(t, ok)

	_, ok = reg.TriggerKind("teleport")
	assert.False(t, ok)
}

func TestSchemaFor(t *testing.T) {
	reg := newRegistry()

	schema, err := reg.SchemaFor(models.NodeTypeSendMessage, 1)
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])

	_, err = reg.SchemaFor(models.NodeTypeSendMessage, 99)
	assert.Error(t, err)

	_, err = reg.SchemaFor("teleport", 1)
	assert.Error(t, err)
}

func TestValidateNodeConfig(t *testing.T) {
	reg := newRegistry()

	valid := &models.WorkflowNode{
		ID:            "m1",
		Type:          models.NodeTypeSendMessage,
		SchemaVersion: 1,
		Config:        map[string]any{"message": "Hello"},
	}
	assert.NoError(t, reg.ValidateNodeConfig(valid))

	invalid := &models.WorkflowNode{
		ID:            "m1",
		Type:          models.NodeTypeSendMessage,
		SchemaVersion: 1,
		Config:        map[string]any{"message": "Hello", "color": "red"},
	}
	assert.Error(t, reg.ValidateNodeConfig(invalid))

	// A nil config validates as an empty object
	bare := &models.WorkflowNode{
		ID:            "t1",
		Type:          models.NodeTypeTriggerTicketCreated,
		SchemaVersion: 1,
	}
	assert.NoError(t, reg.ValidateNodeConfig(bare))
}

func TestHandles(t *testing.T) {
	reg := newRegistry()

	trigger := &models.WorkflowNode{ID: "t1", Type: models.NodeTypeTriggerTicketCreated, SchemaVersion: 1}
	handles, err := reg.Handles(trigger)
	require.NoError(t, err)
	assert.Equal(t, []models.Handle{{NodeID: "t1", Name: models.HandleExit}}, handles)

	endNode := &models.WorkflowNode{ID: "e1", Type: models.NodeTypeEnd, SchemaVersion: 1}
	handles, err = reg.Handles(endNode)
	require.NoError(t, err)
	assert.Equal(t, []models.Handle{{NodeID: "e1", Name: models.HandleEntry}}, handles)

	_, err = reg.Handles(&models.WorkflowNode{ID: "x1", Type: "teleport"})
	assert.Error(t, err)
}

func TestHandles_ChoiceButtons(t *testing.T) {
	reg := newRegistry()

	node := &models.WorkflowNode{
		ID:            "c1",
		Type:          models.NodeTypeChoice,
		SchemaVersion: 1,
		Config: map[string]any{
			"prompt": "How can we help?",
			"buttons": []any{
				map[string]any{"id": "billing", "label": "Billing"},
				map[string]any{"id": "support", "label": "Support"},
			},
		},
	}

	handles, err := reg.Handles(node)
	require.NoError(t, err)

	assert.Equal(t, []models.Handle{
		{NodeID: "c1", Name: models.HandleEntry},
		{NodeID: "c1", Name: "button:billing"},
		{NodeID: "c1", Name: "button:support"},
	}, handles)
}

func TestHealthCheck(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	empty := registry.NewRegistry(logger)
	_, healthy := empty.HealthCheck()
	assert.False(t, healthy)

	reg := newRegistry()
	message, healthy := reg.HealthCheck()
	assert.True(t, healthy)
	assert.NotEmpty(t, message)
}
