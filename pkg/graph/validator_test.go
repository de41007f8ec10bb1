package graph

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/mocks"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/registry"
)

func newTestValidator(store *mocks.MockEntityRepository) *Validator {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultKinds()

	return NewValidator(reg, facts.NewResolver(store, logger), logger)
}

func edge(id, sourceNode, sourceHandle, targetNode, targetHandle string) *models.Edge {
	return &models.Edge{
		ID:           id,
		SourceNodeID: sourceNode,
		SourceHandle: sourceHandle,
		TargetNodeID: targetNode,
		TargetHandle: targetHandle,
	}
}

// linearWorkflow builds trigger -> send_message -> end, which passes every
// build-time stage.
func linearWorkflow() *models.Workflow {
	return &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "Greet new tickets",
		Status:   models.WorkflowStatusDraft,
		Nodes: []*models.WorkflowNode{
			{ID: "t1", Type: models.NodeTypeTriggerTicketCreated, IsTrigger: true, SchemaVersion: 1, Config: map[string]any{}},
			{ID: "m1", Type: models.NodeTypeSendMessage, SchemaVersion: 1, Config: map[string]any{"message": "Hello"}},
			{ID: "e1", Type: models.NodeTypeEnd, SchemaVersion: 1, Config: map[string]any{}},
		},
		Edges: []*models.Edge{
			edge("edge-1", "t1", models.HandleExit, "m1", models.HandleEntry),
			edge("edge-2", "m1", models.HandleExit, "e1", models.HandleEntry),
		},
	}
}

func requireStage(t *testing.T, err error, stage Stage, reason Reason) *ValidationError {
	t.Helper()

	vErr, ok := AsValidationError(err)
	require.True(t, ok, "expected a validation error, got %v", err)
	assert.Equal(t, stage, vErr.Stage)
	assert.Equal(t, reason, vErr.Reason)

	return vErr
}

func TestValidateStructure_Valid(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	err := v.ValidateStructure(context.Background(), linearWorkflow())
	assert.NoError(t, err)
}

func TestValidateStructure_UnknownNodeType(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Nodes[1].Type = "teleport"

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageSchema, ReasonSchemaMissing)
	assert.Equal(t, "m1", vErr.NodeID)
	assert.True(t, IsStructuralFailure(err))
}

func TestValidateStructure_UnknownSchemaVersion(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Nodes[1].SchemaVersion = 99

	err := v.ValidateStructure(context.Background(), workflow)
	requireStage(t, err, StageSchema, ReasonSchemaMissing)
}

func TestValidateStructure_InvalidConfig(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Nodes[1].Config = map[string]any{"message": "Hello", "color": "red"}

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageSchema, ReasonSchemaInvalid)
	assert.Equal(t, "m1", vErr.NodeID)
}

func TestValidateStructure_NoTrigger(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Nodes[0].IsTrigger = false

	err := v.ValidateStructure(context.Background(), workflow)
	requireStage(t, err, StageStructural, ReasonNoTrigger)
}

func TestValidateStructure_NoEnd(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Nodes = workflow.Nodes[:2]
	workflow.Edges = workflow.Edges[:1]

	err := v.ValidateStructure(context.Background(), workflow)
	requireStage(t, err, StageStructural, ReasonNoEnd)
}

func TestValidateStructure_UnusedEntryHandle(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	// m1 is orphaned: its entry handle has no incoming edge
	workflow := linearWorkflow()
	workflow.Edges = []*models.Edge{
		edge("edge-1", "t1", models.HandleExit, "e1", models.HandleEntry),
		edge("edge-2", "m1", models.HandleExit, "e1", models.HandleEntry),
	}

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageHandles, ReasonUnusedHandle)
	assert.Equal(t, "m1", vErr.NodeID)
	assert.Equal(t, models.HandleEntry, vErr.Handle)
}

func TestValidateStructure_DeadEndHandle(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	// m1's exit handle goes nowhere
	workflow := linearWorkflow()
	workflow.Edges = workflow.Edges[:1]

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageHandles, ReasonDeadEnd)
	assert.Equal(t, "m1", vErr.NodeID)
	assert.Equal(t, models.HandleExit, vErr.Handle)
}

func TestValidateStructure_DuplicateHandleReference(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Edges = append(workflow.Edges,
		edge("edge-3", "t1", models.HandleExit, "e1", models.HandleEntry))

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageHandles, ReasonDuplicateHandle)
	assert.Equal(t, "t1", vErr.NodeID)
}

func TestValidateStructure_UnknownHandleReference(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Edges[0].SourceHandle = "sideways"

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageHandles, ReasonUnknownHandle)
	assert.Equal(t, "t1", vErr.NodeID)
	assert.Equal(t, "sideways", vErr.Handle)
}

func TestValidateStructure_EndNodeAsSource(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Nodes = append(workflow.Nodes,
		&models.WorkflowNode{ID: "m2", Type: models.NodeTypeSendMessage, SchemaVersion: 1, Config: map[string]any{"message": "again"}},
		&models.WorkflowNode{ID: "e2", Type: models.NodeTypeEnd, SchemaVersion: 1},
	)
	workflow.Edges = append(workflow.Edges,
		edge("edge-3", "e1", models.HandleEntry, "m2", models.HandleEntry),
		edge("edge-4", "m2", models.HandleExit, "e2", models.HandleEntry),
	)

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageHandles, ReasonUnknownHandle)
	assert.Equal(t, "e1", vErr.NodeID)
}

func TestValidateStructure_ChoiceBranchesShareEnd(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	// Both choice branches terminate at the same end node; end entry handles
	// accept any number of incoming edges and shared downstream nodes must not
	// be flagged as cycles.
	workflow := &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "Route by topic",
		Status:   models.WorkflowStatusDraft,
		Nodes: []*models.WorkflowNode{
			{ID: "t1", Type: models.NodeTypeTriggerTicketCreated, IsTrigger: true, SchemaVersion: 1},
			{
				ID: "c1", Type: models.NodeTypeChoice, SchemaVersion: 1,
				Config: map[string]any{
					"prompt": "What do you need?",
					"buttons": []any{
						map[string]any{"id": "billing", "label": "Billing"},
						map[string]any{"id": "support", "label": "Support"},
					},
				},
			},
			{ID: "m1", Type: models.NodeTypeSendMessage, SchemaVersion: 1, Config: map[string]any{"message": "Billing it is"}},
			{ID: "m2", Type: models.NodeTypeSendMessage, SchemaVersion: 1, Config: map[string]any{"message": "Support it is"}},
			{ID: "e1", Type: models.NodeTypeEnd, SchemaVersion: 1},
		},
		Edges: []*models.Edge{
			edge("edge-1", "t1", models.HandleExit, "c1", models.HandleEntry),
			edge("edge-2", "c1", "button:billing", "m1", models.HandleEntry),
			edge("edge-3", "c1", "button:support", "m2", models.HandleEntry),
			edge("edge-4", "m1", models.HandleExit, "e1", models.HandleEntry),
			edge("edge-5", "m2", models.HandleExit, "e1", models.HandleEntry),
		},
	}

	err := v.ValidateStructure(context.Background(), workflow)
	assert.NoError(t, err)
}

func TestValidateStructure_ChoiceBranchUnwired(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := &models.Workflow{
		ID:       "wf-1",
		TenantID: "tenant-1",
		Name:     "Route by topic",
		Status:   models.WorkflowStatusDraft,
		Nodes: []*models.WorkflowNode{
			{ID: "t1", Type: models.NodeTypeTriggerTicketCreated, IsTrigger: true, SchemaVersion: 1},
			{
				ID: "c1", Type: models.NodeTypeChoice, SchemaVersion: 1,
				Config: map[string]any{
					"buttons": []any{
						map[string]any{"id": "billing", "label": "Billing"},
						map[string]any{"id": "support", "label": "Support"},
					},
				},
			},
			{ID: "e1", Type: models.NodeTypeEnd, SchemaVersion: 1},
		},
		Edges: []*models.Edge{
			edge("edge-1", "t1", models.HandleExit, "c1", models.HandleEntry),
			edge("edge-2", "c1", "button:billing", "e1", models.HandleEntry),
		},
	}

	err := v.ValidateStructure(context.Background(), workflow)
	vErr := requireStage(t, err, StageHandles, ReasonDeadEnd)
	assert.Equal(t, "c1", vErr.NodeID)
	assert.Equal(t, "button:support", vErr.Handle)
}

func TestValidateTraversal_Cycle(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := &models.Workflow{
		ID: "wf-1",
		Nodes: []*models.WorkflowNode{
			{ID: "t1", Type: models.NodeTypeTriggerTicketCreated, IsTrigger: true, SchemaVersion: 1},
			{ID: "m1", Type: models.NodeTypeSendMessage, SchemaVersion: 1, Config: map[string]any{"message": "a"}},
			{ID: "m2", Type: models.NodeTypeSendMessage, SchemaVersion: 1, Config: map[string]any{"message": "b"}},
		},
		Edges: []*models.Edge{
			edge("edge-1", "t1", models.HandleExit, "m1", models.HandleEntry),
			edge("edge-2", "m1", models.HandleExit, "m2", models.HandleEntry),
			edge("edge-3", "m2", models.HandleExit, "m1", models.HandleEntry),
		},
	}

	handles, err := v.computeHandles(workflow)
	require.NoError(t, err)

	err = v.validateTraversal(workflow, handles)
	vErr := requireStage(t, err, StageTraversal, ReasonCycle)
	assert.Equal(t, models.HandleExit, vErr.Handle)
}

func TestValidate_Channels(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	workflow := linearWorkflow()
	workflow.Channels = []models.ChannelFilter{
		{Kind: models.ChannelKindChat, ChannelID: "widget-1"},
		{Kind: models.ChannelKindEmail, ChannelID: "support-inbox"},
	}

	err := v.Validate(context.Background(), workflow, Options{
		CheckChannels: true,
		ChannelKind:   models.ChannelKindChat,
		ChannelID:     "widget-1",
	})
	assert.NoError(t, err)

	// Same kind, different specific channel
	err = v.Validate(context.Background(), workflow, Options{
		CheckChannels: true,
		ChannelKind:   models.ChannelKindEmail,
		ChannelID:     "sales-inbox",
	})
	vErr := requireStage(t, err, StageChannels, ReasonChannelMismatch)
	assert.False(t, IsStructuralFailure(vErr))
}

func TestValidate_NoChannelFiltersMatchEverything(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	err := v.Validate(context.Background(), linearWorkflow(), Options{
		CheckChannels: true,
		ChannelKind:   models.ChannelKindEmail,
		ChannelID:     "anything",
	})
	assert.NoError(t, err)
}

func TestValidate_Rules(t *testing.T) {
	store := &mocks.MockEntityRepository{}
	store.On("TicketByID", mock.Anything, "ticket-1").Return(&models.Ticket{
		ID:       "ticket-1",
		Priority: "urgent",
	}, nil)

	v := newTestValidator(store)

	workflow := linearWorkflow()
	workflow.RuleRoot = &models.RuleGroup{
		ID:       "g1",
		Operator: models.GroupOperatorAnd,
		Conditions: []models.Condition{
			{
				Fact:     models.EntityReference{Kind: models.EntityKindTicket, FieldKey: "priority"},
				Operator: models.OperatorEquals,
				Value:    "urgent",
			},
		},
	}

	opts := Options{CheckRules: true, Roots: facts.RootIDs{TicketID: "ticket-1"}}

	err := v.Validate(context.Background(), workflow, opts)
	assert.NoError(t, err)

	workflow.RuleRoot.Conditions[0].Value = "low"

	err = v.Validate(context.Background(), workflow, opts)
	vErr := requireStage(t, err, StageRules, ReasonRulesNotMatched)
	assert.False(t, IsStructuralFailure(vErr))
}

func TestValidate_RuleResolutionFailure(t *testing.T) {
	store := &mocks.MockEntityRepository{}
	store.On("TicketByID", mock.Anything, "ticket-1").Return(nil, assert.AnError)

	v := newTestValidator(store)

	workflow := linearWorkflow()
	workflow.RuleRoot = &models.RuleGroup{
		ID:       "g1",
		Operator: models.GroupOperatorAnd,
		Conditions: []models.Condition{
			{
				Fact:     models.EntityReference{Kind: models.EntityKindTicket, FieldKey: "priority"},
				Operator: models.OperatorEquals,
				Value:    "urgent",
			},
		},
	}

	err := v.Validate(context.Background(), workflow, Options{
		CheckRules: true,
		Roots:      facts.RootIDs{TicketID: "ticket-1"},
	})
	vErr := requireStage(t, err, StageRules, ReasonResolution)
	assert.True(t, facts.IsResolutionError(vErr.Err))
}

func TestValidate_StageOrder(t *testing.T) {
	v := newTestValidator(&mocks.MockEntityRepository{})

	// A workflow broken at several stages must report the earliest one
	workflow := linearWorkflow()
	workflow.Nodes[0].IsTrigger = false
	workflow.Edges = workflow.Edges[:1]
	workflow.Channels = []models.ChannelFilter{{Kind: models.ChannelKindChat, ChannelID: "other"}}

	err := v.Validate(context.Background(), workflow, Options{
		CheckChannels: true,
		ChannelKind:   models.ChannelKindChat,
		ChannelID:     "widget-1",
	})
	requireStage(t, err, StageStructural, ReasonNoTrigger)
}
