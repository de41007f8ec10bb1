package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/deskflow/pkg/dispatch"
	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/graph"
	"github.com/deskflow/deskflow/pkg/mocks"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/persistence/file"
	"github.com/deskflow/deskflow/pkg/registry"
	"github.com/deskflow/deskflow/pkg/services"
	"github.com/deskflow/deskflow/pkg/web"
)

type testAPI struct {
	app       *fiber.App
	service   *services.Workflow
	entities  *mocks.MockEntityRepository
	starter   *mocks.MockWorkflowStarter
	publisher *mocks.MockEventPublisher
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultKinds()

	store := file.NewPersistence(t.TempDir())
	entities := &mocks.MockEntityRepository{}
	routing := &mocks.MockRoutingRepository{}
	starter := &mocks.MockWorkflowStarter{}
	publisher := &mocks.MockEventPublisher{}

	resolver := facts.NewResolver(entities, logger)
	graphValidator := graph.NewValidator(reg, resolver, logger)
	service := services.NewWorkflow(store, graphValidator)

	notifier := engine.NewChatbotNotifier("", logger)
	fallback := dispatch.NewFallbackRouter(routing, resolver, notifier, logger)
	dispatcher := dispatch.NewDispatcher(
		store.WorkflowRepository(), entities, reg, graphValidator, starter, fallback, logger)

	handlers := web.NewAPIHandlers(
		service, dispatcher, publisher, validator.New(validator.WithRequiredStructEnabled()), reg)

	app := fiber.New()

	w := app.Group("/workflows")
	w.Get("/", handlers.GetWorkflows)
	w.Post("/", handlers.CreateWorkflow)
	w.Get("/:id", handlers.GetWorkflow)
	w.Patch("/:id", handlers.UpdateWorkflow)
	w.Delete("/:id", handlers.DeleteWorkflow)
	w.Post("/:id/validate", handlers.ValidateWorkflow)
	w.Post("/:id/activate", handlers.ActivateWorkflow)
	w.Post("/:id/deactivate", handlers.DeactivateWorkflow)
	w.Post("/:id/dispatch", handlers.DispatchWorkflow)

	app.Post("/events", handlers.InjectEvent)
	app.Get("/health", handlers.HealthCheck)

	return &testAPI{
		app:       app,
		service:   service,
		entities:  entities,
		starter:   starter,
		publisher: publisher,
	}
}

func (a *testAPI) request(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.app.Test(req)
	require.NoError(t, err)

	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	return body
}

func (a *testAPI) createValid(t *testing.T) *models.Workflow {
	t.Helper()

	created, err := a.service.Create(context.Background(), &models.Workflow{
		TenantID: "tenant-1",
		Name:     "Greet new tickets",
		Nodes: []*models.WorkflowNode{
			{ID: "t1", Type: models.NodeTypeTriggerTicketCreated, IsTrigger: true, SchemaVersion: 1},
			{ID: "m1", Type: models.NodeTypeSendMessage, SchemaVersion: 1,
				Config: map[string]any{"message": "Hello"}},
			{ID: "e1", Type: models.NodeTypeEnd, SchemaVersion: 1},
		},
		Edges: []*models.Edge{
			{ID: "edge-1", SourceNodeID: "t1", SourceHandle: models.HandleExit, TargetNodeID: "m1", TargetHandle: models.HandleEntry},
			{ID: "edge-2", SourceNodeID: "m1", SourceHandle: models.HandleExit, TargetNodeID: "e1", TargetHandle: models.HandleEntry},
		},
	})
	require.NoError(t, err)

	return created
}

func TestCreateWorkflowEndpoint(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/workflows/", map[string]any{
		"tenant_id": "tenant-1",
		"name":      "My workflow",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["id"])
	assert.Equal(t, "draft", body["status"])
}

func TestCreateWorkflowEndpoint_Invalid(t *testing.T) {
	api := newTestAPI(t)

	// Name below minimum length
	resp := api.request(t, http.MethodPost, "/workflows/", map[string]any{
		"tenant_id": "tenant-1",
		"name":      "ab",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Missing tenant
	resp = api.request(t, http.MethodPost, "/workflows/", map[string]any{
		"name": "My workflow",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "validation_error", body["type"])
}

func TestGetWorkflowEndpoint(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	resp := api.request(t, http.MethodGet, "/workflows/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, created.ID, body["id"])

	resp = api.request(t, http.MethodGet, "/workflows/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body = decodeBody(t, resp)
	assert.Equal(t, "not_found", body["type"])
}

func TestGetWorkflowsEndpoint(t *testing.T) {
	api := newTestAPI(t)
	api.createValid(t)
	api.createValid(t)

	resp := api.request(t, http.MethodGet, "/workflows/?tenant_id=tenant-1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Len(t, body["workflows"], 2)

	resp = api.request(t, http.MethodGet, "/workflows/?status=archived", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUpdateWorkflowEndpoint_StructuralEditRevertsToDraft(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	_, err := api.service.Activate(context.Background(), created.ID)
	require.NoError(t, err)

	// Renaming is not structural
	resp := api.request(t, http.MethodPatch, "/workflows/"+created.ID, map[string]any{
		"name": "Renamed workflow",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live", decodeBody(t, resp)["status"])

	// Swapping the rule tree is
	resp = api.request(t, http.MethodPatch, "/workflows/"+created.ID, map[string]any{
		"rule_root": map[string]any{
			"id":       "g1",
			"operator": "AND",
			"conditions": []map[string]any{
				{
					"fact":     map[string]any{"kind": "ticket", "field_key": "priority"},
					"operator": "equals",
					"value":    "urgent",
				},
			},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "draft", decodeBody(t, resp)["status"])
}

func TestUpdateWorkflowEndpoint_NotFound(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPatch, "/workflows/missing", map[string]any{
		"name": "Renamed workflow",
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestActivateWorkflowEndpoint(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	resp := api.request(t, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live", decodeBody(t, resp)["status"])

	resp = api.request(t, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "conflict", body["type"])
}

func TestActivateWorkflowEndpoint_InvalidGraph(t *testing.T) {
	api := newTestAPI(t)

	created, err := api.service.Create(context.Background(), &models.Workflow{
		TenantID: "tenant-1",
		Name:     "Empty workflow",
		Nodes:    []*models.WorkflowNode{},
		Edges:    []*models.Edge{},
	})
	require.NoError(t, err)

	resp := api.request(t, http.MethodPost, "/workflows/"+created.ID+"/activate", nil)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "workflow_invalid", body["type"])
	assert.Equal(t, string(graph.StageStructural), body["stage"])
	assert.Equal(t, string(graph.ReasonNoTrigger), body["reason"])

	// Still draft
	fetched, err := api.service.FetchByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusDraft, fetched.Status)
}

func TestValidateWorkflowEndpoint(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	resp := api.request(t, http.MethodPost, "/workflows/"+created.ID+"/validate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["valid"])
}

func TestDeactivateWorkflowEndpoint(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	// Draft workflows cannot be deactivated
	resp := api.request(t, http.MethodPost, "/workflows/"+created.ID+"/deactivate", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	_, err := api.service.Activate(context.Background(), created.ID)
	require.NoError(t, err)

	resp = api.request(t, http.MethodPost, "/workflows/"+created.ID+"/deactivate", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "draft", decodeBody(t, resp)["status"])
}

func TestDeleteWorkflowEndpoint(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	resp := api.request(t, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = api.request(t, http.MethodDelete, "/workflows/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDispatchWorkflowEndpoint(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	_, err := api.service.Activate(context.Background(), created.ID)
	require.NoError(t, err)

	api.entities.On("TicketByID", mock.Anything, "ticket-1").Return(&models.Ticket{
		ID:          "ticket-1",
		TenantID:    "tenant-1",
		ChannelKind: models.ChannelKindChat,
		ChannelID:   "widget-1",
		Status:      models.TicketStatusOpen,
	}, nil)
	api.starter.On("StartWorkflow", mock.Anything, engine.StartWorkflowRequest{
		WorkflowID: created.ID,
		TicketID:   "ticket-1",
	}).Return(nil)

	resp := api.request(t, http.MethodPost, "/workflows/"+created.ID+"/dispatch", map[string]any{
		"ticket_id": "ticket-1",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, created.ID, body["workflow_id"])
	api.starter.AssertExpectations(t)
}

func TestDispatchWorkflowEndpoint_MissingTicketID(t *testing.T) {
	api := newTestAPI(t)
	created := api.createValid(t)

	resp := api.request(t, http.MethodPost, "/workflows/"+created.ID+"/dispatch", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestInjectEventEndpoint(t *testing.T) {
	api := newTestAPI(t)

	api.publisher.On("Publish", mock.Anything, mock.Anything).Return(nil)

	resp := api.request(t, http.MethodPost, "/events", map[string]any{
		"kind":      "ticket.created",
		"tenant_id": "tenant-1",
		"ticket_id": "ticket-1",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.NotEmpty(t, body["event_id"])
	api.publisher.AssertNumberOfCalls(t, "Publish", 1)
}

func TestInjectEventEndpoint_Invalid(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodPost, "/events", map[string]any{
		"tenant_id": "tenant-1",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	api.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestHealthCheckEndpoint(t *testing.T) {
	api := newTestAPI(t)

	resp := api.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "healthy", body["status"])
}
