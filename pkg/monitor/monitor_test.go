package monitor

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/deskflow/deskflow/pkg/dispatch"
	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/graph"
	"github.com/deskflow/deskflow/pkg/mocks"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/persistence"
	"github.com/deskflow/deskflow/pkg/registry"
)

type mockTrackingStore struct {
	mock.Mock
}

func (m *mockTrackingStore) Track(ctx context.Context, conversation models.TrackedConversation) error {
	args := m.Called(ctx, conversation)

	return args.Error(0)
}

func (m *mockTrackingStore) List(ctx context.Context) ([]models.TrackedConversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.TrackedConversation), args.Error(1)
}

func (m *mockTrackingStore) ListByTicket(ctx context.Context, ticketID string) ([]models.TrackedConversation, error) {
	args := m.Called(ctx, ticketID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]models.TrackedConversation), args.Error(1)
}

func (m *mockTrackingStore) Remove(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)

	return args.Bool(0), args.Error(1)
}

type monitorFixture struct {
	store     *mockTrackingStore
	workflows *mocks.MockWorkflowRepository
	entities  *mocks.MockEntityRepository
	starter   *mocks.MockWorkflowStarter
	monitor   *Monitor
}

func newMonitorFixture(now time.Time) *monitorFixture {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store := &mockTrackingStore{}
	workflows := &mocks.MockWorkflowRepository{}
	entities := &mocks.MockEntityRepository{}
	routing := &mocks.MockRoutingRepository{}
	starter := &mocks.MockWorkflowStarter{}

	reg := registry.NewRegistry(logger)
	reg.RegisterDefaultKinds()

	resolver := facts.NewResolver(entities, logger)
	validator := graph.NewValidator(reg, resolver, logger)
	notifier := engine.NewChatbotNotifier("", logger)
	fallback := dispatch.NewFallbackRouter(routing, resolver, notifier, logger)
	dispatcher := dispatch.NewDispatcher(workflows, entities, reg, validator, starter, fallback, logger)

	m := NewMonitor(store, workflows, entities, reg, dispatcher, "* * * * *", logger)
	m.now = func() time.Time { return now }

	return &monitorFixture{
		store:     store,
		workflows: workflows,
		entities:  entities,
		starter:   starter,
		monitor:   m,
	}
}

func unresponsivenessWorkflow(id string, minutes int, party string) *models.Workflow {
	return &models.Workflow{
		ID:       id,
		TenantID: "tenant-1",
		Name:     "Nudge silent " + party,
		Status:   models.WorkflowStatusLive,
		Nodes: []*models.WorkflowNode{
			{ID: "t1", Type: models.NodeTypeTriggerUnresponsiveness, IsTrigger: true, SchemaVersion: 1,
				Config: map[string]any{"time_in_minutes": minutes, "party": party}},
			{ID: "m1", Type: models.NodeTypeSendMessage, SchemaVersion: 1,
				Config: map[string]any{"message": "Are you still there?"}},
			{ID: "e1", Type: models.NodeTypeEnd, SchemaVersion: 1},
		},
		Edges: []*models.Edge{
			{ID: "edge-1", SourceNodeID: "t1", SourceHandle: models.HandleExit, TargetNodeID: "m1", TargetHandle: models.HandleEntry},
			{ID: "edge-2", SourceNodeID: "m1", SourceHandle: models.HandleExit, TargetNodeID: "e1", TargetHandle: models.HandleEntry},
		},
	}
}

func trackedConversation(lastMessageAt time.Time) models.TrackedConversation {
	return models.TrackedConversation{
		TicketID:       "ticket-1",
		WorkflowID:     "wf-1",
		NodeID:         "t1",
		Party:          models.PartyCustomer,
		TimeoutMinutes: 30,
		LastMessageAt:  lastMessageAt,
	}
}

func openTicket() *models.Ticket {
	return &models.Ticket{
		ID:          "ticket-1",
		TenantID:    "tenant-1",
		ChannelKind: models.ChannelKindChat,
		ChannelID:   "widget-1",
		Status:      models.TicketStatusOpen,
	}
}

func TestRunOnce_PendingTimeoutRecordsCheck(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	conversation := trackedConversation(now.Add(-10 * time.Minute))

	f.store.On("List", mock.Anything).Return([]models.TrackedConversation{conversation}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(openTicket(), nil)

	updated := conversation
	updated.LastCheckAt = now
	f.store.On("Track", mock.Anything, updated).Return(nil)

	require.NoError(t, f.monitor.RunOnce(context.Background()))

	f.store.AssertNotCalled(t, "Remove", mock.Anything, mock.Anything)
	f.starter.AssertNotCalled(t, "StartWorkflow", mock.Anything, mock.Anything)
}

func TestRunOnce_ExpiredTimeoutFiresWorkflow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	conversation := trackedConversation(now.Add(-45 * time.Minute))

	f.store.On("List", mock.Anything).Return([]models.TrackedConversation{conversation}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(openTicket(), nil)
	f.store.On("Remove", mock.Anything, "ticket-1:wf-1").Return(true, nil)
	f.workflows.On("ListByStatus", mock.Anything, "tenant-1", models.WorkflowStatusLive).
		Return([]*models.Workflow{unresponsivenessWorkflow("wf-1", 30, "customer")}, nil)
	f.starter.On("StartWorkflow", mock.Anything, engine.StartWorkflowRequest{
		WorkflowID: "wf-1",
		TicketID:   "ticket-1",
	}).Return(nil)

	require.NoError(t, f.monitor.RunOnce(context.Background()))

	f.starter.AssertNumberOfCalls(t, "StartWorkflow", 1)
	f.store.AssertNotCalled(t, "Track", mock.Anything, mock.Anything)
}

func TestRunOnce_LostRemoveRaceDoesNotFire(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	conversation := trackedConversation(now.Add(-45 * time.Minute))

	f.store.On("List", mock.Anything).Return([]models.TrackedConversation{conversation}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(openTicket(), nil)
	f.store.On("Remove", mock.Anything, "ticket-1:wf-1").Return(false, nil)

	require.NoError(t, f.monitor.RunOnce(context.Background()))

	f.starter.AssertNotCalled(t, "StartWorkflow", mock.Anything, mock.Anything)
	f.workflows.AssertNotCalled(t, "ListByStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestRunOnce_ClosedTicketPrunesRow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	conversation := trackedConversation(now.Add(-45 * time.Minute))
	ticket := openTicket()
	ticket.Status = models.TicketStatusClosed

	f.store.On("List", mock.Anything).Return([]models.TrackedConversation{conversation}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(ticket, nil)
	f.store.On("Remove", mock.Anything, "ticket-1:wf-1").Return(true, nil)

	require.NoError(t, f.monitor.RunOnce(context.Background()))

	f.starter.AssertNotCalled(t, "StartWorkflow", mock.Anything, mock.Anything)
}

func TestRunOnce_DeletedTicketPrunesRow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	conversation := trackedConversation(now.Add(-45 * time.Minute))

	f.store.On("List", mock.Anything).Return([]models.TrackedConversation{conversation}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(nil, persistence.ErrTicketNotFound)
	f.store.On("Remove", mock.Anything, "ticket-1:wf-1").Return(true, nil)

	require.NoError(t, f.monitor.RunOnce(context.Background()))

	f.starter.AssertNotCalled(t, "StartWorkflow", mock.Anything, mock.Anything)
}

func TestRunOnce_OneFailedCheckDoesNotStopOthers(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	broken := trackedConversation(now.Add(-45 * time.Minute))
	healthy := trackedConversation(now.Add(-10 * time.Minute))
	healthy.TicketID = "ticket-2"

	f.store.On("List", mock.Anything).Return([]models.TrackedConversation{broken, healthy}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(nil, assert.AnError)

	ticket2 := openTicket()
	ticket2.ID = "ticket-2"
	f.entities.On("TicketByID", mock.Anything, "ticket-2").Return(ticket2, nil)

	updated := healthy
	updated.LastCheckAt = now
	f.store.On("Track", mock.Anything, updated).Return(nil)

	require.NoError(t, f.monitor.RunOnce(context.Background()))

	f.store.AssertCalled(t, "Track", mock.Anything, updated)
}

func TestObserveMessage_WatchedPartyReplyClearsTracking(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	// The customer was the watched party; their message clears the clock.
	conversation := trackedConversation(now.Add(-10 * time.Minute))

	f.store.On("ListByTicket", mock.Anything, "ticket-1").
		Return([]models.TrackedConversation{conversation}, nil)
	f.store.On("Remove", mock.Anything, "ticket-1:wf-1").Return(true, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(openTicket(), nil)
	f.workflows.On("ListByStatus", mock.Anything, "tenant-1", models.WorkflowStatusLive).
		Return([]*models.Workflow{}, nil)

	event := events.DomainEvent{
		ID:        "event-1",
		Kind:      events.CustomerMessageEvent,
		TenantID:  "tenant-1",
		TicketID:  "ticket-1",
		Timestamp: now,
	}

	require.NoError(t, f.monitor.ObserveMessage(context.Background(), event))

	f.store.AssertCalled(t, "Remove", mock.Anything, "ticket-1:wf-1")
}

func TestObserveMessage_StartsClockForOppositeParty(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	// Customer spoke: workflows watching agent silence start their clocks,
	// workflows watching the customer do not.
	watchAgent := unresponsivenessWorkflow("wf-agent", 15, "agent")
	watchCustomer := unresponsivenessWorkflow("wf-customer", 30, "customer")

	f.store.On("ListByTicket", mock.Anything, "ticket-1").
		Return([]models.TrackedConversation{}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(openTicket(), nil)
	f.workflows.On("ListByStatus", mock.Anything, "tenant-1", models.WorkflowStatusLive).
		Return([]*models.Workflow{watchAgent, watchCustomer}, nil)
	f.store.On("Track", mock.Anything, models.TrackedConversation{
		TicketID:       "ticket-1",
		WorkflowID:     "wf-agent",
		NodeID:         "t1",
		Party:          models.PartyAgent,
		TimeoutMinutes: 15,
		LastMessageAt:  now,
		LastCheckAt:    now,
	}).Return(nil)

	event := events.DomainEvent{
		ID:        "event-1",
		Kind:      events.CustomerMessageEvent,
		TenantID:  "tenant-1",
		TicketID:  "ticket-1",
		Timestamp: now,
	}

	require.NoError(t, f.monitor.ObserveMessage(context.Background(), event))

	f.store.AssertNumberOfCalls(t, "Track", 1)
}

func TestObserveMessage_AgentMessageWatchesCustomer(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	watchCustomer := unresponsivenessWorkflow("wf-customer", 30, "customer")

	f.store.On("ListByTicket", mock.Anything, "ticket-1").
		Return([]models.TrackedConversation{}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(openTicket(), nil)
	f.workflows.On("ListByStatus", mock.Anything, "tenant-1", models.WorkflowStatusLive).
		Return([]*models.Workflow{watchCustomer}, nil)
	f.store.On("Track", mock.Anything, mock.MatchedBy(func(c models.TrackedConversation) bool {
		return c.WorkflowID == "wf-customer" && c.Party == models.PartyCustomer
	})).Return(nil)

	event := events.DomainEvent{
		ID:        "event-1",
		Kind:      events.AgentMessageEvent,
		TenantID:  "tenant-1",
		TicketID:  "ticket-1",
		Timestamp: now,
	}

	require.NoError(t, f.monitor.ObserveMessage(context.Background(), event))

	f.store.AssertNumberOfCalls(t, "Track", 1)
}

func TestObserveMessage_ChannelFilterExcludesWorkflow(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	filtered := unresponsivenessWorkflow("wf-agent", 15, "agent")
	filtered.Channels = []models.ChannelFilter{
		{Kind: models.ChannelKindChat, ChannelID: "widget-2"},
	}

	f.store.On("ListByTicket", mock.Anything, "ticket-1").
		Return([]models.TrackedConversation{}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(openTicket(), nil)
	f.workflows.On("ListByStatus", mock.Anything, "tenant-1", models.WorkflowStatusLive).
		Return([]*models.Workflow{filtered}, nil)

	event := events.DomainEvent{
		ID:        "event-1",
		Kind:      events.CustomerMessageEvent,
		TenantID:  "tenant-1",
		TicketID:  "ticket-1",
		Timestamp: now,
	}

	require.NoError(t, f.monitor.ObserveMessage(context.Background(), event))

	f.store.AssertNotCalled(t, "Track", mock.Anything, mock.Anything)
}

func TestObserveMessage_DeletedTicketStopsQuietly(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := newMonitorFixture(now)

	f.store.On("ListByTicket", mock.Anything, "ticket-1").
		Return([]models.TrackedConversation{}, nil)
	f.entities.On("TicketByID", mock.Anything, "ticket-1").Return(nil, persistence.ErrTicketNotFound)

	event := events.DomainEvent{
		ID:       "event-1",
		Kind:     events.CustomerMessageEvent,
		TenantID: "tenant-1",
		TicketID: "ticket-1",
	}

	require.NoError(t, f.monitor.ObserveMessage(context.Background(), event))

	f.workflows.AssertNotCalled(t, "ListByStatus", mock.Anything, mock.Anything, mock.Anything)
}
