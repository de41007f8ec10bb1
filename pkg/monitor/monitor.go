// Package monitor tracks conversations awaiting a reply and turns elapsed
// silence into derived unresponsiveness events for the dispatcher. Removing
// the tracking row comes before acting on it; whoever deletes the row owns the
// firing.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/deskflow/deskflow/pkg/dispatch"
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/nodes/trigger"
	"github.com/deskflow/deskflow/pkg/persistence"
	"github.com/deskflow/deskflow/pkg/registry"
)

// Monitor polls the tracking store and re-enters the dispatcher with derived
// ticket.unresponsive events when a watched party stays silent past its
// timeout.
type Monitor struct {
	store      TrackingStore
	workflows  persistence.WorkflowRepository
	entities   persistence.EntityRepository
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	cron       *cron.Cron
	schedule   string
	logger     *slog.Logger
	now        func() time.Time
}

func NewMonitor(
	store TrackingStore,
	workflows persistence.WorkflowRepository,
	entities persistence.EntityRepository,
	reg *registry.Registry,
	dispatcher *dispatch.Dispatcher,
	schedule string,
	logger *slog.Logger,
) *Monitor {
	return &Monitor{
		store:      store,
		workflows:  workflows,
		entities:   entities,
		registry:   reg,
		dispatcher: dispatcher,
		cron:       cron.New(),
		schedule:   schedule,
		logger:     logger.With("module", "unresponsiveness_monitor"),
		now:        time.Now,
	}
}

// Start schedules RunOnce on the cron schedule and runs until the context is
// cancelled.
func (m *Monitor) Start(ctx context.Context) error {
	_, err := m.cron.AddFunc(m.schedule, func() {
		if err := m.RunOnce(ctx); err != nil {
			m.logger.Error("Poll cycle failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule poll cycle: %w", err)
	}

	m.cron.Start()
	m.logger.Info("Unresponsiveness monitor started", "schedule", m.schedule)

	<-ctx.Done()

	stopped := m.cron.Stop()
	<-stopped.Done()

	return nil
}

// RunOnce walks every tracked conversation. Closed or deleted tickets are
// pruned without firing. An expired timeout fires only for the poller that
// wins the row removal; a pending one just records the check time.
func (m *Monitor) RunOnce(ctx context.Context) error {
	tracked, err := m.store.List(ctx)
	if err != nil {
		return err
	}

	for _, conversation := range tracked {
		if err := m.check(ctx, conversation); err != nil {
			m.logger.Error("Failed to check tracked conversation",
				"ticket_id", conversation.TicketID,
				"workflow_id", conversation.WorkflowID,
				"error", err)
		}
	}

	return nil
}

func (m *Monitor) check(ctx context.Context, conversation models.TrackedConversation) error {
	ticket, err := m.entities.TicketByID(ctx, conversation.TicketID)
	if err != nil {
		if persistence.IsEntityNotFound(err) {
			_, err := m.store.Remove(ctx, conversation.Key())

			return err
		}

		return err
	}

	if ticket.Status == models.TicketStatusClosed {
		_, err := m.store.Remove(ctx, conversation.Key())

		return err
	}

	now := m.now()
	deadline := conversation.LastMessageAt.Add(time.Duration(conversation.TimeoutMinutes) * time.Minute)

	if now.Before(deadline) {
		conversation.LastCheckAt = now

		return m.store.Track(ctx, conversation)
	}

	removed, err := m.store.Remove(ctx, conversation.Key())
	if err != nil {
		return err
	}

	if !removed {
		// Another poller won the delete and fired already.
		return nil
	}

	event := events.DomainEvent{
		ID:         uuid.New().String(),
		Kind:       events.TicketUnresponsiveEvent,
		TenantID:   ticket.TenantID,
		TicketID:   ticket.ID,
		WorkflowID: conversation.WorkflowID,
		Timestamp:  now,
	}

	m.logger.Info("Timeout elapsed, dispatching derived event",
		"ticket_id", ticket.ID,
		"workflow_id", conversation.WorkflowID,
		"party", conversation.Party)

	_, err = m.dispatcher.OnDomainEvent(ctx, event)

	return err
}

// ObserveMessage keeps tracking in sync with the conversation. A message from
// the watched party clears its rows (they responded in time); a message from
// the other party starts or refreshes the silence clocks of every live
// workflow watching this ticket.
func (m *Monitor) ObserveMessage(ctx context.Context, event events.DomainEvent) error {
	sender := models.PartyCustomer
	if event.Kind == events.AgentMessageEvent {
		sender = models.PartyAgent
	}

	tracked, err := m.store.ListByTicket(ctx, event.TicketID)
	if err != nil {
		return err
	}

	for _, conversation := range tracked {
		if conversation.Party != sender {
			continue
		}

		if _, err := m.store.Remove(ctx, conversation.Key()); err != nil {
			return err
		}
	}

	return m.beginTracking(ctx, event, sender)
}

// beginTracking starts a silence clock per live workflow whose
// unresponsiveness trigger waits on the party opposite the sender.
func (m *Monitor) beginTracking(ctx context.Context, event events.DomainEvent, sender models.ResponseParty) error {
	ticket, err := m.entities.TicketByID(ctx, event.TicketID)
	if err != nil {
		if persistence.IsEntityNotFound(err) {
			return nil
		}

		return err
	}

	workflows, err := m.workflows.ListByStatus(ctx, event.TenantID, models.WorkflowStatusLive)
	if err != nil {
		return err
	}

	lastMessageAt := event.Timestamp
	if lastMessageAt.IsZero() {
		lastMessageAt = m.now()
	}

	for _, workflow := range workflows {
		node := unresponsivenessTrigger(workflow)
		if node == nil {
			continue
		}

		watched := trigger.Party(node.Config)
		if watched == sender {
			continue
		}

		if !channelAllowed(workflow, ticket) {
			continue
		}

		err := m.store.Track(ctx, models.TrackedConversation{
			TicketID:       ticket.ID,
			WorkflowID:     workflow.ID,
			NodeID:         node.ID,
			Party:          watched,
			TimeoutMinutes: trigger.TimeoutMinutes(node.Config),
			LastMessageAt:  lastMessageAt,
			LastCheckAt:    m.now(),
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func unresponsivenessTrigger(workflow *models.Workflow) *models.WorkflowNode {
	for _, node := range workflow.TriggerNodes() {
		if node.Type == models.NodeTypeTriggerUnresponsiveness {
			return node
		}
	}

	return nil
}

func channelAllowed(workflow *models.Workflow, ticket *models.Ticket) bool {
	if len(workflow.Channels) == 0 {
		return true
	}

	for _, filter := range workflow.Channels {
		if filter.Matches(ticket.ChannelKind, ticket.ChannelID) {
			return true
		}
	}

	return false
}
