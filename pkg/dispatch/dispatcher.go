// Package dispatch matches domain events against live workflows and hands
// matching ones to the external execution engine. New-ticket events that
// match no workflow fall back to chatbot or team routing; the two paths are
// mutually exclusive per event.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/graph"
	"github.com/deskflow/deskflow/pkg/models"
	"github.com/deskflow/deskflow/pkg/nodes/trigger"
	"github.com/deskflow/deskflow/pkg/persistence"
	"github.com/deskflow/deskflow/pkg/registry"
	"github.com/deskflow/deskflow/pkg/tracer"
)

// WorkflowStarter is the engine-facing half of the dispatcher, satisfied by
// engine.Client.
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, req engine.StartWorkflowRequest) error
}

// Result summarizes what one event caused.
type Result struct {
	DispatchedWorkflowIDs []string
	FallbackApplied       bool
}

// Dispatcher consumes change-feed events and decides, per live workflow,
// whether to start it. Feed delivery is at-least-once; exactly-once handoff to
// the engine is per event per workflow, enforced by dispatching at most once
// for the first matching trigger node.
type Dispatcher struct {
	workflows persistence.WorkflowRepository
	entities  persistence.EntityRepository
	registry  *registry.Registry
	validator *graph.Validator
	starter   WorkflowStarter
	fallback  *FallbackRouter
	logger    *slog.Logger
	tracer    trace.Tracer
}

func NewDispatcher(
	workflows persistence.WorkflowRepository,
	entities persistence.EntityRepository,
	reg *registry.Registry,
	validator *graph.Validator,
	starter WorkflowStarter,
	fallback *FallbackRouter,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		workflows: workflows,
		entities:  entities,
		registry:  reg,
		validator: validator,
		starter:   starter,
		fallback:  fallback,
		logger:    logger.With("module", "dispatcher"),
	}
}

// WithTracer enables span emission around the dispatch decision.
func (d *Dispatcher) WithTracer(t trace.Tracer) *Dispatcher {
	d.tracer = t

	return d
}

// OnDomainEvent runs the full dispatch decision for one feed event. It never
// treats a failed rule or channel check as an error; those are normal
// non-matches. Structural failures on a live workflow are logged loudly since
// activation should have prevented them. An engine start failure is returned
// to the caller, and a workflow that matched but failed to start still counts
// as matched, so fallback routing never fires for it.
func (d *Dispatcher) OnDomainEvent(ctx context.Context, event events.DomainEvent) (Result, error) {
	result := Result{}

	var span trace.Span
	if d.tracer != nil {
		ctx, span = tracer.StartSpan(ctx, d.tracer, "dispatch.on_domain_event",
			attribute.String(tracer.EventIDKey, event.ID),
			attribute.String(tracer.EventKindKey, string(event.Kind)),
			attribute.String(tracer.TicketIDKey, event.TicketID),
			attribute.String(tracer.TenantIDKey, event.TenantID),
		)
		defer span.End()
	}

	ticket, err := d.entities.TicketByID(ctx, event.TicketID)
	if err != nil {
		if persistence.IsEntityNotFound(err) {
			// The ticket was deleted between the feed write and this
			// delivery; nothing can match or route.
			d.logger.Info("Skipping event for missing ticket",
				"event_id", event.ID, "ticket_id", event.TicketID)

			return result, nil
		}

		err = fmt.Errorf("failed to load ticket for event %s: %w", event.ID, err)
		if span != nil {
			tracer.SetError(span, err)
		}

		return result, err
	}

	workflows, err := d.workflows.ListByStatus(ctx, event.TenantID, models.WorkflowStatusLive)
	if err != nil {
		err = fmt.Errorf("failed to list live workflows: %w", err)
		if span != nil {
			tracer.SetError(span, err)
		}

		return result, err
	}

	var startErr error

	matched := 0

	for _, workflow := range workflows {
		if event.WorkflowID != "" && workflow.ID != event.WorkflowID {
			continue
		}

		dispatched, err := d.tryDispatch(ctx, workflow, event, ticket)
		if err != nil {
			// The workflow matched but the start never reached the engine.
			// Siblings still get their turn; the error is surfaced after the
			// loop so the feed nacks and redelivers.
			matched++
			startErr = errors.Join(startErr, err)

			continue
		}

		if dispatched {
			matched++

			result.DispatchedWorkflowIDs = append(result.DispatchedWorkflowIDs, workflow.ID)
		}
	}

	if startErr != nil {
		if span != nil {
			tracer.SetError(span, startErr)
		}

		return result, startErr
	}

	if event.Kind == events.TicketCreatedEvent && matched == 0 {
		applied, err := d.fallback.Route(ctx, ticket)
		if err != nil {
			return result, err
		}

		result.FallbackApplied = applied
	}

	return result, nil
}

// tryDispatch checks one workflow against the event and starts it when every
// gate passes. At most one start per workflow per event, even when several
// trigger nodes match.
func (d *Dispatcher) tryDispatch(
	ctx context.Context,
	workflow *models.Workflow,
	event events.DomainEvent,
	ticket *models.Ticket,
) (bool, error) {
	if !d.triggerMatches(workflow, event) {
		return false, nil
	}

	err := d.validator.Validate(ctx, workflow, graph.Options{
		CheckChannels: true,
		ChannelKind:   ticket.ChannelKind,
		ChannelID:     ticket.ChannelID,
		CheckRules:    workflow.RuleRoot != nil,
		Roots: facts.RootIDs{
			TicketID:  ticket.ID,
			ContactID: ticket.ContactID,
		},
	})
	if err != nil {
		if graph.IsStructuralFailure(err) {
			d.logger.Error("Live workflow failed structural validation",
				"workflow_id", workflow.ID, "error", err)
		} else {
			d.logger.Debug("Workflow not eligible for event",
				"workflow_id", workflow.ID, "event_id", event.ID, "error", err)
		}

		return false, nil
	}

	req := engine.StartWorkflowRequest{
		WorkflowID: workflow.ID,
		TicketID:   ticket.ID,
		ContactID:  ticket.ContactID,
	}

	if req.ContactID != "" {
		contact, err := d.entities.ContactByID(ctx, req.ContactID)
		if err == nil {
			req.CompanyID = contact.CompanyID
		} else if !persistence.IsEntityNotFound(err) {
			return false, fmt.Errorf("failed to load contact %s: %w", req.ContactID, err)
		}
	}

	if err := d.starter.StartWorkflow(ctx, req); err != nil {
		// Delivered but not actioned; the returned error nacks the delivery
		// so the feed redelivers and retries this start.
		d.logger.Error("Failed to start workflow",
			"workflow_id", workflow.ID, "event_id", event.ID, "error", err)

		return false, fmt.Errorf("failed to start workflow %s: %w", workflow.ID, err)
	}

	return true, nil
}

// triggerMatches reports whether any trigger node of the workflow reacts to
// the event. Data-changed triggers additionally require the changed field set
// to intersect their watched fields before any validation runs.
func (d *Dispatcher) triggerMatches(workflow *models.Workflow, event events.DomainEvent) bool {
	for _, node := range workflow.TriggerNodes() {
		kind, ok := d.registry.TriggerKind(node.Type)
		if !ok || !kind.Matches(event.Kind) {
			continue
		}

		if node.Type == models.NodeTypeTriggerDataChanged &&
			!intersects(trigger.WatchedFields(node.Config), event.ChangedFields()) {
			continue
		}

		return true
	}

	return false
}

// Dispatch is the manual path: start one named workflow for one ticket,
// running the same validation pipeline minus the trigger match.
func (d *Dispatcher) Dispatch(ctx context.Context, workflowID, ticketID string) error {
	workflow, err := d.workflows.GetByID(ctx, workflowID)
	if err != nil {
		return err
	}

	if workflow.Status != models.WorkflowStatusLive {
		return persistence.NewWorkflowError("Dispatch", workflowID, persistence.ErrInvalidWorkflowStatus)
	}

	ticket, err := d.entities.TicketByID(ctx, ticketID)
	if err != nil {
		return err
	}

	err = d.validator.Validate(ctx, workflow, graph.Options{
		CheckChannels: true,
		ChannelKind:   ticket.ChannelKind,
		ChannelID:     ticket.ChannelID,
		CheckRules:    workflow.RuleRoot != nil,
		Roots: facts.RootIDs{
			TicketID:  ticket.ID,
			ContactID: ticket.ContactID,
		},
	})
	if err != nil {
		return err
	}

	req := engine.StartWorkflowRequest{
		WorkflowID: workflowID,
		TicketID:   ticket.ID,
		ContactID:  ticket.ContactID,
	}

	if req.ContactID != "" {
		contact, err := d.entities.ContactByID(ctx, req.ContactID)
		if err == nil {
			req.CompanyID = contact.CompanyID
		} else if !persistence.IsEntityNotFound(err) {
			return fmt.Errorf("failed to load contact %s: %w", req.ContactID, err)
		}
	}

	return d.starter.StartWorkflow(ctx, req)
}

func intersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}

	set := make(map[string]bool, len(a))
	for _, field := range a {
		set[field] = true
	}

	for _, field := range b {
		if set[field] {
			return true
		}
	}

	return false
}
