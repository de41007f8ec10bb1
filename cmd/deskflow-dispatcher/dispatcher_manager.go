package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/trace"

	"github.com/deskflow/deskflow/pkg/cmd"
	"github.com/deskflow/deskflow/pkg/dispatch"
	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/eventbus"
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/graph"
	"github.com/deskflow/deskflow/pkg/persistence"
)

// DispatcherManager wires the dispatch pipeline to the change feed and runs
// it until shutdown.
type DispatcherManager struct {
	id          string
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	dispatcher  *dispatch.Dispatcher
	logger      *slog.Logger
}

func NewDispatcherManager(
	id string,
	persist persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	tracer trace.Tracer,
	engineURL, engineAPIKey, chatbotNotifyURL string,
) *DispatcherManager {
	registry := cmd.NewRegistry(logger)
	resolver := facts.NewResolver(persist.EntityRepository(), logger)
	validator := graph.NewValidator(registry, resolver, logger)

	credentials := engine.NewAPICredentialProvider(engineURL+"/auth/token", engineAPIKey, nil)
	client := engine.NewClient(engineURL, credentials, logger)
	notifier := engine.NewChatbotNotifier(chatbotNotifyURL, logger)
	fallback := dispatch.NewFallbackRouter(persist.RoutingRepository(), resolver, notifier, logger)

	dispatcher := dispatch.NewDispatcher(
		persist.WorkflowRepository(),
		persist.EntityRepository(),
		registry,
		validator,
		client,
		fallback,
		logger,
	).WithTracer(tracer)

	return &DispatcherManager{
		id:          id,
		persistence: persist,
		eventBus:    eventBus,
		dispatcher:  dispatcher,
		logger:      logger,
	}
}

// Start subscribes the dispatcher to the feed and blocks until a signal or
// context cancellation.
func (dm *DispatcherManager) Start(ctx context.Context) error {
	dmCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	handler := func(ctx context.Context, event events.DomainEvent) error {
		result, err := dm.dispatcher.OnDomainEvent(ctx, event)
		if err != nil {
			return err
		}

		dm.logger.Debug("Event processed",
			"event_id", event.ID,
			"kind", event.Kind,
			"dispatched", len(result.DispatchedWorkflowIDs),
			"fallback", result.FallbackApplied)

		return nil
	}

	dm.eventBus.Handle(events.TicketCreatedEvent, handler)
	dm.eventBus.Handle(events.TicketDataChangedEvent, handler)
	dm.eventBus.Handle(events.CustomerMessageEvent, handler)
	dm.eventBus.Handle(events.TicketUnresponsiveEvent, handler)

	if err := dm.eventBus.Subscribe(dmCtx); err != nil {
		return err
	}

	dm.logger.Info("Dispatcher manager started")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-signals:
		dm.logger.Info("Received signal, shutting down gracefully", "signal", sig)
	case <-dmCtx.Done():
	}

	return nil
}
