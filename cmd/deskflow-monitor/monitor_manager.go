package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/deskflow/deskflow/pkg/cmd"
	"github.com/deskflow/deskflow/pkg/dispatch"
	"github.com/deskflow/deskflow/pkg/engine"
	"github.com/deskflow/deskflow/pkg/eventbus"
	"github.com/deskflow/deskflow/pkg/events"
	"github.com/deskflow/deskflow/pkg/facts"
	"github.com/deskflow/deskflow/pkg/graph"
	"github.com/deskflow/deskflow/pkg/monitor"
	"github.com/deskflow/deskflow/pkg/persistence"
)

// MonitorManager runs the unresponsiveness monitor: message observation from
// the feed plus the cron poll cycle, sharing the dispatcher's dispatch path.
type MonitorManager struct {
	persistence persistence.Persistence
	eventBus    eventbus.EventBus
	monitor     *monitor.Monitor
	logger      *slog.Logger
}

func NewMonitorManager(
	persist persistence.Persistence,
	eventBus eventbus.EventBus,
	logger *slog.Logger,
	redisURL, engineURL, engineAPIKey, schedule string,
) (*MonitorManager, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	store := monitor.NewRedisTrackingStore(redis.NewClient(opts), logger)

	registry := cmd.NewRegistry(logger)
	resolver := facts.NewResolver(persist.EntityRepository(), logger)
	validator := graph.NewValidator(registry, resolver, logger)

	credentials := engine.NewAPICredentialProvider(engineURL+"/auth/token", engineAPIKey, nil)
	client := engine.NewClient(engineURL, credentials, logger)
	notifier := engine.NewChatbotNotifier("", logger)
	fallback := dispatch.NewFallbackRouter(persist.RoutingRepository(), resolver, notifier, logger)

	dispatcher := dispatch.NewDispatcher(
		persist.WorkflowRepository(),
		persist.EntityRepository(),
		registry,
		validator,
		client,
		fallback,
		logger,
	)

	mon := monitor.NewMonitor(
		store,
		persist.WorkflowRepository(),
		persist.EntityRepository(),
		registry,
		dispatcher,
		schedule,
		logger,
	)

	return &MonitorManager{
		persistence: persist,
		eventBus:    eventBus,
		monitor:     mon,
		logger:      logger,
	}, nil
}

// Start observes message events for tracking and runs the poll loop until a
// signal arrives.
func (mm *MonitorManager) Start(ctx context.Context) error {
	mmCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	observe := func(ctx context.Context, event events.DomainEvent) error {
		return mm.monitor.ObserveMessage(ctx, event)
	}

	mm.eventBus.Handle(events.CustomerMessageEvent, observe)
	mm.eventBus.Handle(events.AgentMessageEvent, observe)

	if err := mm.eventBus.Subscribe(mmCtx); err != nil {
		return err
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		mm.logger.Info("Received signal, shutting down gracefully", "signal", sig)
		cancel()
	}()

	return mm.monitor.Start(mmCtx)
}
