package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	"github.com/deskflow/deskflow/pkg/cmd"
	"github.com/deskflow/deskflow/pkg/log"
	trc "github.com/deskflow/deskflow/pkg/tracer"
)

func main() {
	command := &cli.Command{
		Name:                  "deskflow-dispatcher",
		Usage:                 "Consume the domain change feed and dispatch workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dispatcher-id",
				Aliases: []string{"id"},
				Usage:   "Custom dispatcher ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("DISPATCHER_ID"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "kafka-brokers",
				Usage:    "Comma-separated Kafka broker addresses for the change feed",
				Required: true,
				Sources:  cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:     "engine-url",
				Usage:    "Base URL of the external execution engine",
				Required: true,
				Sources:  cli.EnvVars("ENGINE_URL"),
			},
			&cli.StringFlag{
				Name:     "engine-api-key",
				Usage:    "API key for execution engine authentication",
				Required: true,
				Sources:  cli.EnvVars("ENGINE_API_KEY"),
			},
			&cli.StringFlag{
				Name:    "chatbot-notify-url",
				Usage:   "Endpoint notified when a chatbot is assigned to a ticket",
				Value:   "",
				Sources: cli.EnvVars("CHATBOT_NOTIFY_URL"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			tracerProvider, err := trc.InitTracer(ctx, "deskflow-dispatcher")
			if err != nil {
				return fmt.Errorf("failed to initialize tracer: %w", err)
			}
			defer func() {
				if err := tracerProvider.Shutdown(ctx); err != nil {
					slog.Error("Failed to shutdown tracer provider", "error", err)
				}
			}()

			dispatcherID := command.String("dispatcher-id")
			if dispatcherID == "" {
				dispatcherID = fmt.Sprintf("dispatcher-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("deskflow-dispatcher").With("dispatcher_id", dispatcherID)
			logger.Info("Initializing Deskflow Dispatcher")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(logger, "dispatcher", command.String("kafka-brokers"))
			if err != nil {
				return err
			}
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			manager := NewDispatcherManager(
				dispatcherID,
				persistence,
				eventBus,
				logger,
				tracerProvider.Tracer("deskflow-dispatcher"),
				command.String("engine-url"),
				command.String("engine-api-key"),
				command.String("chatbot-notify-url"),
			)

			return manager.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
