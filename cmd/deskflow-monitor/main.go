package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	"github.com/deskflow/deskflow/pkg/cmd"
	"github.com/deskflow/deskflow/pkg/log"
)

func main() {
	command := &cli.Command{
		Name:                  "deskflow-monitor",
		Usage:                 "Track awaiting-response conversations and fire unresponsiveness events",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "redis-url",
				Usage:    "Redis connection URL for the tracking store",
				Required: true,
				Sources:  cli.EnvVars("REDIS_URL"),
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
				Name:    "schedule",
				Usage:   "Cron schedule for the poll cycle",
				Value:   "@every 1m",
				Sources: cli.EnvVars("MONITOR_SCHEDULE"),
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

			logger := log.WithModule("deskflow-monitor")
			logger.Info("Initializing Deskflow Monitor")

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(logger, "monitor", command.String("kafka-brokers"))
			if err != nil {
				return err
			}
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.Error("Failed to close event bus", "error", err)
				}
			}()

			manager, err := NewMonitorManager(
				persistence,
				eventBus,
				logger,
				command.String("redis-url"),
				command.String("engine-url"),
				command.String("engine-api-key"),
				command.String("schedule"),
			)
			if err != nil {
				return err
			}

			return manager.Start(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
