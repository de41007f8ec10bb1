package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/deskflow/deskflow/pkg/eventbus"
)

// NewEventBus connects the service to the change feed.
func NewEventBus(logger *slog.Logger, serviceName, brokers string) (eventbus.EventBus, error) {
	bus, err := eventbus.NewKafkaEventBus(logger, serviceName, strings.Split(brokers, ","))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka event bus: %w", err)
	}

	return bus, nil
}
