package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/deskflow/deskflow/pkg/channels/kafka"
	"github.com/deskflow/deskflow/pkg/events"
)

// kafkaEventBus implements EventBus on the Kafka change feed via watermill.
type kafkaEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[events.EventKind][]EventHandler
	logger     *slog.Logger
}

// NewKafkaEventBus connects to the change-feed topic on the given brokers.
func NewKafkaEventBus(logger *slog.Logger, serviceName string, brokers []string) (EventBus, error) {
	pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), serviceName, brokers)
	if err != nil {
		return nil, err
	}

	return &kafkaEventBus{
		publisher:  pub,
		subscriber: sub,
		handlers:   make(map[events.EventKind][]EventHandler),
		logger:     logger.With("module", "kafka_event_bus"),
	}, nil
}

func (k *kafkaEventBus) Publish(_ context.Context, event events.DomainEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	// The ticket ID keys partitioning so one ticket's events stay ordered.
	msg.Metadata.Set(events.EventKeyMetadataKey, event.TicketID)
	msg.Metadata.Set(events.EventKindMetadataKey, string(event.Kind))

	k.logger.Debug("Publishing domain event",
		"event_id", event.ID,
		"kind", event.Kind,
		"ticket_id", event.TicketID)

	return k.publisher.Publish(events.ChangeFeedTopic, msg)
}

func (k *kafkaEventBus) Handle(kind events.EventKind, handler EventHandler) {
	k.handlers[kind] = append(k.handlers[kind], handler)
}

// Subscribe starts consuming the feed. Handler registration must be complete
// before calling it; the handler map is read without locking afterwards.
func (k *kafkaEventBus) Subscribe(ctx context.Context) error {
	if len(k.handlers) == 0 {
		k.logger.Warn("No handlers registered for change feed")

		return nil
	}

	messages, err := k.subscriber.Subscribe(ctx, events.ChangeFeedTopic)
	if err != nil {
		return err
	}

	k.logger.Info("Subscribed to change feed", "topic", events.ChangeFeedTopic)

	go func() {
		for msg := range messages {
			k.process(ctx, msg)
		}
	}()

	return nil
}

func (k *kafkaEventBus) process(ctx context.Context, msg *message.Message) {
	var event events.DomainEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		k.logger.Error("Failed to decode domain event", "message_id", msg.UUID, "error", err)
		msg.Nack()

		return
	}

	handlers := k.handlers[event.Kind]
	if len(handlers) == 0 {
		k.logger.Debug("No handler for event kind, dropping", "kind", event.Kind)
		msg.Ack()

		return
	}

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			k.logger.Error("Event handler failed",
				"event_id", event.ID,
				"kind", event.Kind,
				"error", err)
			msg.Nack()

			return
		}
	}

	msg.Ack()
}

func (k *kafkaEventBus) Close() error {
	var publisherErr, subscriberErr error

	if k.publisher != nil {
		publisherErr = k.publisher.Close()
	}

	if k.subscriber != nil {
		subscriberErr = k.subscriber.Close()
	}

	if publisherErr != nil {
		return publisherErr
	}

	return subscriberErr
}
