package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/deskflow/deskflow/pkg/models"
)

const trackingKeyPrefix = "deskflow:tracking:"

// TrackingStore holds the conversations awaiting a response. Remove reports
// whether this caller deleted the row; concurrent pollers race on it, and only
// the winner may act.
type TrackingStore interface {
	Track(ctx context.Context, conversation models.TrackedConversation) error
	List(ctx context.Context) ([]models.TrackedConversation, error)
	ListByTicket(ctx context.Context, ticketID string) ([]models.TrackedConversation, error)
	Remove(ctx context.Context, key string) (bool, error)
}

// RedisTrackingStore keeps one JSON value per tracked ticket/workflow pair.
// DEL returning the removed-key count is the compare-and-delete that prevents
// two pollers from firing the same timeout.
type RedisTrackingStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisTrackingStore(client *redis.Client, logger *slog.Logger) *RedisTrackingStore {
	return &RedisTrackingStore{
		client: client,
		logger: logger.With("module", "tracking_store"),
	}
}

func (s *RedisTrackingStore) Track(ctx context.Context, conversation models.TrackedConversation) error {
	payload, err := json.Marshal(conversation)
	if err != nil {
		return fmt.Errorf("failed to encode tracked conversation: %w", err)
	}

	err = s.client.Set(ctx, trackingKeyPrefix+conversation.Key(), payload, 0).Err()
	if err != nil {
		return fmt.Errorf("failed to store tracked conversation: %w", err)
	}

	return nil
}

func (s *RedisTrackingStore) List(ctx context.Context) ([]models.TrackedConversation, error) {
	return s.scan(ctx, trackingKeyPrefix+"*")
}

func (s *RedisTrackingStore) ListByTicket(
	ctx context.Context,
	ticketID string,
) ([]models.TrackedConversation, error) {
	return s.scan(ctx, trackingKeyPrefix+ticketID+":*")
}

func (s *RedisTrackingStore) scan(ctx context.Context, pattern string) ([]models.TrackedConversation, error) {
	var (
		conversations []models.TrackedConversation
		cursor        uint64
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to scan tracked conversations: %w", err)
		}

		for _, key := range keys {
			payload, err := s.client.Get(ctx, key).Bytes()
			if err == redis.Nil {
				// Removed between scan and get; already handled elsewhere.
				continue
			}

			if err != nil {
				return nil, fmt.Errorf("failed to read tracked conversation %s: %w", key, err)
			}

			var conversation models.TrackedConversation
			if err := json.Unmarshal(payload, &conversation); err != nil {
				return nil, fmt.Errorf("failed to decode tracked conversation %s: %w", key, err)
			}

			conversations = append(conversations, conversation)
		}

		cursor = next
		if cursor == 0 {
			return conversations, nil
		}
	}
}

func (s *RedisTrackingStore) Remove(ctx context.Context, key string) (bool, error) {
	removed, err := s.client.Del(ctx, trackingKeyPrefix+key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to remove tracked conversation %s: %w", key, err)
	}

	return removed > 0, nil
}
