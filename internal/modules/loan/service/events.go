package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"anoa.com/librarydesk/internal/modules/loan/dto"
	"github.com/redis/go-redis/v9"
)

const BookEventsChannel = "library:book_events"

type EventPublisher interface {
	Publish(ctx context.Context, event dto.BookEvent)
}

type redisPublisher struct {
	redisClient *redis.Client
}

// NewRedisPublisher publishes book events on BookEventsChannel. A nil client
// turns publishing into a no-op.
func NewRedisPublisher(redisClient *redis.Client) EventPublisher {
	return &redisPublisher{redisClient: redisClient}
}

func (p *redisPublisher) Publish(ctx context.Context, event dto.BookEvent) {
	if p.redisClient == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal book event", "error", err)
		return
	}

	if err := p.redisClient.Publish(ctx, BookEventsChannel, payload).Err(); err != nil {
		slog.Warn("failed to publish book event", "book_id", event.BookID, "error", err)
	}
}
