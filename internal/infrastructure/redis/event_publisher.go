package redis

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"

	"artmarket/internal/domain"
)

const eventChannel = "artmarket:events"

type EventPublisherImpl struct {
	client *redis.Client
}

func NewEventPublisher(client *redis.Client) *EventPublisherImpl {
	return &EventPublisherImpl{client: client}
}

func (r *EventPublisherImpl) Publish(ctx context.Context, event *domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, eventChannel, payload).Err()
}
