package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/madgik/datacatalog/internal/domain"
)

// EventChannel is the redis pub/sub channel carrying catalog change events.
const EventChannel = "datacatalog.events"

// EventService publishes committed catalog changes to redis and lets the
// realtime endpoint subscribe to them. A nil redis client disables both
// directions, which keeps single-node deployments free of the dependency.
type EventService struct {
	rdb *redis.Client
}

func NewEventService(redisClient *redis.Client) *EventService {
	return &EventService{
		rdb: redisClient,
	}
}

func (s *EventService) Publish(ctx context.Context, event domain.CatalogEvent) error {
	if s.rdb == nil {
		return nil
	}

	jsonstr, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return s.rdb.Publish(ctx, EventChannel, jsonstr).Err()
}

// Subscribe delivers catalog events until the context is cancelled. The
// returned cancel function closes the subscription.
func (s *EventService) Subscribe(ctx context.Context) (<-chan domain.CatalogEvent, func(), error) {
	out := make(chan domain.CatalogEvent)
	if s.rdb == nil {
		close(out)
		return out, func() {}, nil
	}

	pubsub := s.rdb.Subscribe(ctx, EventChannel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var event domain.CatalogEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				slog.Warn("dropping malformed catalog event",
					slog.String("error", err.Error()),
				)
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	cancel := func() {
		_ = pubsub.Close()
	}
	return out, cancel, nil
}
