package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/wingoboss/wingoboss-api/internal/lib/sl"
	"github.com/wingoboss/wingoboss-api/internal/models"
)

// Channel канал redis для событий профиля.
const Channel = "profile-events"

// RedisBridge публикует события в redis и раздаёт полученные из redis в локальный Hub.
type RedisBridge struct {
	client *redis.Client
	hub    *Hub
	log    *slog.Logger
}

// NewRedisBridge создаёт мост.
func NewRedisBridge(client *redis.Client, hub *Hub, log *slog.Logger) *RedisBridge {
	return &RedisBridge{client: client, hub: hub, log: log}
}

// Publish отправляет событие всем экземплярам, включая текущий.
func (b *RedisBridge) Publish(ctx context.Context, event models.ProfileEvent) error {
	const op = "pubsub.Publish"
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := b.client.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Subscribe подписывает на события uid через локальный Hub.
func (b *RedisBridge) Subscribe(uid string) (<-chan models.ProfileEvent, func()) {
	return b.hub.Subscribe(uid)
}

// Run слушает канал и пересылает события в Hub до отмены ctx.
// ready закрывается после подтверждения подписки, может быть nil.
func (b *RedisBridge) Run(ctx context.Context, ready chan<- struct{}) error {
	const op = "pubsub.Run"
	log := b.log.With(slog.String("op", op))

	ps := b.client.Subscribe(ctx, Channel)
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if ready != nil {
		close(ready)
	}
	log.Info("listening for profile events", slog.String("channel", Channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event models.ProfileEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Warn("skip malformed profile event", sl.Err(err))
				continue
			}
			b.hub.Deliver(event)
		}
	}
}
