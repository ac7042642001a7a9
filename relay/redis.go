package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	DefaultRedisChannel = "arena-hub:relay"
	redisPublishTimeout = 2 * time.Second
)

// RedisPublisher публикует кадры в канал Redis, чтобы их получили хабы всех экземпляров.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

func NewRedisPublisher(client *redis.Client, channel string, logger *slog.Logger) *RedisPublisher {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisPublisher{client: client, channel: channel, logger: logger}
}

func (p *RedisPublisher) Publish(event string, payload any) {
	frame, err := json.Marshal(Message{Event: event, Payload: payload})
	if err != nil {
		p.logger.Error("failed to encode relay frame", slog.String("event", event), slog.Any("error", err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), redisPublishTimeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, frame).Err(); err != nil {
		p.logger.Warn("failed to publish relay frame to redis",
			slog.String("event", event),
			slog.String("channel", p.channel),
			slog.Any("error", err))
	}
}

// Run подписывается на канал и пересылает кадры в локальный hub до отмены ctx.
func (p *RedisPublisher) Run(ctx context.Context, hub *Hub) error {
	sub := p.client.Subscribe(ctx, p.channel)
	defer sub.Close()

	// ждём подтверждения подписки, иначе первые кадры могут потеряться
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to subscribe to %s: %w", p.channel, err)
	}
	p.logger.Info("relay subscribed to redis channel", slog.String("channel", p.channel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			hub.Broadcast([]byte(msg.Payload))
		}
	}
}
