package redisbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"questforge/internal/domain/quest"
)

const channelPrefix = "questforge.events."

// Bus is the Event Channel over Redis pub/sub: one channel per event class,
// fire-and-forget delivery. Redis pub/sub drops messages for absent
// subscribers, which matches the at-most-once replication policy.
type Bus struct {
	client *redis.Client
	log    zerolog.Logger
}

func New(client *redis.Client, log zerolog.Logger) *Bus {
	return &Bus{client: client, log: log}
}

// Open dials Redis and verifies the connection.
func Open(ctx context.Context, addr string, log zerolog.Logger) (*Bus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return New(client, log), nil
}

func (b *Bus) Publish(ctx context.Context, event quest.DomainEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := b.client.Publish(ctx, channelPrefix+string(event.Class), data).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Class, err)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, classes []quest.EventClass, handler func(quest.DomainEvent)) (func(), error) {
	channels := make([]string, len(classes))
	for i, class := range classes {
		channels[i] = channelPrefix + string(class)
	}
	sub := b.client.Subscribe(ctx, channels...)
	if _, err := sub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	go func() {
		for msg := range sub.Channel() {
			var event quest.DomainEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.log.Warn().Err(err).Str("channel", msg.Channel).Msg("undecodable event dropped")
				continue
			}
			handler(event)
		}
	}()

	return func() { _ = sub.Close() }, nil
}

// Close releases the underlying client.
func (b *Bus) Close() error {
	return b.client.Close()
}
