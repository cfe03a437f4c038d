package changefeed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultChannel is the pub/sub channel used when none is configured.
const DefaultChannel = "appointments:changes"

// RedisFeed shares changes between server instances through a Redis pub/sub
// channel. The intake workflow may publish inserts on the same channel.
// Local delivery always goes through the embedded hub, so every instance
// (including the publisher) hears a change exactly once: when it comes back
// from Redis.
type RedisFeed struct {
	client  *redis.Client
	channel string
	hub     *Hub
	logger  zerolog.Logger
}

// NewRedisFeed creates a feed bound to channel.
func NewRedisFeed(client *redis.Client, channel string, logger zerolog.Logger) *RedisFeed {
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisFeed{
		client:  client,
		channel: channel,
		hub:     NewHub(),
		logger:  logger.With().Str("component", "changefeed").Str("channel", channel).Logger(),
	}
}

// Publish sends c to the Redis channel.
func (f *RedisFeed) Publish(ctx context.Context, c Change) error {
	payload, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("changefeed: encode change: %w", err)
	}
	if err := f.client.Publish(ctx, f.channel, payload).Err(); err != nil {
		return fmt.Errorf("changefeed: publish: %w", err)
	}
	return nil
}

// Subscribe registers fn for changes received from Redis.
func (f *RedisFeed) Subscribe(filter Filter, fn func(Change)) func() {
	return f.hub.Subscribe(filter, fn)
}

// Run relays messages from Redis to local subscribers until ctx is done. The
// ready channel, if not nil, is closed once the Redis subscription is active.
func (f *RedisFeed) Run(ctx context.Context, ready chan<- struct{}) error {
	pubsub := f.client.Subscribe(ctx, f.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("changefeed: subscribe %s: %w", f.channel, err)
	}
	if ready != nil {
		close(ready)
	}
	f.logger.Info().Msg("listening for appointment changes")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var c Change
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil {
				f.logger.Warn().Err(err).Msg("dropping malformed change message")
				continue
			}
			_ = f.hub.Publish(ctx, c)
		}
	}
}
