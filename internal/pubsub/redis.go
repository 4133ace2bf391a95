package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisBus publishes events to a Redis channel and relays every message
// received on that channel into a local Broadcaster.
type RedisBus struct {
	client  *redis.Client
	channel string
	local   *Broadcaster
	logger  *slog.Logger
}

var _ Bus = (*RedisBus)(nil)

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return rdb, nil
}

// NewRedisBus creates a bus on channel. local receives relayed events and
// serves subscribers; its lifecycle is managed by the caller.
func NewRedisBus(client *redis.Client, channel string, local *Broadcaster, logger *slog.Logger) *RedisBus {
	return &RedisBus{
		client:  client,
		channel: channel,
		local:   local,
		logger:  logger,
	}
}

// Kind implements Bus.
func (r *RedisBus) Kind() string { return "redis" }

// Publish sends the event to every replica, this one included.
func (r *RedisBus) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

// Subscribe implements Bus.
func (r *RedisBus) Subscribe() (*Subscription, error) { return r.local.Subscribe() }

// Unsubscribe implements Bus.
func (r *RedisBus) Unsubscribe(subID string) { r.local.Unsubscribe(subID) }

// SubscriberCount implements Bus.
func (r *RedisBus) SubscriberCount() int { return r.local.SubscriberCount() }

// Ping checks the Redis connection.
func (r *RedisBus) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Run relays channel messages into the local broadcaster until ctx is done.
// It returns once the Redis subscription is confirmed closed.
func (r *RedisBus) Run(ctx context.Context) error {
	ps := r.client.Subscribe(ctx, r.channel)
	defer ps.Close()

	// Wait for the subscription confirmation so no message published after
	// Run starts is missed.
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("relaying events from redis", slog.String("channel", r.channel))

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.relay(ctx, msg.Payload)
		}
	}
}

func (r *RedisBus) relay(ctx context.Context, payload string) {
	event, err := decodeEvent(payload)
	if err != nil {
		r.logger.Warn("ignoring malformed event", slog.String("error", err.Error()))
		return
	}
	if err := r.local.Publish(ctx, event); err != nil {
		r.logger.Warn("failed to relay event", slog.String("error", err.Error()))
	}
}

// Close closes the Redis client.
func (r *RedisBus) Close() error {
	return r.client.Close()
}

func decodeEvent(payload string) (Event, error) {
	var event Event
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if event.Type == "" {
		return Event{}, errors.New("decode event: missing type")
	}
	return event, nil
}
