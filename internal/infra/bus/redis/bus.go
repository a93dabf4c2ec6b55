package redisbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/bus"
)

const (
	eventBufferSize = 256
	publishRetries  = 3
	publishBackoff  = 100 * time.Millisecond
)

// RedisBus implements bus.Bus on Redis pub/sub. One PubSub connection serves
// all channels; Subscribe and Unsubscribe adjust it dynamically.
type RedisBus struct {
	client    *redis.Client
	keyPrefix string
	strict    bool

	pubsub *redis.PubSub
	events chan bus.Event

	mu       sync.Mutex
	refcount map[string]int
	closed   bool
	done     chan struct{}
}

// NewRedisBus connects the bus and subscribes the control channel. With
// strict enabled a failed publish is an error; otherwise the event is
// delivered locally and the broker failure only logged.
func NewRedisBus(ctx context.Context, client *redis.Client, keyPrefix string, strict bool) (*RedisBus, error) {
	if client == nil {
		panic("redis client cannot be nil for RedisBus")
	}
	if keyPrefix == "" {
		keyPrefix = "eh:"
	}
	b := &RedisBus{
		client:    client,
		keyPrefix: keyPrefix,
		strict:    strict,
		events:    make(chan bus.Event, eventBufferSize),
		refcount:  make(map[string]int),
		done:      make(chan struct{}),
	}
	b.pubsub = client.Subscribe(ctx, b.redisChannel(bus.ControlChannel))
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return nil, fmt.Errorf("redisbus: failed to establish pubsub connection: %w", err)
	}
	b.refcount[bus.ControlChannel] = 1
	go b.receiveLoop()
	return b, nil
}

func (b *RedisBus) redisChannel(channel string) string {
	return b.keyPrefix + "bus:" + channel
}

func (b *RedisBus) receiveLoop() {
	defer close(b.events)
	ch := b.pubsub.Channel()
	for msg := range ch {
		var event bus.Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logrus.WithError(err).Warnf("redisbus: dropping unparseable message on %s", msg.Channel)
			continue
		}
		b.deliver(event)
	}
}

// deliver hands an event to the consumer without ever blocking the receive
// loop. A full buffer means the consumer has stalled; dropping here is
// better than backing up the pubsub connection.
func (b *RedisBus) deliver(event bus.Event) {
	select {
	case b.events <- event:
	case <-b.done:
	default:
		logrus.WithFields(logrus.Fields{
			"channel": event.Channel,
			"type":    event.Type,
		}).Warn("redisbus: event buffer full, dropping event")
	}
}

func (b *RedisBus) Publish(ctx context.Context, event bus.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redisbus: failed to marshal event of type %s: %w", event.Type, err)
	}
	target := b.redisChannel(event.Channel)

	var lastErr error
	for attempt := 0; attempt < publishRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(publishBackoff * time.Duration(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = b.client.Publish(ctx, target, payload).Err(); lastErr == nil {
			return nil
		}
	}

	logrus.WithFields(logrus.Fields{
		"channel":      event.Channel,
		"type":         event.Type,
		"payload_size": len(payload),
	}).WithError(lastErr).Error("redisbus: publish failed after retries")

	if b.strict {
		return fmt.Errorf("%w: %v", bus.ErrUnavailable, lastErr)
	}
	// Degraded mode: the local process still sees the event, remote ones
	// miss it until the broker recovers.
	if b.isSubscribed(event.Channel) {
		b.deliver(event)
	}
	return nil
}

func (b *RedisBus) isSubscribed(channel string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refcount[channel] > 0
}

func (b *RedisBus) Subscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return fmt.Errorf("redisbus: subscribe on closed bus")
	}
	b.refcount[channel]++
	if b.refcount[channel] > 1 {
		return nil
	}
	if err := b.pubsub.Subscribe(ctx, b.redisChannel(channel)); err != nil {
		b.refcount[channel]--
		return fmt.Errorf("redisbus: failed to subscribe to %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBus) Unsubscribe(ctx context.Context, channel string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed || b.refcount[channel] == 0 {
		return nil
	}
	b.refcount[channel]--
	if b.refcount[channel] > 0 {
		return nil
	}
	delete(b.refcount, channel)
	if err := b.pubsub.Unsubscribe(ctx, b.redisChannel(channel)); err != nil {
		return fmt.Errorf("redisbus: failed to unsubscribe from %s: %w", channel, err)
	}
	return nil
}

func (b *RedisBus) Events() <-chan bus.Event {
	return b.events
}

func (b *RedisBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	close(b.done)
	b.mu.Unlock()
	return b.pubsub.Close()
}
