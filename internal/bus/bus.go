package bus

import (
	"context"
	"encoding/json"
	"errors"
)

// ControlChannel carries connection management frames (drop, reload) that
// every server process must see regardless of its subscriptions.
const ControlChannel = "control"

// ErrUnavailable is returned when the broker cannot accept a publish and the
// bus is configured to fail rather than degrade to local delivery.
var ErrUnavailable = errors.New("bus: broker unavailable")

// Event is one message crossing the bus. Payload stays raw JSON so the bus
// never needs to know the shape of what it carries.
type Event struct {
	Channel string          `json:"channel"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`

	// Sender is the socket id that caused the event, when there is one.
	// Consumers use it to skip echoing a frame back to its origin.
	Sender string `json:"sender,omitempty"`
}

// Bus is the fan-out transport between server processes. Subscriptions are
// per logical channel; ControlChannel is subscribed implicitly.
type Bus interface {
	// Publish sends an event to every process subscribed to its channel,
	// including the local one.
	Publish(ctx context.Context, event Event) error

	// Subscribe starts delivering events of the channel to Events().
	Subscribe(ctx context.Context, channel string) error

	// Unsubscribe stops delivery for the channel.
	Unsubscribe(ctx context.Context, channel string) error

	// Events returns the stream of delivered events. The channel is closed
	// by Close.
	Events() <-chan Event

	// Close tears down the transport and closes Events().
	Close() error
}
