package bus

import (
	"context"
	"encoding/json"
	"fmt"
)

// Control frame operations, delivered to every server process over the
// control channel.
const (
	// ControlDrop closes matching connections immediately.
	ControlDrop = "connection.drop"
	// ControlReload pushes a reload instruction to matching clients; the
	// client decides when to reconnect.
	ControlReload = "connection.reload"
	// ControlWorldReload invalidates a world's cached config everywhere.
	ControlWorldReload = "world.reload"
)

// ControlFrame is one administrative instruction. Matching is by world and
// by glob pattern over the connection's version label; an empty field
// matches everything.
type ControlFrame struct {
	Op           string `json:"op"`
	WorldID      string `json:"world,omitempty"`
	LabelPattern string `json:"label_pattern,omitempty"`
}

// PublishControl broadcasts a control frame to all processes.
func PublishControl(ctx context.Context, b Bus, frame ControlFrame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("bus: failed to marshal control frame: %w", err)
	}
	return b.Publish(ctx, Event{
		Channel: ControlChannel,
		Type:    frame.Op,
		Payload: payload,
	})
}
