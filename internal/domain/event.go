package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Chat event types.
const (
	EventTypeMessage = "channel.message"
	EventTypeMember  = "channel.member"
)

// ChatEvent is one durable entry of a channel's event log. IDs are allocated
// by the event id sequencer, strictly increasing per world, and never by the
// database: consumers use the id as a resumption cursor, so monotony has to
// stay under our control.
type ChatEvent struct {
	ID        uint64     `gorm:"primaryKey;autoIncrement:false"`
	WorldID   string     `gorm:"size:100;not null;index:idx_world_channel"`
	ChannelID string     `gorm:"size:36;not null;index:idx_world_channel"`
	SenderID  string     `gorm:"size:36;not null;index"`
	EventType string     `gorm:"size:50;not null"`
	Content   string     `gorm:"type:text;not null"` // JSON payload
	Visible   bool       `gorm:"default:true;index"`
	Edited    *time.Time `gorm:""`
	CreatedAt time.Time  `gorm:"autoCreateTime;index"`
}

// ParseContent decodes the event payload.
func (e *ChatEvent) ParseContent() (map[string]interface{}, error) {
	content := map[string]interface{}{}
	if e.Content == "" {
		return content, nil
	}
	if err := json.Unmarshal([]byte(e.Content), &content); err != nil {
		return nil, fmt.Errorf("failed to unmarshal content of event %d: %w", e.ID, err)
	}
	return content, nil
}

// SetContent encodes and stores the event payload.
func (e *ChatEvent) SetContent(content map[string]interface{}) error {
	bytes, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("failed to marshal content of event %d: %w", e.ID, err)
	}
	e.Content = string(bytes)
	return nil
}

// SerializePublic returns the wire representation of the event.
func (e *ChatEvent) SerializePublic() map[string]interface{} {
	content, err := e.ParseContent()
	if err != nil {
		content = map[string]interface{}{}
	}
	out := map[string]interface{}{
		"event_id":   e.ID,
		"channel":    e.ChannelID,
		"sender":     e.SenderID,
		"event_type": e.EventType,
		"content":    content,
		"timestamp":  e.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.Edited != nil {
		out["edited"] = e.Edited.UTC().Format(time.RFC3339Nano)
	}
	return out
}

// AuditLog records moderation-relevant changes, written in the same
// transaction as the change it describes.
type AuditLog struct {
	ID        uint      `gorm:"primaryKey"`
	WorldID   string    `gorm:"size:100;not null;index"`
	UserID    string    `gorm:"size:36;not null;index"`
	Type      string    `gorm:"size:100;not null"`
	Data      string    `gorm:"type:text"` // JSON payload
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// Question is an audience question in a room. Unapproved questions are only
// visible to their sender and to moderators.
type Question struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement:false"`
	WorldID   string    `gorm:"size:100;not null;index:idx_world_room_q"`
	RoomID    string    `gorm:"size:36;not null;index:idx_world_room_q"`
	SenderID  string    `gorm:"size:36;not null;index"`
	Content   string    `gorm:"type:text;not null"`
	Visible   bool      `gorm:"default:false;index"`
	Answered  bool      `gorm:"default:false"`
	Votes     int       `gorm:"default:0"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// QuestionVote is one user's vote on a question.
type QuestionVote struct {
	ID         uint   `gorm:"primaryKey"`
	QuestionID uint64 `gorm:"not null;uniqueIndex:idx_question_voter"`
	UserID     string `gorm:"size:36;not null;uniqueIndex:idx_question_voter"`
}

// Reaction is a short-lived room reaction, persisted for analytics and
// fanned out in aggregated batches.
type Reaction struct {
	ID        uint      `gorm:"primaryKey"`
	WorldID   string    `gorm:"size:100;not null;index:idx_world_room_r"`
	RoomID    string    `gorm:"size:36;not null;index:idx_world_room_r"`
	UserID    string    `gorm:"size:36;not null"`
	Reaction  string    `gorm:"size:50;not null"`
	Amount    int       `gorm:"default:1"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// Feedback is free-form attendee feedback on a room's session.
type Feedback struct {
	ID        uint      `gorm:"primaryKey"`
	WorldID   string    `gorm:"size:100;not null;index"`
	RoomID    string    `gorm:"size:36;not null;index"`
	SenderID  string    `gorm:"size:36;not null"`
	Rating    int       `gorm:"default:0"`
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
