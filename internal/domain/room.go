package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// Room is an addressable broadcast scope within a world. Its Modules blob
// configures which command modules apply inside the room and may override
// trait grants for room-scoped permissions.
type Room struct {
	ID          string    `gorm:"primaryKey;size:36"`
	WorldID     string    `gorm:"size:100;not null;index;uniqueIndex:idx_world_room_name"`
	Name        string    `gorm:"size:200;not null;uniqueIndex:idx_world_room_name"`
	Description string    `gorm:"type:text"`
	Modules     string    `gorm:"type:text"` // JSON-encoded []RoomModule
	SortOrder   int       `gorm:"default:0"`
	Deleted     bool      `gorm:"default:false;index"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
}

// RoomModule configures one module inside a room.
type RoomModule struct {
	Type   string                 `json:"type"`
	Config map[string]interface{} `json:"config,omitempty"`
	// TraitGrants overrides world-level grants for room-scoped permissions.
	TraitGrants map[string][]string `json:"trait_grants,omitempty"`
}

// ParseModules decodes the stored module configuration.
func (r *Room) ParseModules() ([]RoomModule, error) {
	if r.Modules == "" {
		return nil, nil
	}
	var modules []RoomModule
	if err := json.Unmarshal([]byte(r.Modules), &modules); err != nil {
		return nil, fmt.Errorf("failed to unmarshal modules for room %s: %w", r.ID, err)
	}
	return modules, nil
}

// SetModules encodes and stores the module configuration.
func (r *Room) SetModules(modules []RoomModule) error {
	bytes, err := json.Marshal(modules)
	if err != nil {
		return fmt.Errorf("failed to marshal modules for room %s: %w", r.ID, err)
	}
	r.Modules = string(bytes)
	return nil
}

// Module returns the configuration of the given module type, if present.
func (r *Room) Module(moduleType string) (*RoomModule, error) {
	modules, err := r.ParseModules()
	if err != nil {
		return nil, err
	}
	for i := range modules {
		if modules[i].Type == moduleType {
			return &modules[i], nil
		}
	}
	return nil, nil
}

// Channel is the chat scope attached to a room (or standing alone for direct
// messages, in which case RoomID is nil).
type Channel struct {
	ID        string    `gorm:"primaryKey;size:36"`
	WorldID   string    `gorm:"size:100;not null;index"`
	RoomID    *string   `gorm:"size:36;uniqueIndex"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Membership marks a user's subscription to a channel. Volatile memberships
// exist only while the user has a live connection and are swept afterwards.
type Membership struct {
	ID        uint      `gorm:"primaryKey"`
	ChannelID string    `gorm:"size:36;not null;uniqueIndex:idx_channel_user"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_channel_user;index"`
	Volatile  bool      `gorm:"default:false;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
