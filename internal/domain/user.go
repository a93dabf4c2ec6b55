package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// User moderation states.
const (
	ModerationNone     = ""
	ModerationSilenced = "silenced"
	ModerationBanned   = "banned"
)

// User is an identity within a world. Users are created lazily on first
// successful authentication and are unique per (token_id, world) and
// (client_id, world).
type User struct {
	ID              string    `gorm:"primaryKey;size:36"`
	WorldID         string    `gorm:"size:100;not null;uniqueIndex:idx_token_world;uniqueIndex:idx_client_world"`
	TokenID         *string   `gorm:"size:191;uniqueIndex:idx_token_world"`
	ClientID        *string   `gorm:"size:191;uniqueIndex:idx_client_world"`
	Profile         string    `gorm:"type:text"` // opaque JSON, e.g. {"display_name": ...}
	Traits          string    `gorm:"type:text"` // JSON array of capability markers
	ModerationState string    `gorm:"size:8;default:''"`
	Deleted         bool      `gorm:"default:false"`
	LastLogin       time.Time `gorm:"index"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// ParseTraits decodes the stored trait list.
func (u *User) ParseTraits() ([]string, error) {
	if u.Traits == "" {
		return nil, nil
	}
	var traits []string
	if err := json.Unmarshal([]byte(u.Traits), &traits); err != nil {
		return nil, fmt.Errorf("failed to unmarshal traits for user %s: %w", u.ID, err)
	}
	return traits, nil
}

// SetTraits encodes and stores the trait list.
func (u *User) SetTraits(traits []string) error {
	bytes, err := json.Marshal(traits)
	if err != nil {
		return fmt.Errorf("failed to marshal traits for user %s: %w", u.ID, err)
	}
	u.Traits = string(bytes)
	return nil
}

// ParseProfile decodes the stored profile blob.
func (u *User) ParseProfile() (map[string]interface{}, error) {
	profile := map[string]interface{}{}
	if u.Profile == "" {
		return profile, nil
	}
	if err := json.Unmarshal([]byte(u.Profile), &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile for user %s: %w", u.ID, err)
	}
	return profile, nil
}

// SetProfile encodes and stores the profile blob.
func (u *User) SetProfile(profile map[string]interface{}) error {
	bytes, err := json.Marshal(profile)
	if err != nil {
		return fmt.Errorf("failed to marshal profile for user %s: %w", u.ID, err)
	}
	u.Profile = string(bytes)
	return nil
}

func (u *User) IsBanned() bool {
	return u.ModerationState == ModerationBanned || u.Deleted
}

func (u *User) IsSilenced() bool {
	return u.ModerationState == ModerationSilenced
}

// SerializePublic returns the representation of a user that is safe to send
// to other clients.
func (u *User) SerializePublic() map[string]interface{} {
	profile, err := u.ParseProfile()
	if err != nil {
		profile = map[string]interface{}{}
	}
	return map[string]interface{}{
		"id":      u.ID,
		"profile": profile,
		"deleted": u.Deleted,
	}
}
