package domain

import (
	"encoding/json"
	"fmt"
	"time"
)

// World is a tenant: one event with its own users, rooms and configuration.
type World struct {
	ID        string    `gorm:"primaryKey;size:100" json:"id"`
	Title     string    `gorm:"size:200;not null" json:"title"`
	Domain    string    `gorm:"uniqueIndex;size:191;not null" json:"domain"`
	Config    string    `gorm:"type:text;not null" json:"-"` // JSON-encoded WorldConfig
	CreatedAt time.Time `gorm:"autoCreateTime" json:"-"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"-"`
}

// JWTSecret is one entry of a world's ordered secret list. Verification walks
// the list and accepts the first entry whose signature and claims both match,
// which is what makes secret rotation and multi-issuer setups possible.
type JWTSecret struct {
	Secret   string `json:"secret"`
	Audience string `json:"audience"`
	Issuer   string `json:"issuer"`
}

// WorldConfig is the parsed form of World.Config.
type WorldConfig struct {
	JWTSecrets []JWTSecret `json:"jwt_secrets"`
	// Modules lists the enabled command-module prefixes, e.g. "chat".
	Modules []string `json:"modules"`
	// TraitGrants maps a permission name to the traits a user must hold for
	// it. An empty trait list grants the permission to every authenticated
	// user. Rooms may override individual entries.
	TraitGrants map[string][]string `json:"trait_grants"`
	// APIKeyHashes holds bcrypt hashes of keys accepted by the control API.
	APIKeyHashes []string `json:"api_key_hashes,omitempty"`
}

// ParseConfig decodes the stored config blob.
func (w *World) ParseConfig() (WorldConfig, error) {
	var cfg WorldConfig
	if w.Config == "" {
		return cfg, fmt.Errorf("world %s has empty config", w.ID)
	}
	if err := json.Unmarshal([]byte(w.Config), &cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config for world %s: %w", w.ID, err)
	}
	return cfg, nil
}

// SetConfig encodes and stores the config blob.
func (w *World) SetConfig(cfg WorldConfig) error {
	bytes, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config for world %s: %w", w.ID, err)
	}
	w.Config = string(bytes)
	return nil
}

// ModuleEnabled reports whether a command module prefix is enabled.
func (c WorldConfig) ModuleEnabled(prefix string) bool {
	for _, m := range c.Modules {
		if m == prefix {
			return true
		}
	}
	return false
}
