package domain

import "time"

// TurnServer is one STUN/TURN relay in the media pool. WorldID marks a
// world-exclusive server; shared servers have it unset. Cost ranks servers
// for the selection policy, lower is preferred.
type TurnServer struct {
	ID         uint      `gorm:"primaryKey"`
	Hostname   string    `gorm:"size:191;not null;uniqueIndex"`
	AuthSecret string    `gorm:"size:191;not null"`
	Active     bool      `gorm:"default:true;index"`
	Cost       int       `gorm:"default:1"`
	WorldID    *string   `gorm:"size:100;index"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

// JanusServer is one WebRTC gateway in the media pool.
type JanusServer struct {
	ID            uint      `gorm:"primaryKey"`
	URL           string    `gorm:"size:191;not null;uniqueIndex"`
	RoomCreateKey string    `gorm:"size:191"`
	Active        bool      `gorm:"default:true;index"`
	Cost          int       `gorm:"default:1"`
	WorldID       *string   `gorm:"size:100;index"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}
