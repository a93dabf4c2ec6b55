package domain

import "time"

// Poll states. A draft is only visible to poll managers; votes are accepted
// only while the poll is open. Results stay private until the voter has cast
// a vote or the poll closed.
const (
	PollStateDraft  = "draft"
	PollStateOpen   = "open"
	PollStateClosed = "closed"
)

// ValidPollState reports whether s names a known poll state.
func ValidPollState(s string) bool {
	switch s {
	case PollStateDraft, PollStateOpen, PollStateClosed:
		return true
	}
	return false
}

// Poll is a room poll. IDs come from the per-world sequencer like chat events
// and questions.
type Poll struct {
	ID        uint64       `gorm:"primaryKey;autoIncrement:false"`
	WorldID   string       `gorm:"size:100;not null;index:idx_world_room_p"`
	RoomID    string       `gorm:"size:36;not null;index:idx_world_room_p"`
	Content   string       `gorm:"type:text;not null"`
	State     string       `gorm:"size:20;not null;default:draft;index"`
	Pinned    bool         `gorm:"default:false"`
	Options   []PollOption `gorm:"foreignKey:PollID"`
	CreatedAt time.Time    `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time    `gorm:"autoUpdateTime"`
}

// PollOption is one answer of a poll, ordered by Position.
type PollOption struct {
	ID       uint   `gorm:"primaryKey"`
	PollID   uint64 `gorm:"not null;index"`
	Content  string `gorm:"type:text;not null"`
	Position int    `gorm:"default:0"`
	Votes    int    `gorm:"default:0"`
}

// PollVote is one user's vote. A user votes once per poll.
type PollVote struct {
	ID       uint   `gorm:"primaryKey"`
	PollID   uint64 `gorm:"not null;uniqueIndex:idx_poll_voter"`
	OptionID uint   `gorm:"not null;index"`
	UserID   string `gorm:"size:36;not null;uniqueIndex:idx_poll_voter"`
}

// Option returns the poll's option with the given id, or nil.
func (p *Poll) Option(optionID uint) *PollOption {
	for i := range p.Options {
		if p.Options[i].ID == optionID {
			return &p.Options[i]
		}
	}
	return nil
}

// SerializePublic returns the wire representation of the poll. Vote counts
// are included only when includeResults is set.
func (p *Poll) SerializePublic(includeResults bool) map[string]interface{} {
	options := make([]map[string]interface{}, 0, len(p.Options))
	for i := range p.Options {
		o := map[string]interface{}{
			"id":       p.Options[i].ID,
			"content":  p.Options[i].Content,
			"position": p.Options[i].Position,
		}
		if includeResults {
			o["votes"] = p.Options[i].Votes
		}
		options = append(options, o)
	}
	return map[string]interface{}{
		"id":      p.ID,
		"room":    p.RoomID,
		"content": p.Content,
		"state":   p.State,
		"pinned":  p.Pinned,
		"options": options,
	}
}
