package repository

import (
	"context"
	"time"

	"github.com/eventhall/eventhall/internal/domain"
)

// EventFilter narrows a chat event log query. Visibility follows the shared
// carve-out: a hidden event is still returned when ViewerID matches the
// sender.
type EventFilter struct {
	BeforeID uint64 // exclusive upper bound on event id, 0 for none
	Limit    int
	ViewerID string
	// SkipMembership drops channel.member events, used for volatile rooms.
	SkipMembership bool
}

// EventRepository is the durable chat event log.
type EventRepository interface {
	// Create inserts an event and, when audit is non-nil, its audit record
	// in one transaction. The event id must already be assigned.
	Create(ctx context.Context, event *domain.ChatEvent, audit *domain.AuditLog) error

	// Update rewrites an event's content together with its audit record in
	// one transaction.
	Update(ctx context.Context, event *domain.ChatEvent, audit *domain.AuditLog) error

	// FindByID returns one event, or ErrEventNotFound.
	FindByID(ctx context.Context, worldID string, id uint64) (*domain.ChatEvent, error)

	// List returns events of a channel ordered by ascending id, applying the
	// visibility-or-sender rule for the filter's viewer.
	List(ctx context.Context, worldID, channelID string, filter EventFilter) ([]domain.ChatEvent, error)

	// MaxID returns the highest event id in a world, 0 when none exist. Used
	// to re-seed the sequencer after a broker failover.
	MaxID(ctx context.Context, worldID string) (uint64, error)

	// DeleteOlderThan removes events created before the cutoff and returns
	// the number of rows removed. Retention task only.
	DeleteOlderThan(ctx context.Context, worldID string, cutoff time.Time) (int64, error)
}

// QuestionRepository stores audience questions and votes.
type QuestionRepository interface {
	// Create inserts a question and its audit record in one transaction.
	// The question id must already be assigned.
	Create(ctx context.Context, question *domain.Question, audit *domain.AuditLog) error

	// Update rewrites a question together with its audit record.
	Update(ctx context.Context, question *domain.Question, audit *domain.AuditLog) error

	// FindByID returns one question, or ErrQuestionNotFound.
	FindByID(ctx context.Context, worldID string, id uint64) (*domain.Question, error)

	// List returns the questions of a room ordered by ascending id, applying
	// the visibility-or-sender rule unless includeHidden is set.
	List(ctx context.Context, worldID, roomID, viewerID string, includeHidden bool) ([]domain.Question, error)

	// Vote records one user's vote and returns the new vote count. Voting
	// twice is reported as ErrDuplicateEntry.
	Vote(ctx context.Context, questionID uint64, userID string) (int, error)
}

// ReactionRepository stores reactions and feedback.
type ReactionRepository interface {
	// SaveBatch persists a batch of aggregated reactions.
	SaveBatch(ctx context.Context, reactions []domain.Reaction) error

	// SaveFeedback persists one feedback entry.
	SaveFeedback(ctx context.Context, feedback *domain.Feedback) error
}

// MediaRepository reads the media relay pools.
type MediaRepository interface {
	// ActiveTurnServers returns active TURN servers usable by a world:
	// world-exclusive ones plus shared ones.
	ActiveTurnServers(ctx context.Context, worldID string) ([]domain.TurnServer, error)

	// ActiveJanusServers returns active JANUS servers usable by a world.
	ActiveJanusServers(ctx context.Context, worldID string) ([]domain.JanusServer, error)

	// SaveTurnServer and SaveJanusServer create or update pool entries,
	// used by the config importer.
	SaveTurnServer(ctx context.Context, server *domain.TurnServer) error
	SaveJanusServer(ctx context.Context, server *domain.JanusServer) error
}
