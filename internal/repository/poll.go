package repository

import (
	"context"

	"github.com/eventhall/eventhall/internal/domain"
)

// PollRepository stores room polls, their options and votes.
type PollRepository interface {
	// Create inserts a poll with its options and the audit record in one
	// transaction. The poll id must already be assigned.
	Create(ctx context.Context, poll *domain.Poll, audit *domain.AuditLog) error

	// Update rewrites a poll's own fields together with its audit record.
	// Options are not touched.
	Update(ctx context.Context, poll *domain.Poll, audit *domain.AuditLog) error

	// Delete removes a poll with its options and votes.
	Delete(ctx context.Context, worldID string, id uint64) error

	// FindByID returns one poll with its options ordered by position, or
	// ErrPollNotFound.
	FindByID(ctx context.Context, worldID string, id uint64) (*domain.Poll, error)

	// List returns the polls of a room with their options, ordered by
	// ascending id. Drafts are skipped unless includeDrafts is set.
	List(ctx context.Context, worldID, roomID string, includeDrafts bool) ([]domain.Poll, error)

	// Vote records one user's vote for an option. Voting twice on the same
	// poll is reported as ErrDuplicateEntry.
	Vote(ctx context.Context, pollID uint64, optionID uint, userID string) error

	// VotedPollIDs returns the subset of pollIDs the user has voted on.
	VotedPollIDs(ctx context.Context, userID string, pollIDs []uint64) ([]uint64, error)
}
