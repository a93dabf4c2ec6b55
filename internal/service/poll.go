package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// PollService owns room polls, their lifecycle and votes. Polls use the same
// per-world id sequencer as chat events and questions.
type PollService struct {
	pollRepo  repository.PollRepository
	stateRepo repository.StateRepository
}

func NewPollService(pollRepo repository.PollRepository, stateRepo repository.StateRepository) *PollService {
	if pollRepo == nil || stateRepo == nil {
		panic("repositories cannot be nil for PollService")
	}
	return &PollService{pollRepo: pollRepo, stateRepo: stateRepo}
}

// PollUpdate carries the fields a manager may change on an existing poll. Nil
// fields stay untouched.
type PollUpdate struct {
	Content *string
	State   *string
	Pinned  *bool
}

// Create creates a poll with its options. A poll needs at least two options;
// the state defaults to draft.
func (s *PollService) Create(ctx context.Context, worldID, roomID, creatorID, content string, options []string, state string) (*domain.Poll, error) {
	if content == "" || len(options) < 2 {
		return nil, ErrInvalidInput
	}
	if state == "" {
		state = domain.PollStateDraft
	}
	if !domain.ValidPollState(state) {
		return nil, ErrInvalidInput
	}
	id, err := s.stateRepo.NextEventID(ctx, worldID, SeriesPoll)
	if err != nil {
		return nil, ErrBrokerUnavailable
	}
	poll := &domain.Poll{
		ID:      id,
		WorldID: worldID,
		RoomID:  roomID,
		Content: content,
		State:   state,
	}
	for i, option := range options {
		if option == "" {
			return nil, ErrInvalidInput
		}
		poll.Options = append(poll.Options, domain.PollOption{
			PollID:   id,
			Content:  option,
			Position: i,
		})
	}
	audit := &domain.AuditLog{
		WorldID: worldID,
		UserID:  creatorID,
		Type:    "poll.create",
	}
	if err := s.pollRepo.Create(ctx, poll, audit); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"world_id": worldID,
			"room_id":  roomID,
		}).Error("Failed to create poll")
		return nil, ErrPersistence
	}
	return poll, nil
}

// find loads a poll and enforces the room scope: a poll outside the room the
// caller's grant was checked against is treated as nonexistent.
func (s *PollService) find(ctx context.Context, worldID, roomID string, pollID uint64) (*domain.Poll, error) {
	poll, err := s.pollRepo.FindByID(ctx, worldID, pollID)
	if err != nil {
		if errors.Is(err, repository.ErrPollNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	if poll.RoomID != roomID {
		return nil, ErrNotFound
	}
	return poll, nil
}

// Update applies a manager's changes with an audit trail and returns the new
// poll.
func (s *PollService) Update(ctx context.Context, worldID, roomID string, pollID uint64, moderatorID string, update PollUpdate) (*domain.Poll, error) {
	poll, err := s.find(ctx, worldID, roomID, pollID)
	if err != nil {
		return nil, err
	}
	if update.Content != nil {
		if *update.Content == "" {
			return nil, ErrInvalidInput
		}
		poll.Content = *update.Content
	}
	if update.State != nil {
		if !domain.ValidPollState(*update.State) {
			return nil, ErrInvalidInput
		}
		poll.State = *update.State
	}
	if update.Pinned != nil {
		poll.Pinned = *update.Pinned
	}
	audit := &domain.AuditLog{
		WorldID: worldID,
		UserID:  moderatorID,
		Type:    "poll.update",
	}
	if err := s.pollRepo.Update(ctx, poll, audit); err != nil {
		return nil, ErrPersistence
	}
	return poll, nil
}

// Delete removes a poll and returns its last state for the fan-out.
func (s *PollService) Delete(ctx context.Context, worldID, roomID string, pollID uint64, moderatorID string) (*domain.Poll, error) {
	poll, err := s.find(ctx, worldID, roomID, pollID)
	if err != nil {
		return nil, err
	}
	if err := s.pollRepo.Delete(ctx, worldID, pollID); err != nil {
		return nil, ErrPersistence
	}
	logrus.WithFields(logrus.Fields{
		"world_id": worldID,
		"poll_id":  pollID,
		"user_id":  moderatorID,
	}).Info("Poll deleted")
	return poll, nil
}

// Vote casts one user's vote and returns the poll with fresh counts. Drafts
// are invisible to voters; closed polls reject votes as invalid input.
func (s *PollService) Vote(ctx context.Context, worldID, roomID string, pollID uint64, optionID uint, voter *domain.User) (*domain.Poll, error) {
	if voter.IsBanned() || voter.IsSilenced() {
		return nil, ErrPermissionDenied
	}
	poll, err := s.find(ctx, worldID, roomID, pollID)
	if err != nil {
		return nil, err
	}
	if poll.State == domain.PollStateDraft {
		return nil, ErrNotFound
	}
	if poll.State != domain.PollStateOpen {
		return nil, ErrInvalidInput
	}
	if poll.Option(optionID) == nil {
		return nil, ErrInvalidInput
	}
	if err := s.pollRepo.Vote(ctx, pollID, optionID, voter.ID); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrInvalidInput
		}
		return nil, ErrPersistence
	}
	// Reload for the updated counters.
	return s.find(ctx, worldID, roomID, pollID)
}

// List returns a room's polls for a viewer plus the set of poll ids the
// viewer has voted on, which decides whose results they may see.
func (s *PollService) List(ctx context.Context, worldID, roomID, viewerID string, includeDrafts bool) ([]domain.Poll, map[uint64]bool, error) {
	polls, err := s.pollRepo.List(ctx, worldID, roomID, includeDrafts)
	if err != nil {
		return nil, nil, ErrPersistence
	}
	ids := make([]uint64, 0, len(polls))
	for i := range polls {
		ids = append(ids, polls[i].ID)
	}
	votedIDs, err := s.pollRepo.VotedPollIDs(ctx, viewerID, ids)
	if err != nil {
		return nil, nil, ErrPersistence
	}
	voted := make(map[uint64]bool, len(votedIDs))
	for _, id := range votedIDs {
		voted[id] = true
	}
	return polls, voted, nil
}
