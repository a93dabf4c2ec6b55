package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
	"github.com/eventhall/eventhall/internal/repository/mocks"
	"github.com/eventhall/eventhall/internal/service"
)

func openPoll(id uint64, roomID string) *domain.Poll {
	return &domain.Poll{
		ID:      id,
		WorldID: "w1",
		RoomID:  roomID,
		Content: "Best talk so far?",
		State:   domain.PollStateOpen,
		Options: []domain.PollOption{
			{ID: 11, PollID: id, Content: "Opening keynote", Position: 0, Votes: 2},
			{ID: 12, PollID: id, Content: "Lightning talks", Position: 1, Votes: 5},
		},
	}
}

func TestPollService_Create_DefaultsToDraft(t *testing.T) {
	pollRepo := new(mocks.PollRepository)
	stateRepo := new(mocks.StateRepository)
	pollService := service.NewPollService(pollRepo, stateRepo)
	ctx := context.Background()

	stateRepo.On("NextEventID", ctx, "w1", service.SeriesPoll).Return(uint64(1), nil).Once()
	pollRepo.On("Create", ctx, mock.MatchedBy(func(p *domain.Poll) bool {
		return p.State == domain.PollStateDraft && len(p.Options) == 2 &&
			p.Options[0].Position == 0 && p.Options[1].Position == 1
	}), mock.MatchedBy(func(a *domain.AuditLog) bool {
		return a.Type == "poll.create"
	})).Return(nil).Once()

	poll, err := pollService.Create(ctx, "w1", "r1", "mod-1", "Best talk so far?",
		[]string{"Opening keynote", "Lightning talks"}, "")

	require.NoError(t, err)
	assert.Equal(t, domain.PollStateDraft, poll.State)
	pollRepo.AssertExpectations(t)
}

func TestPollService_Create_RejectsBadInput(t *testing.T) {
	pollService := service.NewPollService(new(mocks.PollRepository), new(mocks.StateRepository))
	ctx := context.Background()

	_, err := pollService.Create(ctx, "w1", "r1", "mod-1", "", []string{"a", "b"}, "")
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, err = pollService.Create(ctx, "w1", "r1", "mod-1", "One option only?", []string{"a"}, "")
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	_, err = pollService.Create(ctx, "w1", "r1", "mod-1", "Bad state", []string{"a", "b"}, "paused")
	assert.True(t, errors.Is(err, service.ErrInvalidInput))
}

func TestPollService_Update_ClosesWithAudit(t *testing.T) {
	pollRepo := new(mocks.PollRepository)
	pollService := service.NewPollService(pollRepo, new(mocks.StateRepository))
	ctx := context.Background()

	pollRepo.On("FindByID", ctx, "w1", uint64(7)).Return(openPoll(7, "r1"), nil).Once()
	pollRepo.On("Update", ctx, mock.MatchedBy(func(p *domain.Poll) bool {
		return p.State == domain.PollStateClosed
	}), mock.MatchedBy(func(a *domain.AuditLog) bool {
		return a.Type == "poll.update" && a.UserID == "mod-1"
	})).Return(nil).Once()

	closed := domain.PollStateClosed
	poll, err := pollService.Update(ctx, "w1", "r1", 7, "mod-1", service.PollUpdate{State: &closed})

	require.NoError(t, err)
	assert.Equal(t, domain.PollStateClosed, poll.State)
	pollRepo.AssertExpectations(t)
}

func TestPollService_Update_RejectsPollFromOtherRoom(t *testing.T) {
	// The manage permission was checked against one room; a poll id from
	// another room must look nonexistent.
	pollRepo := new(mocks.PollRepository)
	pollService := service.NewPollService(pollRepo, new(mocks.StateRepository))
	ctx := context.Background()

	pollRepo.On("FindByID", ctx, "w1", uint64(7)).Return(openPoll(7, "r-other"), nil).Once()

	closed := domain.PollStateClosed
	_, err := pollService.Update(ctx, "w1", "r1", 7, "mod-1", service.PollUpdate{State: &closed})

	assert.True(t, errors.Is(err, service.ErrNotFound))
	pollRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollService_Vote_CountsAndReloads(t *testing.T) {
	pollRepo := new(mocks.PollRepository)
	pollService := service.NewPollService(pollRepo, new(mocks.StateRepository))
	ctx := context.Background()

	pollRepo.On("FindByID", ctx, "w1", uint64(7)).Return(openPoll(7, "r1"), nil).Twice()
	pollRepo.On("Vote", ctx, uint64(7), uint(12), "u1").Return(nil).Once()

	poll, err := pollService.Vote(ctx, "w1", "r1", 7, 12, &domain.User{ID: "u1"})

	require.NoError(t, err)
	assert.Equal(t, uint64(7), poll.ID)
	pollRepo.AssertExpectations(t)
}

func TestPollService_Vote_RejectsDraftClosedAndForeignOption(t *testing.T) {
	pollRepo := new(mocks.PollRepository)
	pollService := service.NewPollService(pollRepo, new(mocks.StateRepository))
	ctx := context.Background()

	draft := openPoll(1, "r1")
	draft.State = domain.PollStateDraft
	pollRepo.On("FindByID", ctx, "w1", uint64(1)).Return(draft, nil).Once()
	_, err := pollService.Vote(ctx, "w1", "r1", 1, 11, &domain.User{ID: "u1"})
	assert.True(t, errors.Is(err, service.ErrNotFound))

	closed := openPoll(2, "r1")
	closed.State = domain.PollStateClosed
	pollRepo.On("FindByID", ctx, "w1", uint64(2)).Return(closed, nil).Once()
	_, err = pollService.Vote(ctx, "w1", "r1", 2, 11, &domain.User{ID: "u1"})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	pollRepo.On("FindByID", ctx, "w1", uint64(3)).Return(openPoll(3, "r1"), nil).Once()
	_, err = pollService.Vote(ctx, "w1", "r1", 3, 99, &domain.User{ID: "u1"})
	assert.True(t, errors.Is(err, service.ErrInvalidInput))

	pollRepo.AssertNotCalled(t, "Vote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPollService_Vote_DuplicateRejected(t *testing.T) {
	pollRepo := new(mocks.PollRepository)
	pollService := service.NewPollService(pollRepo, new(mocks.StateRepository))
	ctx := context.Background()

	pollRepo.On("FindByID", ctx, "w1", uint64(7)).Return(openPoll(7, "r1"), nil).Once()
	pollRepo.On("Vote", ctx, uint64(7), uint(11), "u1").Return(repository.ErrDuplicateEntry).Once()

	_, err := pollService.Vote(ctx, "w1", "r1", 7, 11, &domain.User{ID: "u1"})

	assert.True(t, errors.Is(err, service.ErrInvalidInput))
}

func TestPollService_Vote_RejectsPollFromOtherRoom(t *testing.T) {
	pollRepo := new(mocks.PollRepository)
	pollService := service.NewPollService(pollRepo, new(mocks.StateRepository))
	ctx := context.Background()

	pollRepo.On("FindByID", ctx, "w1", uint64(7)).Return(openPoll(7, "r-other"), nil).Once()

	_, err := pollService.Vote(ctx, "w1", "r1", 7, 11, &domain.User{ID: "u1"})

	assert.True(t, errors.Is(err, service.ErrNotFound))
	pollRepo.AssertNotCalled(t, "Vote", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestPollService_List_ReportsVotedPolls(t *testing.T) {
	pollRepo := new(mocks.PollRepository)
	pollService := service.NewPollService(pollRepo, new(mocks.StateRepository))
	ctx := context.Background()

	pollRepo.On("List", ctx, "w1", "r1", false).
		Return([]domain.Poll{*openPoll(7, "r1"), *openPoll(8, "r1")}, nil).Once()
	pollRepo.On("VotedPollIDs", ctx, "u1", []uint64{7, 8}).Return([]uint64{8}, nil).Once()

	polls, voted, err := pollService.List(ctx, "w1", "r1", "u1", false)

	require.NoError(t, err)
	assert.Len(t, polls, 2)
	assert.False(t, voted[7])
	assert.True(t, voted[8])
}
