package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository/mocks"
	"github.com/eventhall/eventhall/internal/service"
)

func TestReactionService_AggregatesWindowPerRoom(t *testing.T) {
	reactionRepo := new(mocks.ReactionRepository)
	stateRepo := new(mocks.StateRepository)
	// A huge window keeps the ticker from firing; Stop flushes explicitly.
	reactionService := service.NewReactionService(reactionRepo, stateRepo, time.Hour)

	stateRepo.On("CheckRateLimit", mock.Anything, mock.Anything, 10, time.Hour).Return(false, nil)
	reactionRepo.On("SaveBatch", mock.Anything, mock.MatchedBy(func(rows []domain.Reaction) bool {
		return len(rows) == 3
	})).Return(nil).Once()

	var mu sync.Mutex
	flushed := map[string]map[string]int{}
	reactionService.Start(func(worldID, roomID string, counts map[string]int) {
		mu.Lock()
		flushed[worldID+"/"+roomID] = counts
		mu.Unlock()
	})

	ctx := context.Background()
	user := &domain.User{ID: "u1"}
	require.NoError(t, reactionService.Send(ctx, "w1", "r1", user, "clap"))
	require.NoError(t, reactionService.Send(ctx, "w1", "r1", user, "clap"))
	require.NoError(t, reactionService.Send(ctx, "w1", "r1", user, "heart"))

	reactionService.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.Contains(t, flushed, "w1/r1")
	assert.Equal(t, map[string]int{"clap": 2, "heart": 1}, flushed["w1/r1"])
	reactionRepo.AssertExpectations(t)
}

func TestReactionService_Send_RateLimited(t *testing.T) {
	reactionRepo := new(mocks.ReactionRepository)
	stateRepo := new(mocks.StateRepository)
	reactionService := service.NewReactionService(reactionRepo, stateRepo, time.Second)

	stateRepo.On("CheckRateLimit", mock.Anything, "ratelimit:react:r1:u1", 10, time.Second).
		Return(true, nil).Once()

	err := reactionService.Send(context.Background(), "w1", "r1", &domain.User{ID: "u1"}, "clap")

	assert.True(t, errors.Is(err, service.ErrPermissionDenied))
}

func TestReactionService_Send_RateLimitErrorIsAdvisory(t *testing.T) {
	reactionRepo := new(mocks.ReactionRepository)
	stateRepo := new(mocks.StateRepository)
	reactionService := service.NewReactionService(reactionRepo, stateRepo, time.Second)

	stateRepo.On("CheckRateLimit", mock.Anything, mock.Anything, 10, time.Second).
		Return(false, errors.New("redis down")).Once()

	err := reactionService.Send(context.Background(), "w1", "r1", &domain.User{ID: "u1"}, "clap")

	assert.NoError(t, err, "a broker hiccup must not drop reactions")
}

func TestReactionService_Send_RejectsBannedAndEmpty(t *testing.T) {
	reactionService := service.NewReactionService(new(mocks.ReactionRepository), new(mocks.StateRepository), time.Second)
	ctx := context.Background()

	banned := &domain.User{ID: "u1", ModerationState: domain.ModerationBanned}
	assert.True(t, errors.Is(reactionService.Send(ctx, "w1", "r1", banned, "clap"), service.ErrPermissionDenied))

	assert.True(t, errors.Is(reactionService.Send(ctx, "w1", "r1", &domain.User{ID: "u2"}, ""), service.ErrInvalidInput))
}

func TestReactionService_SaveFeedback_ValidatesRating(t *testing.T) {
	reactionRepo := new(mocks.ReactionRepository)
	reactionService := service.NewReactionService(reactionRepo, new(mocks.StateRepository), time.Second)
	ctx := context.Background()

	assert.True(t, errors.Is(reactionService.SaveFeedback(ctx, "w1", "r1", "u1", 6, ""), service.ErrInvalidInput))
	assert.True(t, errors.Is(reactionService.SaveFeedback(ctx, "w1", "r1", "u1", -1, ""), service.ErrInvalidInput))

	reactionRepo.On("SaveFeedback", ctx, mock.MatchedBy(func(f *domain.Feedback) bool {
		return f.Rating == 5 && f.Message == "great talk"
	})).Return(nil).Once()
	assert.NoError(t, reactionService.SaveFeedback(ctx, "w1", "r1", "u1", 5, "great talk"))
	reactionRepo.AssertExpectations(t)
}
