package worker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository/mocks"
	"github.com/eventhall/eventhall/internal/tasks"
)

func TestVolatileSweepHandler_SweepsOnlyDisconnectedUsers(t *testing.T) {
	membershipRepo := new(mocks.MembershipRepository)
	stateRepo := new(mocks.StateRepository)
	handler := NewVolatileSweepHandler(membershipRepo, stateRepo)
	ctx := context.Background()

	membershipRepo.On("ListVolatile", ctx).Return([]domain.Membership{
		{ChannelID: "ch1", UserID: "gone", Volatile: true},
		{ChannelID: "ch1", UserID: "still-here", Volatile: true},
	}, nil).Once()
	stateRepo.On("SubscriberCount", ctx, "ch1", "gone").Return(int64(0), nil).Once()
	stateRepo.On("SubscriberCount", ctx, "ch1", "still-here").Return(int64(2), nil).Once()
	membershipRepo.On("Delete", ctx, "ch1", "gone").Return(nil).Once()

	err := handler.ProcessTask(ctx, tasks.NewVolatileSweepTask())

	require.NoError(t, err)
	membershipRepo.AssertExpectations(t)
	membershipRepo.AssertNotCalled(t, "Delete", ctx, "ch1", "still-here")
}

func TestVolatileSweepHandler_NothingToSweep(t *testing.T) {
	membershipRepo := new(mocks.MembershipRepository)
	stateRepo := new(mocks.StateRepository)
	handler := NewVolatileSweepHandler(membershipRepo, stateRepo)
	ctx := context.Background()

	membershipRepo.On("ListVolatile", ctx).Return(nil, nil).Once()

	require.NoError(t, handler.ProcessTask(ctx, tasks.NewVolatileSweepTask()))
	stateRepo.AssertNotCalled(t, "SubscriberCount", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetentionTrimHandler_DisabledIsNoOp(t *testing.T) {
	eventRepo := new(mocks.EventRepository)
	worldRepo := new(mocks.WorldRepository)
	handler := NewRetentionTrimHandler(eventRepo, worldRepo, 0)

	task, err := tasks.NewRetentionTrimTask("")
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(context.Background(), task))
	eventRepo.AssertNotCalled(t, "DeleteOlderThan", mock.Anything, mock.Anything, mock.Anything)
}

func TestRetentionTrimHandler_ScopedToOneWorld(t *testing.T) {
	eventRepo := new(mocks.EventRepository)
	worldRepo := new(mocks.WorldRepository)
	handler := NewRetentionTrimHandler(eventRepo, worldRepo, 24*time.Hour)
	ctx := context.Background()

	eventRepo.On("DeleteOlderThan", ctx, "w1", mock.AnythingOfType("time.Time")).
		Return(int64(12), nil).Once()

	task, err := tasks.NewRetentionTrimTask("w1")
	require.NoError(t, err)
	require.NoError(t, handler.ProcessTask(ctx, task))

	eventRepo.AssertExpectations(t)
	worldRepo.AssertNotCalled(t, "FindAll", mock.Anything)
}
