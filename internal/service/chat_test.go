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

func newChatService(t *testing.T) (*service.ChatService, *mocks.EventRepository, *mocks.MembershipRepository, *mocks.StateRepository) {
	t.Helper()
	eventRepo := new(mocks.EventRepository)
	membershipRepo := new(mocks.MembershipRepository)
	stateRepo := new(mocks.StateRepository)
	chatService := service.NewChatService(eventRepo, new(mocks.RoomRepository), membershipRepo, stateRepo, new(mocks.UserRepository))
	return chatService, eventRepo, membershipRepo, stateRepo
}

func TestChatService_Append_AssignsSequencedIDs(t *testing.T) {
	chatService, eventRepo, _, stateRepo := newChatService(t)
	ctx := context.Background()

	stateRepo.On("NextEventID", ctx, "w1", service.SeriesChat).Return(uint64(41), nil).Once()
	stateRepo.On("NextEventID", ctx, "w1", service.SeriesChat).Return(uint64(42), nil).Once()
	eventRepo.On("Create", ctx, mock.AnythingOfType("*domain.ChatEvent"), (*domain.AuditLog)(nil)).
		Return(nil).Twice()

	first, err := chatService.Append(ctx, "w1", "ch1", "u1", domain.EventTypeMessage, map[string]interface{}{"text": "hello"})
	require.NoError(t, err)
	second, err := chatService.Append(ctx, "w1", "ch1", "u1", domain.EventTypeMessage, map[string]interface{}{"text": "again"})
	require.NoError(t, err)

	assert.Equal(t, uint64(41), first.ID)
	assert.Equal(t, uint64(42), second.ID)
	assert.True(t, first.Visible)
	stateRepo.AssertExpectations(t)
	eventRepo.AssertExpectations(t)
}

func TestChatService_Append_ReseedsAfterIDCollision(t *testing.T) {
	// The sequencer handed out an id that already exists in the log, which
	// happens after the counter was flushed. The append must re-seed from
	// MAX(id) and retry instead of failing.
	chatService, eventRepo, _, stateRepo := newChatService(t)
	ctx := context.Background()

	stateRepo.On("NextEventID", ctx, "w1", service.SeriesChat).Return(uint64(7), nil).Once()
	eventRepo.On("Create", ctx, mock.MatchedBy(func(e *domain.ChatEvent) bool { return e.ID == 7 }), (*domain.AuditLog)(nil)).
		Return(repository.ErrDuplicateEntry).Once()
	eventRepo.On("MaxID", ctx, "w1").Return(uint64(120), nil).Once()
	stateRepo.On("SeedEventID", ctx, "w1", service.SeriesChat, uint64(120)).Return(nil).Once()
	stateRepo.On("NextEventID", ctx, "w1", service.SeriesChat).Return(uint64(121), nil).Once()
	eventRepo.On("Create", ctx, mock.MatchedBy(func(e *domain.ChatEvent) bool { return e.ID == 121 }), (*domain.AuditLog)(nil)).
		Return(nil).Once()

	event, err := chatService.Append(ctx, "w1", "ch1", "u1", domain.EventTypeMessage, map[string]interface{}{"text": "hi"})

	require.NoError(t, err)
	assert.Equal(t, uint64(121), event.ID)
	stateRepo.AssertExpectations(t)
	eventRepo.AssertExpectations(t)
}

func TestChatService_Send_RejectsModeratedSenders(t *testing.T) {
	chatService, eventRepo, _, _ := newChatService(t)
	ctx := context.Background()
	content := map[string]interface{}{"text": "hi"}

	banned := &domain.User{ID: "u1", ModerationState: domain.ModerationBanned}
	_, err := chatService.Send(ctx, "w1", "ch1", banned, content)
	assert.True(t, errors.Is(err, service.ErrPermissionDenied))

	silenced := &domain.User{ID: "u2", ModerationState: domain.ModerationSilenced}
	_, err = chatService.Send(ctx, "w1", "ch1", silenced, content)
	assert.True(t, errors.Is(err, service.ErrPermissionDenied))

	eventRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Send_RejectsEmptyContent(t *testing.T) {
	chatService, _, _, _ := newChatService(t)

	_, err := chatService.Send(context.Background(), "w1", "ch1", &domain.User{ID: "u1"}, nil)

	assert.True(t, errors.Is(err, service.ErrInvalidInput))
}

func TestChatService_Join_VolatileLeavesNoDurableTrace(t *testing.T) {
	chatService, eventRepo, membershipRepo, _ := newChatService(t)
	ctx := context.Background()
	channel := &domain.Channel{ID: "ch1", WorldID: "w1"}

	membershipRepo.On("Upsert", ctx, "ch1", "u1", true).Return(true, nil).Once()

	event, err := chatService.Join(ctx, "w1", channel, &domain.User{ID: "u1"}, true)

	require.NoError(t, err)
	assert.Nil(t, event)
	membershipRepo.AssertExpectations(t)
	eventRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_Join_DurableAppendsMemberEvent(t *testing.T) {
	chatService, eventRepo, membershipRepo, stateRepo := newChatService(t)
	ctx := context.Background()
	channel := &domain.Channel{ID: "ch1", WorldID: "w1"}

	membershipRepo.On("Upsert", ctx, "ch1", "u1", false).Return(true, nil).Once()
	stateRepo.On("NextEventID", ctx, "w1", service.SeriesChat).Return(uint64(9), nil).Once()
	eventRepo.On("Create", ctx, mock.MatchedBy(func(e *domain.ChatEvent) bool {
		return e.EventType == domain.EventTypeMember && e.SenderID == "u1"
	}), (*domain.AuditLog)(nil)).Return(nil).Once()

	event, err := chatService.Join(ctx, "w1", channel, &domain.User{ID: "u1"}, false)

	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, uint64(9), event.ID)
	membershipRepo.AssertExpectations(t)
}

func TestChatService_Join_ExistingMembershipIsSilent(t *testing.T) {
	chatService, eventRepo, membershipRepo, _ := newChatService(t)
	ctx := context.Background()

	membershipRepo.On("Upsert", ctx, "ch1", "u1", false).Return(false, nil).Once()

	event, err := chatService.Join(ctx, "w1", &domain.Channel{ID: "ch1"}, &domain.User{ID: "u1"}, false)

	require.NoError(t, err)
	assert.Nil(t, event)
	eventRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_ReleaseVolatile_KeepsDurableMembership(t *testing.T) {
	chatService, _, membershipRepo, _ := newChatService(t)
	ctx := context.Background()

	membershipRepo.On("Get", ctx, "ch1", "u1").
		Return(&domain.Membership{ChannelID: "ch1", UserID: "u1", Volatile: false}, nil).Once()

	err := chatService.ReleaseVolatile(ctx, "ch1", "u1")

	require.NoError(t, err)
	membershipRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatService_ReleaseVolatile_DropsVolatileMembership(t *testing.T) {
	chatService, _, membershipRepo, _ := newChatService(t)
	ctx := context.Background()

	membershipRepo.On("Get", ctx, "ch1", "u1").
		Return(&domain.Membership{ChannelID: "ch1", UserID: "u1", Volatile: true}, nil).Once()
	membershipRepo.On("Delete", ctx, "ch1", "u1").Return(nil).Once()

	err := chatService.ReleaseVolatile(ctx, "ch1", "u1")

	require.NoError(t, err)
	membershipRepo.AssertExpectations(t)
}

func TestChatService_Moderate_WritesAuditTrail(t *testing.T) {
	chatService, eventRepo, _, _ := newChatService(t)
	ctx := context.Background()
	stored := &domain.ChatEvent{ID: 5, WorldID: "w1", ChannelID: "ch1", Visible: true}

	eventRepo.On("FindByID", ctx, "w1", uint64(5)).Return(stored, nil).Once()
	eventRepo.On("Update", ctx, mock.MatchedBy(func(e *domain.ChatEvent) bool {
		return !e.Visible && e.Edited != nil
	}), mock.MatchedBy(func(a *domain.AuditLog) bool {
		return a.Type == "chat.moderate" && a.UserID == "mod-1"
	})).Return(nil).Once()

	event, err := chatService.Moderate(ctx, "w1", "ch1", 5, "mod-1", false)

	require.NoError(t, err)
	assert.False(t, event.Visible)
	eventRepo.AssertExpectations(t)
}

func TestChatService_Moderate_RejectsEventFromOtherChannel(t *testing.T) {
	// A moderation grant is scoped to one room's channel. An event id that
	// resolves to a different channel must look nonexistent to the caller.
	chatService, eventRepo, _, _ := newChatService(t)
	ctx := context.Background()
	stored := &domain.ChatEvent{ID: 5, WorldID: "w1", ChannelID: "ch-other", Visible: true}

	eventRepo.On("FindByID", ctx, "w1", uint64(5)).Return(stored, nil).Once()

	_, err := chatService.Moderate(ctx, "w1", "ch1", 5, "mod-1", false)

	assert.True(t, errors.Is(err, service.ErrNotFound))
	eventRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}
