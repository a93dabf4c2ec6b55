package module_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/module"
	"github.com/eventhall/eventhall/internal/repository/mocks"
	"github.com/eventhall/eventhall/internal/service"
)

// fakeSession satisfies module.Session without a live connection.
type fakeSession struct {
	world  *domain.World
	config domain.WorldConfig
	user   *domain.User
	traits []string

	subscribed   []string
	unsubscribed []string
}

func (s *fakeSession) SocketID() string                { return "socket-1" }
func (s *fakeSession) World() *domain.World            { return s.world }
func (s *fakeSession) WorldConfig() domain.WorldConfig { return s.config }
func (s *fakeSession) User() *domain.User              { return s.user }
func (s *fakeSession) Traits() []string                { return s.traits }

func (s *fakeSession) SubscribeChannel(ctx context.Context, channelID string) error {
	s.subscribed = append(s.subscribed, channelID)
	return nil
}

func (s *fakeSession) UnsubscribeChannel(ctx context.Context, channelID string) error {
	s.unsubscribed = append(s.unsubscribed, channelID)
	return nil
}

// stubModule records whether its single action ran.
type stubModule struct {
	prefix       string
	requiresFlag bool
	permission   domain.Permission
	called       bool
	gotRoom      *domain.Room
}

func (m *stubModule) Prefix() string     { return m.prefix }
func (m *stubModule) RequiresFlag() bool { return m.requiresFlag }

func (m *stubModule) Actions() map[string]module.Action {
	return map[string]module.Action{
		"do": {
			Permission: m.permission,
			Handler: func(ctx context.Context, sess module.Session, req *module.Request) (interface{}, error) {
				m.called = true
				m.gotRoom = req.Room
				return map[string]interface{}{"ok": true}, nil
			},
		},
	}
}

func newTestRouter(t *testing.T, roomRepo *mocks.RoomRepository, mods ...module.Module) *module.Router {
	t.Helper()
	if roomRepo == nil {
		roomRepo = new(mocks.RoomRepository)
	}
	worlds := service.NewWorldService(new(mocks.WorldRepository), roomRepo, new(mocks.MediaRepository))
	return module.NewRouter(worlds, mods...)
}

func testSession(modules []string, traits ...string) *fakeSession {
	return &fakeSession{
		world:  &domain.World{ID: "w1", Title: "Test World"},
		config: domain.WorldConfig{Modules: modules},
		user:   &domain.User{ID: "u1"},
		traits: traits,
	}
}

func TestRouter_Dispatch_UnknownCommand(t *testing.T) {
	router := newTestRouter(t, nil, &stubModule{prefix: "chat", requiresFlag: true})
	sess := testSession([]string{"chat"})

	_, err := router.Dispatch(context.Background(), sess, "nosuch.do", nil)
	assert.True(t, errors.Is(err, service.ErrNotFound))

	_, err = router.Dispatch(context.Background(), sess, "chat.nosuch", nil)
	assert.True(t, errors.Is(err, service.ErrNotFound))

	_, err = router.Dispatch(context.Background(), sess, "nodot", nil)
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestRouter_Dispatch_DisabledModule(t *testing.T) {
	stub := &stubModule{prefix: "chat", requiresFlag: true}
	router := newTestRouter(t, nil, stub)
	// "chat" is not in the world's enabled module list.
	sess := testSession([]string{"question"})

	_, err := router.Dispatch(context.Background(), sess, "chat.do", nil)

	assert.True(t, errors.Is(err, service.ErrModuleDisabled))
	assert.False(t, stub.called, "handler must not run for a disabled module")
}

func TestRouter_Dispatch_CoreModuleIgnoresFlag(t *testing.T) {
	stub := &stubModule{prefix: "user", requiresFlag: false}
	router := newTestRouter(t, nil, stub)
	sess := testSession(nil)

	result, err := router.Dispatch(context.Background(), sess, "user.do", nil)

	require.NoError(t, err)
	assert.NotNil(t, result)
	assert.True(t, stub.called)
}

func TestRouter_Dispatch_PermissionDenied(t *testing.T) {
	stub := &stubModule{prefix: "chat", requiresFlag: true, permission: domain.PermRoomChatModerate}
	router := newTestRouter(t, nil, stub)
	sess := testSession([]string{"chat"}) // no moderator trait

	_, err := router.Dispatch(context.Background(), sess, "chat.do", nil)

	assert.True(t, errors.Is(err, service.ErrPermissionDenied))
	assert.False(t, stub.called)
}

func TestRouter_Dispatch_PermissionGrantedByTrait(t *testing.T) {
	stub := &stubModule{prefix: "chat", requiresFlag: true, permission: domain.PermRoomChatModerate}
	router := newTestRouter(t, nil, stub)
	sess := testSession([]string{"chat"}, "moderator")

	_, err := router.Dispatch(context.Background(), sess, "chat.do", nil)

	require.NoError(t, err)
	assert.True(t, stub.called)
}

func TestRouter_Dispatch_MalformedBody(t *testing.T) {
	stub := &stubModule{prefix: "chat", requiresFlag: true}
	router := newTestRouter(t, nil, stub)
	sess := testSession([]string{"chat"})

	_, err := router.Dispatch(context.Background(), sess, "chat.do", json.RawMessage(`{not json`))

	assert.True(t, errors.Is(err, service.ErrInvalidInput))
	assert.False(t, stub.called)
}

func TestRouter_Dispatch_ResolvesRoomReference(t *testing.T) {
	stub := &stubModule{prefix: "chat", requiresFlag: true}
	roomRepo := new(mocks.RoomRepository)
	room := &domain.Room{ID: "stage", WorldID: "w1", Name: "Stage"}
	roomRepo.On("FindByID", mock.Anything, "w1", "stage").Return(room, nil).Once()

	router := newTestRouter(t, roomRepo, stub)
	sess := testSession([]string{"chat"})

	_, err := router.Dispatch(context.Background(), sess, "chat.do", json.RawMessage(`{"room":"stage"}`))

	require.NoError(t, err)
	require.NotNil(t, stub.gotRoom)
	assert.Equal(t, "stage", stub.gotRoom.ID)
	roomRepo.AssertExpectations(t)
}

func TestRouter_Dispatch_RoomScopedGrantOverridesWorld(t *testing.T) {
	stub := &stubModule{prefix: "chat", requiresFlag: true, permission: domain.PermRoomChatSend}
	roomRepo := new(mocks.RoomRepository)
	room := &domain.Room{ID: "backstage", WorldID: "w1", Name: "Backstage"}
	require.NoError(t, room.SetModules([]domain.RoomModule{{
		Type:        "chat",
		TraitGrants: map[string][]string{string(domain.PermRoomChatSend): {"speaker"}},
	}}))
	roomRepo.On("FindByID", mock.Anything, "w1", "backstage").Return(room, nil)

	router := newTestRouter(t, roomRepo, stub)

	// World-wide the permission is open, but this room restricts it.
	sess := testSession([]string{"chat"})
	_, err := router.Dispatch(context.Background(), sess, "chat.do", json.RawMessage(`{"room":"backstage"}`))
	assert.True(t, errors.Is(err, service.ErrPermissionDenied))

	speaker := testSession([]string{"chat"}, "speaker")
	_, err = router.Dispatch(context.Background(), speaker, "chat.do", json.RawMessage(`{"room":"backstage"}`))
	assert.NoError(t, err)
}
