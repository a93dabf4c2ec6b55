package module

import (
	"context"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// TurnModule hands out time-limited TURN credentials.
type TurnModule struct {
	media *service.MediaService
}

func NewTurnModule(media *service.MediaService) *TurnModule {
	return &TurnModule{media: media}
}

func (m *TurnModule) Prefix() string     { return "turn" }
func (m *TurnModule) RequiresFlag() bool { return false }

func (m *TurnModule) Actions() map[string]Action {
	return map[string]Action{
		"credentials": {Permission: domain.PermRoomMediaJoin, Handler: m.credentials},
	}
}

func (m *TurnModule) credentials(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	creds, err := m.media.TurnCredentialsFor(ctx, sess.World().ID, sess.User().ID)
	if err != nil {
		return nil, err
	}
	return creds, nil
}

// JanusModule selects a WebRTC gateway for a media session.
type JanusModule struct {
	media *service.MediaService
}

func NewJanusModule(media *service.MediaService) *JanusModule {
	return &JanusModule{media: media}
}

func (m *JanusModule) Prefix() string     { return "janus" }
func (m *JanusModule) RequiresFlag() bool { return false }

func (m *JanusModule) Actions() map[string]Action {
	return map[string]Action{
		"choose": {Permission: domain.PermRoomMediaJoin, Handler: m.choose},
	}
}

func (m *JanusModule) choose(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	server, err := m.media.ChooseJanusServer(ctx, sess.World().ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"server":          server.URL,
		"room_create_key": server.RoomCreateKey,
	}, nil
}
