package module

import (
	"context"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/service"
)

// UserModule handles the user.* command family. Core module, always on.
type UserModule struct {
	auth *service.AuthService
	bus  bus.Bus
}

func NewUserModule(auth *service.AuthService, b bus.Bus) *UserModule {
	return &UserModule{auth: auth, bus: b}
}

func (m *UserModule) Prefix() string     { return "user" }
func (m *UserModule) RequiresFlag() bool { return false }

func (m *UserModule) Actions() map[string]Action {
	return map[string]Action{
		"update": {Handler: m.update},
		"fetch":  {Handler: m.fetch},
	}
}

func (m *UserModule) update(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Profile map[string]interface{} `json:"profile"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if body.Profile == nil {
		return nil, service.ErrInvalidInput
	}
	user, err := m.auth.UpdateProfile(ctx, sess.World().ID, sess.User().ID, body.Profile)
	if err != nil {
		return nil, err
	}
	// The user's other connections pick up the new profile.
	publish(ctx, m.bus, bus.UserTopic(sess.World().ID, user.ID), "user.updated",
		map[string]interface{}{"user": user.SerializePublic()}, sess.SocketID())
	return map[string]interface{}{"user": user.SerializePublic()}, nil
}

func (m *UserModule) fetch(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		ID string `json:"id"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if body.ID == "" {
		return nil, service.ErrInvalidInput
	}
	user, err := m.auth.FetchUser(ctx, sess.World().ID, body.ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"user": user.SerializePublic()}, nil
}
