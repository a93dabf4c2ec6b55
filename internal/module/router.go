package module

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// Session is the router's view of one live authenticated connection. The
// connection manager implements it; handlers use it to scope permissions and
// to manage the connection's bus subscriptions.
type Session interface {
	SocketID() string
	World() *domain.World
	WorldConfig() domain.WorldConfig
	User() *domain.User
	Traits() []string

	// SubscribeChannel and UnsubscribeChannel manage the connection's chat
	// channel subscriptions, including cross-process subscriber tracking.
	SubscribeChannel(ctx context.Context, channelID string) error
	UnsubscribeChannel(ctx context.Context, channelID string) error
}

// Request is one parsed command body handed to a handler.
type Request struct {
	Body json.RawMessage
	// Room is resolved by the router when the body carries a "room" field.
	Room *domain.Room
}

// Bind decodes the body into a typed struct.
func (r *Request) Bind(out interface{}) error {
	if len(r.Body) == 0 {
		return service.ErrInvalidInput
	}
	if err := json.Unmarshal(r.Body, out); err != nil {
		return service.ErrInvalidInput
	}
	return nil
}

// HandlerFunc executes one action and returns its response payload. A nil
// payload with nil error produces an empty success frame.
type HandlerFunc func(ctx context.Context, sess Session, req *Request) (interface{}, error)

// Action pairs a handler with its permission gate. An empty Permission
// admits every authenticated user.
type Action struct {
	Permission domain.Permission
	Handler    HandlerFunc
}

// Module is a namespaced family of actions sharing one command prefix.
type Module interface {
	// Prefix is the part of the command type before the first dot.
	Prefix() string

	// RequiresFlag reports whether the prefix must appear in the world's
	// enabled-module list. Core modules (world, user) are always on.
	RequiresFlag() bool

	Actions() map[string]Action
}

// Router maps command types to module actions. The registry is static,
// built once at startup; dispatch enforces module gate, permission, and
// input validation in that order.
type Router struct {
	modules map[string]Module
	worlds  *service.WorldService
}

func NewRouter(worlds *service.WorldService, modules ...Module) *Router {
	if worlds == nil {
		panic("WorldService cannot be nil for Router")
	}
	r := &Router{
		modules: make(map[string]Module, len(modules)),
		worlds:  worlds,
	}
	for _, m := range modules {
		r.modules[m.Prefix()] = m
	}
	return r
}

// roomRef is the minimal body shape the router peeks at to scope permission
// checks to a room.
type roomRef struct {
	Room string `json:"room"`
}

// Dispatch routes one command. frameType is the full "<module>.<action>"
// string; body is the frame minus the envelope fields.
func (r *Router) Dispatch(ctx context.Context, sess Session, frameType string, body json.RawMessage) (interface{}, error) {
	prefix, actionName, ok := strings.Cut(frameType, ".")
	if !ok {
		return nil, service.ErrNotFound
	}
	mod, ok := r.modules[prefix]
	if !ok {
		return nil, service.ErrNotFound
	}
	config := sess.WorldConfig()
	if mod.RequiresFlag() && !config.ModuleEnabled(prefix) {
		return nil, service.ErrModuleDisabled
	}
	action, ok := mod.Actions()[actionName]
	if !ok {
		return nil, service.ErrNotFound
	}

	req := &Request{Body: body}
	if len(body) > 0 {
		var ref roomRef
		// A malformed body fails here once instead of in every handler.
		if err := json.Unmarshal(body, &ref); err != nil {
			return nil, service.ErrInvalidInput
		}
		if ref.Room != "" {
			room, err := r.worlds.Room(ctx, sess.World().ID, ref.Room)
			if err != nil {
				return nil, err
			}
			req.Room = room
		}
	}

	if action.Permission != "" && !config.HasPermission(sess.Traits(), action.Permission, req.Room) {
		logrus.WithFields(logrus.Fields{
			"world_id": sess.World().ID,
			"user_id":  sess.User().ID,
			"command":  frameType,
		}).Debug("Permission denied")
		return nil, service.ErrPermissionDenied
	}

	return action.Handler(ctx, sess, req)
}
