package module

import (
	"context"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// WorldModule handles the world.* command family. It is a core module,
// enabled regardless of world configuration.
type WorldModule struct {
	worlds    *service.WorldService
	reactions *service.ReactionService
	bus       bus.Bus
}

func NewWorldModule(worlds *service.WorldService, reactions *service.ReactionService, b bus.Bus) *WorldModule {
	return &WorldModule{worlds: worlds, reactions: reactions, bus: b}
}

func (m *WorldModule) Prefix() string     { return "world" }
func (m *WorldModule) RequiresFlag() bool { return false }

func (m *WorldModule) Actions() map[string]Action {
	return map[string]Action{
		"config.get":    {Permission: domain.PermWorldConfig, Handler: m.configGet},
		"config.reload": {Permission: domain.PermWorldConfig, Handler: m.configReload},
		"rooms":         {Permission: domain.PermWorldView, Handler: m.rooms},
		"announce":      {Permission: domain.PermWorldAnnounce, Handler: m.announce},
		"feedback":      {Permission: domain.PermWorldView, Handler: m.feedback},
	}
}

func (m *WorldModule) configGet(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	world := sess.World()
	config := sess.WorldConfig()
	// API key hashes never leave the server, even for admins.
	config.APIKeyHashes = nil
	return map[string]interface{}{
		"world": map[string]interface{}{
			"id":     world.ID,
			"title":  world.Title,
			"domain": world.Domain,
		},
		"config": config,
	}, nil
}

func (m *WorldModule) configReload(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	m.worlds.Invalidate(sess.World().ID)
	// Other processes invalidate through the control channel.
	if err := bus.PublishControl(ctx, m.bus, bus.ControlFrame{
		Op:      bus.ControlWorldReload,
		WorldID: sess.World().ID,
	}); err != nil {
		return nil, err
	}
	return nil, nil
}

func serializeRoom(room *domain.Room) map[string]interface{} {
	modules, err := room.ParseModules()
	if err != nil {
		modules = nil
	}
	types := make([]string, 0, len(modules))
	for _, mod := range modules {
		types = append(types, mod.Type)
	}
	return map[string]interface{}{
		"id":          room.ID,
		"name":        room.Name,
		"description": room.Description,
		"modules":     types,
	}
}

func (m *WorldModule) rooms(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	rooms, err := m.worlds.Rooms(ctx, sess.World().ID)
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]interface{}, 0, len(rooms))
	for i := range rooms {
		serialized = append(serialized, serializeRoom(&rooms[i]))
	}
	return map[string]interface{}{"rooms": serialized}, nil
}

func (m *WorldModule) announce(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Content string `json:"content"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if body.Content == "" {
		return nil, service.ErrInvalidInput
	}
	publish(ctx, m.bus, bus.WorldTopic(sess.World().ID), "world.announcement",
		map[string]interface{}{
			"content": body.Content,
			"sender":  sess.User().ID,
		}, "")
	return nil, nil
}

func (m *WorldModule) feedback(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room    string `json:"room"`
		Rating  int    `json:"rating"`
		Message string `json:"message"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if req.Room == nil {
		return nil, service.ErrInvalidInput
	}
	err := m.reactions.SaveFeedback(ctx, sess.World().ID, req.Room.ID, sess.User().ID,
		body.Rating, body.Message)
	if err != nil {
		return nil, err
	}
	return nil, nil
}
