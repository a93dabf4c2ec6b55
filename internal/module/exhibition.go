package module

import (
	"context"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/service"
)

// ExhibitionModule handles the exhibition.* command family.
type ExhibitionModule struct {
	exhibition *service.ExhibitionService
	bus        bus.Bus
}

func NewExhibitionModule(exhibition *service.ExhibitionService, b bus.Bus) *ExhibitionModule {
	return &ExhibitionModule{exhibition: exhibition, bus: b}
}

func (m *ExhibitionModule) Prefix() string     { return "exhibition" }
func (m *ExhibitionModule) RequiresFlag() bool { return true }

func (m *ExhibitionModule) Actions() map[string]Action {
	return map[string]Action{
		"list":    {Handler: m.list},
		"get":     {Handler: m.get},
		"contact": {Handler: m.contact},
	}
}

func (m *ExhibitionModule) list(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	if req.Room == nil {
		return nil, service.ErrInvalidInput
	}
	exhibitors, err := m.exhibition.List(req.Room)
	if err != nil {
		return nil, err
	}
	// The listing omits staff and long text; clients get those via get.
	summaries := make([]map[string]interface{}, 0, len(exhibitors))
	for _, e := range exhibitors {
		summaries = append(summaries, map[string]interface{}{
			"id":      e.ID,
			"name":    e.Name,
			"tagline": e.Tagline,
			"logo":    e.Logo,
		})
	}
	return map[string]interface{}{"exhibitors": summaries}, nil
}

func (m *ExhibitionModule) get(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room      string `json:"room"`
		Exhibitor string `json:"exhibitor"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if req.Room == nil || body.Exhibitor == "" {
		return nil, service.ErrInvalidInput
	}
	exhibitor, err := m.exhibition.Get(req.Room, body.Exhibitor)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"exhibitor": exhibitor}, nil
}

func (m *ExhibitionModule) contact(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room      string `json:"room"`
		Exhibitor string `json:"exhibitor"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if req.Room == nil || body.Exhibitor == "" {
		return nil, service.ErrInvalidInput
	}
	staff, err := m.exhibition.Contact(ctx, req.Room, body.Exhibitor, sess.User())
	if err != nil {
		return nil, err
	}
	for _, staffID := range staff {
		publish(ctx, m.bus, bus.UserTopic(sess.World().ID, staffID), "exhibition.contact_request",
			map[string]interface{}{
				"exhibitor": body.Exhibitor,
				"room":      req.Room.ID,
				"user":      sess.User().SerializePublic(),
			}, "")
	}
	return nil, nil
}
