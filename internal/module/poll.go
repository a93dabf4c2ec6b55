package module

import (
	"context"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// PollModule handles the poll.* command family. Draft polls never leave the
// manager's own response; the room hears about a poll once it is opened.
// Results are broadcast only when the poll closes, voters get theirs in the
// vote response.
type PollModule struct {
	polls *service.PollService
	bus   bus.Bus
}

func NewPollModule(polls *service.PollService, b bus.Bus) *PollModule {
	return &PollModule{polls: polls, bus: b}
}

func (m *PollModule) Prefix() string     { return "poll" }
func (m *PollModule) RequiresFlag() bool { return true }

func (m *PollModule) Actions() map[string]Action {
	return map[string]Action{
		"create": {Permission: domain.PermRoomPollManage, Handler: m.create},
		"update": {Permission: domain.PermRoomPollManage, Handler: m.update},
		"delete": {Permission: domain.PermRoomPollManage, Handler: m.delete},
		"vote":   {Permission: domain.PermRoomPollVote, Handler: m.vote},
		"list":   {Permission: domain.PermRoomPollRead, Handler: m.list},
	}
}

// resultsPublic reports whether a poll's counts are visible to everyone.
func resultsPublic(p *domain.Poll) bool {
	return p.State == domain.PollStateClosed
}

// pollRoom requires the request's room to carry a poll module.
func pollRoom(req *Request) (*domain.Room, error) {
	if req.Room == nil {
		return nil, service.ErrInvalidInput
	}
	mod, err := req.Room.Module("poll")
	if err != nil || mod == nil {
		return nil, service.ErrNotFound
	}
	return req.Room, nil
}

// announce broadcasts a poll change to the room unless the poll is a draft.
func (m *PollModule) announce(ctx context.Context, sess Session, roomID, frameType string, poll *domain.Poll) {
	if poll.State == domain.PollStateDraft {
		return
	}
	publish(ctx, m.bus, bus.RoomTopic(sess.World().ID, roomID), frameType,
		map[string]interface{}{"poll": poll.SerializePublic(resultsPublic(poll))}, sess.SocketID())
}

func (m *PollModule) create(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room    string   `json:"room"`
		Content string   `json:"content"`
		Options []string `json:"options"`
		State   string   `json:"state"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	room, err := pollRoom(req)
	if err != nil {
		return nil, err
	}
	poll, err := m.polls.Create(ctx, sess.World().ID, room.ID, sess.User().ID,
		body.Content, body.Options, body.State)
	if err != nil {
		return nil, err
	}
	m.announce(ctx, sess, room.ID, "poll.created", poll)
	return map[string]interface{}{"poll": poll.SerializePublic(true)}, nil
}

func (m *PollModule) update(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room    string  `json:"room"`
		ID      uint64  `json:"id"`
		Content *string `json:"content"`
		State   *string `json:"state"`
		Pinned  *bool   `json:"pinned"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	room, err := pollRoom(req)
	if err != nil {
		return nil, err
	}
	if body.ID == 0 {
		return nil, service.ErrInvalidInput
	}
	poll, err := m.polls.Update(ctx, sess.World().ID, room.ID, body.ID, sess.User().ID,
		service.PollUpdate{Content: body.Content, State: body.State, Pinned: body.Pinned})
	if err != nil {
		return nil, err
	}
	frameType := "poll.updated"
	if body.State != nil && *body.State == domain.PollStateOpen {
		// Opening a draft is the room's first sight of the poll.
		frameType = "poll.created"
	}
	m.announce(ctx, sess, room.ID, frameType, poll)
	return map[string]interface{}{"poll": poll.SerializePublic(true)}, nil
}

func (m *PollModule) delete(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room string `json:"room"`
		ID   uint64 `json:"id"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	room, err := pollRoom(req)
	if err != nil {
		return nil, err
	}
	if body.ID == 0 {
		return nil, service.ErrInvalidInput
	}
	poll, err := m.polls.Delete(ctx, sess.World().ID, room.ID, body.ID, sess.User().ID)
	if err != nil {
		return nil, err
	}
	if poll.State != domain.PollStateDraft {
		publish(ctx, m.bus, bus.RoomTopic(sess.World().ID, room.ID), "poll.deleted",
			map[string]interface{}{"id": poll.ID, "room": room.ID}, sess.SocketID())
	}
	return map[string]interface{}{"id": poll.ID}, nil
}

func (m *PollModule) vote(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room   string `json:"room"`
		ID     uint64 `json:"id"`
		Option uint   `json:"option"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	room, err := pollRoom(req)
	if err != nil {
		return nil, err
	}
	if body.ID == 0 || body.Option == 0 {
		return nil, service.ErrInvalidInput
	}
	poll, err := m.polls.Vote(ctx, sess.World().ID, room.ID, body.ID, body.Option, sess.User())
	if err != nil {
		return nil, err
	}
	// The voter has earned the results; the room at large has not.
	return map[string]interface{}{"poll": poll.SerializePublic(true)}, nil
}

func (m *PollModule) list(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	room, err := pollRoom(req)
	if err != nil {
		return nil, err
	}
	isManager := sess.WorldConfig().HasPermission(sess.Traits(), domain.PermRoomPollManage, room)
	polls, voted, err := m.polls.List(ctx, sess.World().ID, room.ID, sess.User().ID, isManager)
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]interface{}, 0, len(polls))
	for i := range polls {
		includeResults := isManager || voted[polls[i].ID] || resultsPublic(&polls[i])
		serialized = append(serialized, polls[i].SerializePublic(includeResults))
	}
	return map[string]interface{}{"polls": serialized}, nil
}
