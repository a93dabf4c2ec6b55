package module

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// buildFrame composes one outbound wire frame: the frame type plus the
// payload fields, marshalled as a single object.
func buildFrame(frameType string, fields map[string]interface{}) json.RawMessage {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["type"] = frameType
	encoded, err := json.Marshal(out)
	if err != nil {
		logrus.WithError(err).WithField("frame_type", frameType).Error("Failed to marshal frame")
		return nil
	}
	return encoded
}

// publish is the modules' fire-and-forget fan-out path. A failed publish on
// a non-strict bus is already logged by the bus itself.
func publish(ctx context.Context, b bus.Bus, topic, frameType string, fields map[string]interface{}, sender string) {
	payload := buildFrame(frameType, fields)
	if payload == nil {
		return
	}
	if err := b.Publish(ctx, bus.Event{
		Channel: topic,
		Type:    frameType,
		Payload: payload,
		Sender:  sender,
	}); err != nil {
		logrus.WithError(err).WithField("topic", topic).Warn("Fan-out publish failed")
	}
}

// ChatModule handles the chat.* command family.
type ChatModule struct {
	chat *service.ChatService
	bus  bus.Bus
}

func NewChatModule(chat *service.ChatService, b bus.Bus) *ChatModule {
	return &ChatModule{chat: chat, bus: b}
}

func (m *ChatModule) Prefix() string     { return "chat" }
func (m *ChatModule) RequiresFlag() bool { return true }

func (m *ChatModule) Actions() map[string]Action {
	return map[string]Action{
		"join":        {Permission: domain.PermRoomChatJoin, Handler: m.join},
		"leave":       {Handler: m.leave},
		"subscribe":   {Permission: domain.PermRoomChatRead, Handler: m.subscribe},
		"unsubscribe": {Handler: m.unsubscribe},
		"send":        {Permission: domain.PermRoomChatSend, Handler: m.send},
		"fetch":       {Permission: domain.PermRoomChatRead, Handler: m.fetch},
		"mark_read":   {Handler: m.markRead},
		"moderate":    {Permission: domain.PermRoomChatModerate, Handler: m.moderate},
	}
}

// roomChannel resolves the chat channel of the request's room, requiring the
// room to carry a chat module.
func (m *ChatModule) roomChannel(ctx context.Context, sess Session, req *Request) (*domain.Channel, *domain.RoomModule, error) {
	if req.Room == nil {
		return nil, nil, service.ErrInvalidInput
	}
	chatMod, err := req.Room.Module("chat")
	if err != nil || chatMod == nil {
		return nil, nil, service.ErrNotFound
	}
	channel, err := m.chat.ChannelForRoom(ctx, sess.World().ID, req.Room.ID)
	if err != nil {
		return nil, nil, err
	}
	return channel, chatMod, nil
}

func isVolatile(chatMod *domain.RoomModule) bool {
	v, ok := chatMod.Config["volatile"].(bool)
	return ok && v
}

func (m *ChatModule) join(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	channel, chatMod, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	volatile := isVolatile(chatMod)
	event, err := m.chat.Join(ctx, sess.World().ID, channel, sess.User(), volatile)
	if err != nil {
		return nil, err
	}
	if err := sess.SubscribeChannel(ctx, channel.ID); err != nil {
		return nil, err
	}
	if event != nil {
		publish(ctx, m.bus, bus.ChannelTopic(channel.ID), "chat.event",
			map[string]interface{}{"event": event.SerializePublic()}, "")
	}
	members, err := m.chat.Members(ctx, sess.World().ID, channel.ID)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"channel": channel.ID,
		"state":   map[string]interface{}{"members": members},
	}, nil
}

func (m *ChatModule) leave(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	channel, _, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	event, err := m.chat.Leave(ctx, sess.World().ID, channel, sess.User())
	if err != nil {
		return nil, err
	}
	if err := sess.UnsubscribeChannel(ctx, channel.ID); err != nil {
		return nil, err
	}
	if event != nil {
		publish(ctx, m.bus, bus.ChannelTopic(channel.ID), "chat.event",
			map[string]interface{}{"event": event.SerializePublic()}, "")
	}
	return map[string]interface{}{"channel": channel.ID}, nil
}

func (m *ChatModule) subscribe(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	channel, _, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if err := sess.SubscribeChannel(ctx, channel.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"channel": channel.ID}, nil
}

func (m *ChatModule) unsubscribe(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	channel, _, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if err := sess.UnsubscribeChannel(ctx, channel.ID); err != nil {
		return nil, err
	}
	return map[string]interface{}{"channel": channel.ID}, nil
}

func (m *ChatModule) send(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room    string                 `json:"room"`
		Content map[string]interface{} `json:"content"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	channel, chatMod, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if !isVolatile(chatMod) {
		member, err := m.chat.IsMember(ctx, channel.ID, sess.User().ID)
		if err != nil {
			return nil, err
		}
		if !member {
			return nil, service.ErrPermissionDenied
		}
	}
	event, err := m.chat.Send(ctx, sess.World().ID, channel.ID, sess.User(), body.Content)
	if err != nil {
		return nil, err
	}
	// The sender learns about the event through this response; the broadcast
	// skips its socket.
	publish(ctx, m.bus, bus.ChannelTopic(channel.ID), "chat.event",
		map[string]interface{}{"event": event.SerializePublic()}, sess.SocketID())
	return map[string]interface{}{"event": event.SerializePublic()}, nil
}

func (m *ChatModule) fetch(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room     string `json:"room"`
		BeforeID uint64 `json:"before_id"`
		Count    int    `json:"count"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	channel, chatMod, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	events, err := m.chat.Fetch(ctx, sess.World().ID, channel.ID, sess.User().ID,
		body.BeforeID, body.Count, isVolatile(chatMod))
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]interface{}, 0, len(events))
	for i := range events {
		serialized = append(serialized, events[i].SerializePublic())
	}
	return map[string]interface{}{
		"channel": channel.ID,
		"results": serialized,
	}, nil
}

func (m *ChatModule) markRead(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room string `json:"room"`
		ID   uint64 `json:"id"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if body.ID == 0 {
		return nil, service.ErrInvalidInput
	}
	channel, _, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	if err := m.chat.MarkRead(ctx, sess.User().ID, channel.ID, body.ID); err != nil {
		return nil, err
	}
	// Sync the pointer to the user's other connections.
	publish(ctx, m.bus, bus.UserTopic(sess.World().ID, sess.User().ID), "chat.read",
		map[string]interface{}{"channel": channel.ID, "id": body.ID}, sess.SocketID())
	return nil, nil
}

func (m *ChatModule) moderate(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room    string `json:"room"`
		ID      uint64 `json:"id"`
		Visible *bool  `json:"visible"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if body.ID == 0 || body.Visible == nil {
		return nil, service.ErrInvalidInput
	}
	channel, _, err := m.roomChannel(ctx, sess, req)
	if err != nil {
		return nil, err
	}
	event, err := m.chat.Moderate(ctx, sess.World().ID, channel.ID, body.ID, sess.User().ID, *body.Visible)
	if err != nil {
		return nil, err
	}
	publish(ctx, m.bus, bus.ChannelTopic(channel.ID), "chat.event_updated",
		map[string]interface{}{"event": event.SerializePublic()}, "")
	return map[string]interface{}{"event": event.SerializePublic()}, nil
}
