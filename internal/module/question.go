package module

import (
	"context"

	"github.com/eventhall/eventhall/internal/bus"
	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// QuestionModule handles the question.* command family.
type QuestionModule struct {
	questions *service.QuestionService
	bus       bus.Bus
}

func NewQuestionModule(questions *service.QuestionService, b bus.Bus) *QuestionModule {
	return &QuestionModule{questions: questions, bus: b}
}

func (m *QuestionModule) Prefix() string     { return "question" }
func (m *QuestionModule) RequiresFlag() bool { return true }

func (m *QuestionModule) Actions() map[string]Action {
	return map[string]Action{
		"ask":      {Permission: domain.PermRoomQuestionAsk, Handler: m.ask},
		"vote":     {Permission: domain.PermRoomQuestionVote, Handler: m.vote},
		"moderate": {Permission: domain.PermRoomQuestionMod, Handler: m.moderate},
		"list":     {Permission: domain.PermRoomQuestionRead, Handler: m.list},
	}
}

func serializeQuestion(q *domain.Question) map[string]interface{} {
	return map[string]interface{}{
		"id":       q.ID,
		"room":     q.RoomID,
		"sender":   q.SenderID,
		"content":  q.Content,
		"visible":  q.Visible,
		"answered": q.Answered,
		"votes":    q.Votes,
	}
}

// requiresModeration defaults to on; a room opts out explicitly.
func requiresModeration(room *domain.Room) bool {
	mod, err := room.Module("question")
	if err != nil || mod == nil {
		return true
	}
	if v, ok := mod.Config["requires_moderation"].(bool); ok {
		return v
	}
	return true
}

func (m *QuestionModule) ask(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room    string `json:"room"`
		Content string `json:"content"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if req.Room == nil {
		return nil, service.ErrInvalidInput
	}
	question, err := m.questions.Ask(ctx, sess.World().ID, req.Room.ID, sess.User(),
		body.Content, requiresModeration(req.Room))
	if err != nil {
		return nil, err
	}
	if question.Visible {
		publish(ctx, m.bus, bus.RoomTopic(sess.World().ID, req.Room.ID), "question.created",
			map[string]interface{}{"question": serializeQuestion(question)}, sess.SocketID())
	}
	return map[string]interface{}{"question": serializeQuestion(question)}, nil
}

func (m *QuestionModule) vote(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room string `json:"room"`
		ID   uint64 `json:"id"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if req.Room == nil || body.ID == 0 {
		return nil, service.ErrInvalidInput
	}
	question, err := m.questions.Vote(ctx, sess.World().ID, req.Room.ID, body.ID, sess.User())
	if err != nil {
		return nil, err
	}
	publish(ctx, m.bus, bus.RoomTopic(sess.World().ID, req.Room.ID), "question.updated",
		map[string]interface{}{"question": serializeQuestion(question)}, "")
	return map[string]interface{}{"question": serializeQuestion(question)}, nil
}

func (m *QuestionModule) moderate(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room     string `json:"room"`
		ID       uint64 `json:"id"`
		Visible  bool   `json:"visible"`
		Answered bool   `json:"answered"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if req.Room == nil || body.ID == 0 {
		return nil, service.ErrInvalidInput
	}
	question, err := m.questions.Moderate(ctx, sess.World().ID, req.Room.ID, body.ID, sess.User().ID,
		body.Visible, body.Answered)
	if err != nil {
		return nil, err
	}
	frameType := "question.updated"
	if question.Visible {
		// Approval makes the question appear for everyone else for the
		// first time.
		frameType = "question.created"
	}
	publish(ctx, m.bus, bus.RoomTopic(sess.World().ID, req.Room.ID), frameType,
		map[string]interface{}{"question": serializeQuestion(question)}, "")
	return map[string]interface{}{"question": serializeQuestion(question)}, nil
}

func (m *QuestionModule) list(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	if req.Room == nil {
		return nil, service.ErrInvalidInput
	}
	includeHidden := sess.WorldConfig().HasPermission(sess.Traits(), domain.PermRoomQuestionMod, req.Room)
	questions, err := m.questions.List(ctx, sess.World().ID, req.Room.ID, sess.User().ID, includeHidden)
	if err != nil {
		return nil, err
	}
	serialized := make([]map[string]interface{}, 0, len(questions))
	for i := range questions {
		serialized = append(serialized, serializeQuestion(&questions[i]))
	}
	return map[string]interface{}{"questions": serialized}, nil
}
