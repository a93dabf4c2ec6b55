package module

import (
	"context"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

// defaultReactions is the allowed set when a room does not configure its own.
var defaultReactions = []string{"+1", "clap", "heart", "laugh", "open_mouth"}

// ReactionModule handles the reaction.* command family. Reactions are
// accepted here and fanned out later in windowed aggregates by the service.
type ReactionModule struct {
	reactions *service.ReactionService
}

func NewReactionModule(reactions *service.ReactionService) *ReactionModule {
	return &ReactionModule{reactions: reactions}
}

func (m *ReactionModule) Prefix() string     { return "reaction" }
func (m *ReactionModule) RequiresFlag() bool { return true }

func (m *ReactionModule) Actions() map[string]Action {
	return map[string]Action{
		"send": {Permission: domain.PermRoomReact, Handler: m.send},
	}
}

func allowedReactions(room *domain.Room) []string {
	mod, err := room.Module("reaction")
	if err != nil || mod == nil {
		return defaultReactions
	}
	raw, ok := mod.Config["reactions"].([]interface{})
	if !ok {
		return defaultReactions
	}
	allowed := make([]string, 0, len(raw))
	for _, r := range raw {
		if s, ok := r.(string); ok {
			allowed = append(allowed, s)
		}
	}
	if len(allowed) == 0 {
		return defaultReactions
	}
	return allowed
}

func (m *ReactionModule) send(ctx context.Context, sess Session, req *Request) (interface{}, error) {
	var body struct {
		Room     string `json:"room"`
		Reaction string `json:"reaction"`
	}
	if err := req.Bind(&body); err != nil {
		return nil, err
	}
	if req.Room == nil {
		return nil, service.ErrInvalidInput
	}
	allowed := false
	for _, r := range allowedReactions(req.Room) {
		if r == body.Reaction {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, service.ErrInvalidInput
	}
	if err := m.reactions.Send(ctx, sess.World().ID, req.Room.ID, sess.User(), body.Reaction); err != nil {
		return nil, err
	}
	return nil, nil
}
