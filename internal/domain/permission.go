package domain

// Permission names a capability checked before a command handler runs.
type Permission string

// World- and room-scoped permissions.
const (
	PermWorldView        Permission = "world:view"
	PermWorldConfig      Permission = "world:config"
	PermWorldAnnounce    Permission = "world:announce"
	PermRoomChatRead     Permission = "room:chat.read"
	PermRoomChatJoin     Permission = "room:chat.join"
	PermRoomChatSend     Permission = "room:chat.send"
	PermRoomChatModerate Permission = "room:chat.moderate"
	PermRoomQuestionRead Permission = "room:question.read"
	PermRoomQuestionAsk  Permission = "room:question.ask"
	PermRoomQuestionVote Permission = "room:question.vote"
	PermRoomQuestionMod  Permission = "room:question.moderate"
	PermRoomPollRead     Permission = "room:poll.read"
	PermRoomPollVote     Permission = "room:poll.vote"
	PermRoomPollManage   Permission = "room:poll.manage"
	PermRoomReact        Permission = "room:react"
	PermRoomMediaJoin    Permission = "room:media.join"
)

// defaultGrants applies when a world config does not mention a permission.
// Administrative permissions require the admin trait, everything else is
// open to authenticated users.
var defaultGrants = map[Permission][]string{
	PermWorldConfig:      {"admin"},
	PermWorldAnnounce:    {"admin"},
	PermRoomChatModerate: {"moderator"},
	PermRoomQuestionMod:  {"moderator"},
	PermRoomPollManage:   {"moderator"},
}

// HasAllTraits reports whether traits contains every required trait.
func HasAllTraits(traits, required []string) bool {
	for _, req := range required {
		found := false
		for _, t := range traits {
			if t == req {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// HasPermission evaluates a permission for a trait set against this world's
// grants, with room-level module grants taking precedence when a room is
// given. Users holding the admin trait pass every check.
func (c WorldConfig) HasPermission(traits []string, p Permission, room *Room) bool {
	if HasAllTraits(traits, []string{"admin"}) {
		return true
	}
	if room != nil {
		modules, err := room.ParseModules()
		if err == nil {
			for _, m := range modules {
				if required, ok := m.TraitGrants[string(p)]; ok {
					return HasAllTraits(traits, required)
				}
			}
		}
	}
	if required, ok := c.TraitGrants[string(p)]; ok {
		return HasAllTraits(traits, required)
	}
	if required, ok := defaultGrants[p]; ok {
		return HasAllTraits(traits, required)
	}
	return true
}
