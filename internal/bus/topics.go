package bus

import "fmt"

// Topic names. One chat channel maps to one bus topic; users and worlds get
// their own broadcast scopes.

func ChannelTopic(channelID string) string {
	return "channel." + channelID
}

func RoomTopic(worldID, roomID string) string {
	return fmt.Sprintf("room.%s.%s", worldID, roomID)
}

func UserTopic(worldID, userID string) string {
	return fmt.Sprintf("user.%s.%s", worldID, userID)
}

func WorldTopic(worldID string) string {
	return "world." + worldID
}
