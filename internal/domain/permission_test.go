package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
)

func TestWorldConfig_HasPermission_Defaults(t *testing.T) {
	config := domain.WorldConfig{}

	// Unknown permissions default to open for authenticated users.
	assert.True(t, config.HasPermission(nil, domain.PermRoomChatSend, nil))
	assert.True(t, config.HasPermission(nil, domain.PermWorldView, nil))

	// Administrative permissions default to their privileged traits.
	assert.False(t, config.HasPermission(nil, domain.PermWorldConfig, nil))
	assert.False(t, config.HasPermission([]string{"speaker"}, domain.PermRoomChatModerate, nil))
	assert.True(t, config.HasPermission([]string{"moderator"}, domain.PermRoomChatModerate, nil))
}

func TestWorldConfig_HasPermission_AdminBypassesEverything(t *testing.T) {
	config := domain.WorldConfig{
		TraitGrants: map[string][]string{
			string(domain.PermRoomChatSend): {"speaker"},
		},
	}

	assert.True(t, config.HasPermission([]string{"admin"}, domain.PermRoomChatSend, nil))
	assert.True(t, config.HasPermission([]string{"admin"}, domain.PermWorldConfig, nil))
}

func TestWorldConfig_HasPermission_WorldGrants(t *testing.T) {
	config := domain.WorldConfig{
		TraitGrants: map[string][]string{
			string(domain.PermWorldAnnounce): {"host", "speaker"},
			string(domain.PermRoomChatSend):  {},
		},
	}

	// All listed traits are required, not any one of them.
	assert.False(t, config.HasPermission([]string{"host"}, domain.PermWorldAnnounce, nil))
	assert.True(t, config.HasPermission([]string{"host", "speaker"}, domain.PermWorldAnnounce, nil))

	// An explicit empty grant opens the permission to everyone.
	assert.True(t, config.HasPermission(nil, domain.PermRoomChatSend, nil))
}

func TestWorldConfig_HasPermission_RoomOverride(t *testing.T) {
	config := domain.WorldConfig{}
	room := &domain.Room{ID: "backstage", WorldID: "w1", Name: "Backstage"}
	require.NoError(t, room.SetModules([]domain.RoomModule{{
		Type:        "chat",
		TraitGrants: map[string][]string{string(domain.PermRoomChatJoin): {"crew"}},
	}}))

	assert.False(t, config.HasPermission([]string{"speaker"}, domain.PermRoomChatJoin, room))
	assert.True(t, config.HasPermission([]string{"crew"}, domain.PermRoomChatJoin, room))

	// Permissions the room does not mention fall back to world grants.
	assert.True(t, config.HasPermission([]string{"speaker"}, domain.PermRoomChatSend, room))
}

func TestHasAllTraits(t *testing.T) {
	assert.True(t, domain.HasAllTraits([]string{"a", "b"}, []string{"a"}))
	assert.True(t, domain.HasAllTraits([]string{"a"}, nil))
	assert.False(t, domain.HasAllTraits(nil, []string{"a"}))
	assert.False(t, domain.HasAllTraits([]string{"a"}, []string{"a", "b"}))
}
