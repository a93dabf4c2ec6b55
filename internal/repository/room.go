package repository

import (
	"context"

	"github.com/eventhall/eventhall/internal/domain"
)

// RoomRepository stores rooms, their channels, and channel memberships.
type RoomRepository interface {
	// FindByID returns a non-deleted room, or ErrRoomNotFound.
	FindByID(ctx context.Context, worldID, id string) (*domain.Room, error)

	// FindAllByWorld returns the non-deleted rooms of a world in sort order.
	FindAllByWorld(ctx context.Context, worldID string) ([]domain.Room, error)

	// Save creates or updates a room. A name collision within the world is
	// reported as ErrDuplicateEntry.
	Save(ctx context.Context, room *domain.Room) error

	// FindChannel returns a channel by id, or ErrChannelNotFound.
	FindChannel(ctx context.Context, worldID, channelID string) (*domain.Channel, error)

	// ChannelForRoom returns the channel attached to a room, or
	// ErrChannelNotFound.
	ChannelForRoom(ctx context.Context, worldID, roomID string) (*domain.Channel, error)

	// SaveChannel creates or updates a channel.
	SaveChannel(ctx context.Context, channel *domain.Channel) error
}

// MembershipRepository stores (user, channel) subscriptions.
type MembershipRepository interface {
	// Get returns the membership for (channel, user), or ErrNotFound.
	Get(ctx context.Context, channelID, userID string) (*domain.Membership, error)

	// Upsert creates the membership if missing and returns true if it was
	// created. A volatile membership is promoted to durable when volatile is
	// false; the reverse promotion never happens.
	Upsert(ctx context.Context, channelID, userID string, volatile bool) (bool, error)

	// Delete removes the membership for (channel, user).
	Delete(ctx context.Context, channelID, userID string) error

	// ListUserIDs returns the ids of all members of a channel.
	ListUserIDs(ctx context.Context, channelID string) ([]string, error)

	// ListVolatile returns all volatile memberships, for the sweep task.
	ListVolatile(ctx context.Context) ([]domain.Membership, error)
}
