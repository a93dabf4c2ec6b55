package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/service"
)

func exhibitionRoom(t *testing.T) *domain.Room {
	t.Helper()
	room := &domain.Room{ID: "expo", WorldID: "w1", Name: "Expo Hall"}
	require.NoError(t, room.SetModules([]domain.RoomModule{{
		Type: "exhibition",
		Config: map[string]interface{}{
			"exhibitors": []map[string]interface{}{
				{"id": "acme", "name": "ACME Corp", "tagline": "We make everything", "staff": []string{"staff-1", "staff-2"}},
				{"id": "ghost", "name": "Ghost Inc"},
			},
		},
	}}))
	return room
}

func TestExhibitionService_List(t *testing.T) {
	exhibition := service.NewExhibitionService()

	exhibitors, err := exhibition.List(exhibitionRoom(t))

	require.NoError(t, err)
	require.Len(t, exhibitors, 2)
	assert.Equal(t, "acme", exhibitors[0].ID)
	assert.Equal(t, []string{"staff-1", "staff-2"}, exhibitors[0].Staff)
}

func TestExhibitionService_List_RoomWithoutModule(t *testing.T) {
	exhibition := service.NewExhibitionService()
	room := &domain.Room{ID: "plain", WorldID: "w1", Name: "Plain"}

	_, err := exhibition.List(room)

	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestExhibitionService_Get(t *testing.T) {
	exhibition := service.NewExhibitionService()
	room := exhibitionRoom(t)

	exhibitor, err := exhibition.Get(room, "acme")
	require.NoError(t, err)
	assert.Equal(t, "ACME Corp", exhibitor.Name)

	_, err = exhibition.Get(room, "nope")
	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestExhibitionService_Contact(t *testing.T) {
	exhibition := service.NewExhibitionService()
	room := exhibitionRoom(t)
	ctx := context.Background()

	staff, err := exhibition.Contact(ctx, room, "acme", &domain.User{ID: "visitor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"staff-1", "staff-2"}, staff)

	// A booth without staff cannot receive contact requests.
	_, err = exhibition.Contact(ctx, room, "ghost", &domain.User{ID: "visitor"})
	assert.True(t, errors.Is(err, service.ErrNotFound))

	banned := &domain.User{ID: "banned", ModerationState: domain.ModerationBanned}
	_, err = exhibition.Contact(ctx, room, "acme", banned)
	assert.True(t, errors.Is(err, service.ErrPermissionDenied))
}
