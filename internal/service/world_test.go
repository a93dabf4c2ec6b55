package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
	"github.com/eventhall/eventhall/internal/repository/mocks"
	"github.com/eventhall/eventhall/internal/service"
)

func storedWorld(t *testing.T, id string, config domain.WorldConfig) *domain.World {
	t.Helper()
	world := &domain.World{ID: id, Title: "Test", Domain: id + ".example"}
	require.NoError(t, world.SetConfig(config))
	return world
}

func TestWorldService_Get_CachesParsedConfig(t *testing.T) {
	worldRepo := new(mocks.WorldRepository)
	worldService := service.NewWorldService(worldRepo, new(mocks.RoomRepository), new(mocks.MediaRepository))
	ctx := context.Background()

	worldRepo.On("FindByID", ctx, "w1").
		Return(storedWorld(t, "w1", domain.WorldConfig{Modules: []string{"chat"}}), nil).Once()

	for n := 0; n < 3; n++ {
		world, config, err := worldService.Get(ctx, "w1")
		require.NoError(t, err)
		assert.Equal(t, "w1", world.ID)
		assert.True(t, config.ModuleEnabled("chat"))
	}

	worldRepo.AssertExpectations(t)
}

func TestWorldService_Invalidate_ForcesReload(t *testing.T) {
	worldRepo := new(mocks.WorldRepository)
	worldService := service.NewWorldService(worldRepo, new(mocks.RoomRepository), new(mocks.MediaRepository))
	ctx := context.Background()

	worldRepo.On("FindByID", ctx, "w1").
		Return(storedWorld(t, "w1", domain.WorldConfig{Modules: []string{"chat"}}), nil).Once()
	worldRepo.On("FindByID", ctx, "w1").
		Return(storedWorld(t, "w1", domain.WorldConfig{Modules: []string{"chat", "question"}}), nil).Once()

	_, config, err := worldService.Get(ctx, "w1")
	require.NoError(t, err)
	assert.False(t, config.ModuleEnabled("question"))

	worldService.Invalidate("w1")

	_, config, err = worldService.Get(ctx, "w1")
	require.NoError(t, err)
	assert.True(t, config.ModuleEnabled("question"))
	worldRepo.AssertExpectations(t)
}

func TestWorldService_Get_UnknownWorld(t *testing.T) {
	worldRepo := new(mocks.WorldRepository)
	worldService := service.NewWorldService(worldRepo, new(mocks.RoomRepository), new(mocks.MediaRepository))
	ctx := context.Background()

	worldRepo.On("FindByID", ctx, "nope").Return(nil, repository.ErrWorldNotFound).Once()

	_, _, err := worldService.Get(ctx, "nope")

	assert.True(t, errors.Is(err, service.ErrNotFound))
}

func TestWorldService_CheckAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("valid-key"), bcrypt.MinCost)
	require.NoError(t, err)

	worldRepo := new(mocks.WorldRepository)
	worldService := service.NewWorldService(worldRepo, new(mocks.RoomRepository), new(mocks.MediaRepository))
	ctx := context.Background()

	worldRepo.On("FindByID", ctx, "w1").
		Return(storedWorld(t, "w1", domain.WorldConfig{APIKeyHashes: []string{string(hash)}}), nil).Once()

	assert.True(t, worldService.CheckAPIKey(ctx, "w1", "valid-key"))
	assert.False(t, worldService.CheckAPIKey(ctx, "w1", "wrong-key"))
	assert.False(t, worldService.CheckAPIKey(ctx, "w1", ""))
}
