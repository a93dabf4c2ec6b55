package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository/mocks"
)

func turnServer(hostname string, cost int, worldID *string) domain.TurnServer {
	return domain.TurnServer{Hostname: hostname, AuthSecret: "s3cret", Active: true, Cost: cost, WorldID: worldID}
}

func TestMediaService_ChooseTurnServer_PrefersWorldExclusive(t *testing.T) {
	mediaRepo := new(mocks.MediaRepository)
	mediaService := NewMediaService(mediaRepo, time.Hour)
	worldID := "w1"

	mediaRepo.On("ActiveTurnServers", context.Background(), "w1").Return([]domain.TurnServer{
		turnServer("shared-cheap.example", 1, nil),
		turnServer("exclusive.example", 5, &worldID),
	}, nil).Once()

	server, err := mediaService.ChooseTurnServer(context.Background(), "w1")

	require.NoError(t, err)
	// The exclusive server wins even though the shared one is cheaper.
	assert.Equal(t, "exclusive.example", server.Hostname)
}

func TestMediaService_ChooseTurnServer_PicksWithinCheapestTier(t *testing.T) {
	mediaRepo := new(mocks.MediaRepository)
	mediaService := NewMediaService(mediaRepo, time.Hour)

	pool := []domain.TurnServer{
		turnServer("tier1-a.example", 1, nil),
		turnServer("tier2.example", 2, nil),
		turnServer("tier1-b.example", 1, nil),
	}
	mediaRepo.On("ActiveTurnServers", context.Background(), "w1").Return(pool, nil)

	picks := map[string]bool{}
	for n := 0; n < 2; n++ {
		idx := n
		mediaService.randIntn = func(max int) int {
			require.Equal(t, 2, max, "only the two cost-1 servers should be in the tier")
			return idx
		}
		server, err := mediaService.ChooseTurnServer(context.Background(), "w1")
		require.NoError(t, err)
		picks[server.Hostname] = true
	}

	assert.Equal(t, map[string]bool{"tier1-a.example": true, "tier1-b.example": true}, picks)
}

func TestMediaService_ChooseTurnServer_FallsBackToShared(t *testing.T) {
	mediaRepo := new(mocks.MediaRepository)
	mediaService := NewMediaService(mediaRepo, time.Hour)

	mediaRepo.On("ActiveTurnServers", context.Background(), "w1").Return([]domain.TurnServer{
		turnServer("shared.example", 3, nil),
	}, nil).Once()

	server, err := mediaService.ChooseTurnServer(context.Background(), "w1")

	require.NoError(t, err)
	assert.Equal(t, "shared.example", server.Hostname)
}

func TestMediaService_ChooseTurnServer_EmptyPool(t *testing.T) {
	mediaRepo := new(mocks.MediaRepository)
	mediaService := NewMediaService(mediaRepo, time.Hour)

	mediaRepo.On("ActiveTurnServers", context.Background(), "w1").Return(nil, nil).Once()

	_, err := mediaService.ChooseTurnServer(context.Background(), "w1")

	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestMediaService_ChooseJanusServer_PrefersWorldExclusive(t *testing.T) {
	mediaRepo := new(mocks.MediaRepository)
	mediaService := NewMediaService(mediaRepo, time.Hour)
	worldID := "w1"

	mediaRepo.On("ActiveJanusServers", context.Background(), "w1").Return([]domain.JanusServer{
		{URL: "wss://shared.example", Active: true, Cost: 1},
		{URL: "wss://exclusive.example", Active: true, Cost: 9, WorldID: &worldID},
	}, nil).Once()

	server, err := mediaService.ChooseJanusServer(context.Background(), "w1")

	require.NoError(t, err)
	assert.Equal(t, "wss://exclusive.example", server.URL)
}

func TestMediaService_TurnCredentialsFor_DerivesCoturnRESTCredential(t *testing.T) {
	mediaRepo := new(mocks.MediaRepository)
	mediaService := NewMediaService(mediaRepo, time.Hour)

	mediaRepo.On("ActiveTurnServers", context.Background(), "w1").Return([]domain.TurnServer{
		turnServer("turn.example", 1, nil),
	}, nil).Once()

	creds, err := mediaService.TurnCredentialsFor(context.Background(), "w1", "u1")

	require.NoError(t, err)
	assert.Equal(t, "turn.example", creds.Hostname)
	assert.Contains(t, creds.Username, ":u1")
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), creds.ExpiresAt, 5)

	mac := hmac.New(sha1.New, []byte("s3cret"))
	mac.Write([]byte(creds.Username))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), creds.Credential)
}
