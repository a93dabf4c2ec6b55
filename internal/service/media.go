package service

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"math/rand"
	"time"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// TurnCredentials is a time-limited TURN login derived from the server's
// shared secret (coturn REST credential scheme).
type TurnCredentials struct {
	Hostname   string `json:"hostname"`
	Username   string `json:"username"`
	Credential string `json:"credential"`
	ExpiresAt  int64  `json:"expires"`
}

// MediaService selects media relay servers and derives TURN credentials.
type MediaService struct {
	mediaRepo repository.MediaRepository
	ttl       time.Duration

	// randIntn is swappable for deterministic tests.
	randIntn func(n int) int
}

func NewMediaService(mediaRepo repository.MediaRepository, credentialTTL time.Duration) *MediaService {
	if mediaRepo == nil {
		panic("MediaRepository cannot be nil for MediaService")
	}
	if credentialTTL <= 0 {
		credentialTTL = 24 * time.Hour
	}
	return &MediaService{
		mediaRepo: mediaRepo,
		ttl:       credentialTTL,
		randIntn:  rand.Intn,
	}
}

// ChooseTurnServer picks a TURN server for a world: world-exclusive active
// servers take precedence over shared ones, and within the preferred group
// the pick is uniformly random among the lowest-cost tier so equal servers
// share load.
func (s *MediaService) ChooseTurnServer(ctx context.Context, worldID string) (*domain.TurnServer, error) {
	servers, err := s.mediaRepo.ActiveTurnServers(ctx, worldID)
	if err != nil {
		return nil, ErrPersistence
	}
	var exclusive, shared []domain.TurnServer
	for _, server := range servers {
		if server.WorldID != nil {
			exclusive = append(exclusive, server)
		} else {
			shared = append(shared, server)
		}
	}
	pool := exclusive
	if len(pool) == 0 {
		pool = shared
	}
	if len(pool) == 0 {
		return nil, ErrNotFound
	}

	minCost := pool[0].Cost
	for _, server := range pool[1:] {
		if server.Cost < minCost {
			minCost = server.Cost
		}
	}
	var tier []domain.TurnServer
	for _, server := range pool {
		if server.Cost == minCost {
			tier = append(tier, server)
		}
	}
	picked := tier[s.randIntn(len(tier))]
	return &picked, nil
}

// ChooseJanusServer picks a JANUS gateway for a world under the same policy
// as ChooseTurnServer.
func (s *MediaService) ChooseJanusServer(ctx context.Context, worldID string) (*domain.JanusServer, error) {
	servers, err := s.mediaRepo.ActiveJanusServers(ctx, worldID)
	if err != nil {
		return nil, ErrPersistence
	}
	var exclusive, shared []domain.JanusServer
	for _, server := range servers {
		if server.WorldID != nil {
			exclusive = append(exclusive, server)
		} else {
			shared = append(shared, server)
		}
	}
	pool := exclusive
	if len(pool) == 0 {
		pool = shared
	}
	if len(pool) == 0 {
		return nil, ErrNotFound
	}

	minCost := pool[0].Cost
	for _, server := range pool[1:] {
		if server.Cost < minCost {
			minCost = server.Cost
		}
	}
	var tier []domain.JanusServer
	for _, server := range pool {
		if server.Cost == minCost {
			tier = append(tier, server)
		}
	}
	picked := tier[s.randIntn(len(tier))]
	return &picked, nil
}

// TurnCredentialsFor derives a time-limited credential for a user on the
// chosen TURN server.
func (s *MediaService) TurnCredentialsFor(ctx context.Context, worldID, userID string) (*TurnCredentials, error) {
	server, err := s.ChooseTurnServer(ctx, worldID)
	if err != nil {
		return nil, err
	}
	expiry := time.Now().Add(s.ttl).Unix()
	username := fmt.Sprintf("%d:%s", expiry, userID)
	mac := hmac.New(sha1.New, []byte(server.AuthSecret))
	mac.Write([]byte(username))
	credential := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return &TurnCredentials{
		Hostname:   server.Hostname,
		Username:   username,
		Credential: credential,
		ExpiresAt:  expiry,
	}, nil
}
