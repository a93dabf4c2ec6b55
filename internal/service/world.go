package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// WorldService is the world registry: it loads tenant records, caches their
// parsed configuration, and invalidates on reload signals.
type WorldService struct {
	worldRepo repository.WorldRepository
	roomRepo  repository.RoomRepository
	mediaRepo repository.MediaRepository

	mu    sync.RWMutex
	cache map[string]*cachedWorld
}

type cachedWorld struct {
	world  *domain.World
	config domain.WorldConfig
}

func NewWorldService(worldRepo repository.WorldRepository, roomRepo repository.RoomRepository, mediaRepo repository.MediaRepository) *WorldService {
	if worldRepo == nil || roomRepo == nil {
		panic("repositories cannot be nil for WorldService")
	}
	return &WorldService{
		worldRepo: worldRepo,
		roomRepo:  roomRepo,
		mediaRepo: mediaRepo,
		cache:     make(map[string]*cachedWorld),
	}
}

// Get returns a world with its parsed config, from cache when possible.
func (s *WorldService) Get(ctx context.Context, worldID string) (*domain.World, domain.WorldConfig, error) {
	s.mu.RLock()
	cached, ok := s.cache[worldID]
	s.mu.RUnlock()
	if ok {
		return cached.world, cached.config, nil
	}

	world, err := s.worldRepo.FindByID(ctx, worldID)
	if err != nil {
		if errors.Is(err, repository.ErrWorldNotFound) {
			return nil, domain.WorldConfig{}, ErrNotFound
		}
		return nil, domain.WorldConfig{}, ErrPersistence
	}
	config, err := world.ParseConfig()
	if err != nil {
		logrus.WithError(err).WithField("world_id", worldID).Error("World has unparseable config")
		return nil, domain.WorldConfig{}, ErrPersistence
	}

	s.mu.Lock()
	s.cache[worldID] = &cachedWorld{world: world, config: config}
	s.mu.Unlock()
	return world, config, nil
}

// Invalidate drops a world from the cache. The next Get reloads it, which is
// how config changes take effect on reload signals.
func (s *WorldService) Invalidate(worldID string) {
	s.mu.Lock()
	delete(s.cache, worldID)
	s.mu.Unlock()
	logrus.WithField("world_id", worldID).Info("World config cache invalidated")
}

// List returns every known world.
func (s *WorldService) List(ctx context.Context) ([]domain.World, error) {
	worlds, err := s.worldRepo.FindAll(ctx)
	if err != nil {
		return nil, ErrPersistence
	}
	return worlds, nil
}

// Rooms returns the non-deleted rooms of a world.
func (s *WorldService) Rooms(ctx context.Context, worldID string) ([]domain.Room, error) {
	rooms, err := s.roomRepo.FindAllByWorld(ctx, worldID)
	if err != nil {
		return nil, ErrPersistence
	}
	return rooms, nil
}

// Room returns one room of a world.
func (s *WorldService) Room(ctx context.Context, worldID, roomID string) (*domain.Room, error) {
	room, err := s.roomRepo.FindByID(ctx, worldID, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	return room, nil
}

// CheckAPIKey reports whether a raw control-API key matches one of the
// world's stored bcrypt hashes.
func (s *WorldService) CheckAPIKey(ctx context.Context, worldID, key string) bool {
	if key == "" {
		return false
	}
	_, config, err := s.Get(ctx, worldID)
	if err != nil {
		return false
	}
	for _, hash := range config.APIKeyHashes {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return true
		}
	}
	return false
}

// importFile is the on-disk shape accepted by Import.
type importFile struct {
	World struct {
		ID     string             `json:"id"`
		Title  string             `json:"title"`
		Domain string             `json:"domain"`
		Config domain.WorldConfig `json:"config"`
	} `json:"world"`
	Rooms []struct {
		ID          string              `json:"id"`
		Name        string              `json:"name"`
		Description string              `json:"description"`
		SortOrder   int                 `json:"sorting_priority"`
		Modules     []domain.RoomModule `json:"modules"`
	} `json:"rooms"`
	TurnServers []struct {
		Hostname   string  `json:"hostname"`
		AuthSecret string  `json:"auth_secret"`
		Active     bool    `json:"active"`
		Cost       int     `json:"cost"`
		WorldID    *string `json:"world_exclusive,omitempty"`
	} `json:"turn_servers"`
	JanusServers []struct {
		URL           string  `json:"url"`
		RoomCreateKey string  `json:"room_create_key"`
		Active        bool    `json:"active"`
		Cost          int     `json:"cost"`
		WorldID       *string `json:"world_exclusive,omitempty"`
	} `json:"janus_servers"`
}

// Import loads a world configuration file into the store: the world record,
// its rooms with their channels, and any media pool entries. Existing records
// are updated in place.
func (s *WorldService) Import(ctx context.Context, data []byte) (*domain.World, error) {
	var file importFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, ErrInvalidInput
	}
	if file.World.ID == "" || file.World.Domain == "" {
		return nil, ErrInvalidInput
	}

	world := &domain.World{
		ID:     file.World.ID,
		Title:  file.World.Title,
		Domain: file.World.Domain,
	}
	if err := world.SetConfig(file.World.Config); err != nil {
		return nil, ErrInvalidInput
	}
	if err := s.worldRepo.Save(ctx, world); err != nil {
		logrus.WithError(err).WithField("world_id", world.ID).Error("Failed to import world")
		return nil, ErrPersistence
	}

	for _, r := range file.Rooms {
		room := &domain.Room{
			ID:          r.ID,
			WorldID:     world.ID,
			Name:        r.Name,
			Description: r.Description,
			SortOrder:   r.SortOrder,
		}
		if room.ID == "" {
			room.ID = uuid.NewString()
		}
		if err := room.SetModules(r.Modules); err != nil {
			return nil, ErrInvalidInput
		}
		if err := s.roomRepo.Save(ctx, room); err != nil {
			logrus.WithError(err).WithField("room", r.Name).Error("Failed to import room")
			return nil, ErrPersistence
		}
		if err := s.ensureChannel(ctx, world.ID, room.ID); err != nil {
			return nil, err
		}
	}

	if s.mediaRepo != nil {
		for _, t := range file.TurnServers {
			server := &domain.TurnServer{
				Hostname:   t.Hostname,
				AuthSecret: t.AuthSecret,
				Active:     t.Active,
				Cost:       t.Cost,
				WorldID:    t.WorldID,
			}
			if err := s.mediaRepo.SaveTurnServer(ctx, server); err != nil {
				return nil, ErrPersistence
			}
		}
		for _, j := range file.JanusServers {
			server := &domain.JanusServer{
				URL:           j.URL,
				RoomCreateKey: j.RoomCreateKey,
				Active:        j.Active,
				Cost:          j.Cost,
				WorldID:       j.WorldID,
			}
			if err := s.mediaRepo.SaveJanusServer(ctx, server); err != nil {
				return nil, ErrPersistence
			}
		}
	}

	s.Invalidate(world.ID)
	logrus.WithFields(logrus.Fields{
		"world_id": world.ID,
		"rooms":    len(file.Rooms),
	}).Info("World config imported")
	return world, nil
}

func (s *WorldService) ensureChannel(ctx context.Context, worldID, roomID string) error {
	_, err := s.roomRepo.ChannelForRoom(ctx, worldID, roomID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrChannelNotFound) {
		return ErrPersistence
	}
	channel := &domain.Channel{
		ID:      uuid.NewString(),
		WorldID: worldID,
		RoomID:  &roomID,
	}
	if err := s.roomRepo.SaveChannel(ctx, channel); err != nil {
		return ErrPersistence
	}
	return nil
}
