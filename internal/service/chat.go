package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// Event id series names. Each series of each world counts independently.
const (
	SeriesChat     = "chat"
	SeriesQuestion = "question"
	SeriesPoll     = "poll"
)

const appendAttempts = 3

// ChatService owns the durable event log and channel memberships.
type ChatService struct {
	eventRepo      repository.EventRepository
	roomRepo       repository.RoomRepository
	membershipRepo repository.MembershipRepository
	stateRepo      repository.StateRepository
	userRepo       repository.UserRepository
}

func NewChatService(
	eventRepo repository.EventRepository,
	roomRepo repository.RoomRepository,
	membershipRepo repository.MembershipRepository,
	stateRepo repository.StateRepository,
	userRepo repository.UserRepository,
) *ChatService {
	if eventRepo == nil || roomRepo == nil || membershipRepo == nil || stateRepo == nil || userRepo == nil {
		panic("repositories cannot be nil for ChatService")
	}
	return &ChatService{
		eventRepo:      eventRepo,
		roomRepo:       roomRepo,
		membershipRepo: membershipRepo,
		stateRepo:      stateRepo,
		userRepo:       userRepo,
	}
}

// ChannelForRoom resolves the chat channel attached to a room.
func (s *ChatService) ChannelForRoom(ctx context.Context, worldID, roomID string) (*domain.Channel, error) {
	channel, err := s.roomRepo.ChannelForRoom(ctx, worldID, roomID)
	if err != nil {
		if errors.Is(err, repository.ErrChannelNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	return channel, nil
}

// nextEventID allocates a strictly increasing id for a world's series,
// re-seeding the sequencer from the durable log when it has fallen behind
// (a flushed counter after broker failover).
func (s *ChatService) nextEventID(ctx context.Context, worldID, series string) (uint64, error) {
	id, err := s.stateRepo.NextEventID(ctx, worldID, series)
	if err != nil {
		return 0, ErrBrokerUnavailable
	}
	return id, nil
}

func (s *ChatService) reseed(ctx context.Context, worldID, series string) error {
	maxID, err := s.eventRepo.MaxID(ctx, worldID)
	if err != nil {
		return ErrPersistence
	}
	if err := s.stateRepo.SeedEventID(ctx, worldID, series, maxID); err != nil {
		return ErrBrokerUnavailable
	}
	return nil
}

// Append persists one event under a freshly allocated monotonic id. A
// duplicate-key insert means the sequencer lost its state; it is re-seeded
// from MAX(id) and the append retried.
func (s *ChatService) Append(ctx context.Context, worldID, channelID, senderID, eventType string, content map[string]interface{}) (*domain.ChatEvent, error) {
	for attempt := 0; attempt < appendAttempts; attempt++ {
		id, err := s.nextEventID(ctx, worldID, SeriesChat)
		if err != nil {
			return nil, err
		}
		event := &domain.ChatEvent{
			ID:        id,
			WorldID:   worldID,
			ChannelID: channelID,
			SenderID:  senderID,
			EventType: eventType,
			Visible:   true,
		}
		if err := event.SetContent(content); err != nil {
			return nil, ErrInvalidInput
		}
		err = s.eventRepo.Create(ctx, event, nil)
		if errors.Is(err, repository.ErrDuplicateEntry) {
			logrus.WithFields(logrus.Fields{
				"world_id": worldID,
				"event_id": id,
			}).Warn("Event id collision, re-seeding sequencer")
			if err := s.reseed(ctx, worldID, SeriesChat); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, ErrPersistence
		}
		return event, nil
	}
	return nil, ErrPersistence
}

// Send validates the sender's moderation state and appends a channel.message
// event.
func (s *ChatService) Send(ctx context.Context, worldID, channelID string, sender *domain.User, content map[string]interface{}) (*domain.ChatEvent, error) {
	if sender.IsBanned() || sender.IsSilenced() {
		return nil, ErrPermissionDenied
	}
	if len(content) == 0 {
		return nil, ErrInvalidInput
	}
	return s.Append(ctx, worldID, channelID, sender.ID, domain.EventTypeMessage, content)
}

// Join records a channel membership. When the membership is newly created and
// not volatile, a channel.member event is appended and returned for fan-out;
// volatile joins produce no durable trace.
func (s *ChatService) Join(ctx context.Context, worldID string, channel *domain.Channel, user *domain.User, volatile bool) (*domain.ChatEvent, error) {
	if user.IsBanned() {
		return nil, ErrPermissionDenied
	}
	created, err := s.membershipRepo.Upsert(ctx, channel.ID, user.ID, volatile)
	if err != nil {
		return nil, ErrPersistence
	}
	if !created || volatile {
		return nil, nil
	}
	return s.Append(ctx, worldID, channel.ID, user.ID, domain.EventTypeMember, map[string]interface{}{
		"membership": "join",
		"user":       user.SerializePublic(),
	})
}

// Leave removes the membership and, when one existed durably, appends the
// matching channel.member event.
func (s *ChatService) Leave(ctx context.Context, worldID string, channel *domain.Channel, user *domain.User) (*domain.ChatEvent, error) {
	membership, err := s.membershipRepo.Get(ctx, channel.ID, user.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, ErrPersistence
	}
	if err := s.membershipRepo.Delete(ctx, channel.ID, user.ID); err != nil {
		return nil, ErrPersistence
	}
	if membership.Volatile {
		return nil, nil
	}
	return s.Append(ctx, worldID, channel.ID, user.ID, domain.EventTypeMember, map[string]interface{}{
		"membership": "leave",
		"user":       user.SerializePublic(),
	})
}

// IsMember reports whether the user holds a membership on the channel.
func (s *ChatService) IsMember(ctx context.Context, channelID, userID string) (bool, error) {
	_, err := s.membershipRepo.Get(ctx, channelID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, ErrPersistence
	}
	return true, nil
}

// Members returns the public views of a channel's members.
func (s *ChatService) Members(ctx context.Context, worldID, channelID string) ([]map[string]interface{}, error) {
	ids, err := s.membershipRepo.ListUserIDs(ctx, channelID)
	if err != nil {
		return nil, ErrPersistence
	}
	members := make([]map[string]interface{}, 0, len(ids))
	for _, id := range ids {
		user, err := s.userRepo.FindByID(ctx, worldID, id)
		if err != nil {
			continue
		}
		members = append(members, user.SerializePublic())
	}
	return members, nil
}

// Fetch returns a page of the channel's event log ending before beforeID,
// applying the visibility-or-sender rule for the viewer.
func (s *ChatService) Fetch(ctx context.Context, worldID, channelID, viewerID string, beforeID uint64, limit int, skipMembership bool) ([]domain.ChatEvent, error) {
	events, err := s.eventRepo.List(ctx, worldID, channelID, repository.EventFilter{
		BeforeID:       beforeID,
		Limit:          limit,
		ViewerID:       viewerID,
		SkipMembership: skipMembership,
	})
	if err != nil {
		return nil, ErrPersistence
	}
	return events, nil
}

// Moderate hides or reveals an event, writing the audit record in the same
// transaction. The event must live in the given channel: the caller's
// moderation grant was evaluated against that channel's room, so an event
// elsewhere is out of scope and treated as nonexistent.
func (s *ChatService) Moderate(ctx context.Context, worldID, channelID string, eventID uint64, moderatorID string, visible bool) (*domain.ChatEvent, error) {
	event, err := s.eventRepo.FindByID(ctx, worldID, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrEventNotFound) {
			return nil, ErrNotFound
		}
		return nil, ErrPersistence
	}
	if event.ChannelID != channelID {
		return nil, ErrNotFound
	}
	event.Visible = visible
	now := time.Now()
	event.Edited = &now
	audit := &domain.AuditLog{
		WorldID: worldID,
		UserID:  moderatorID,
		Type:    "chat.moderate",
	}
	if visible {
		audit.Data = `{"action":"reveal"}`
	} else {
		audit.Data = `{"action":"hide"}`
	}
	if err := s.eventRepo.Update(ctx, event, audit); err != nil {
		return nil, ErrPersistence
	}
	return event, nil
}

// ReleaseVolatile drops a user's membership on a channel if it is volatile.
// Called when the user's last subscribed socket disconnects.
func (s *ChatService) ReleaseVolatile(ctx context.Context, channelID, userID string) error {
	membership, err := s.membershipRepo.Get(ctx, channelID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return ErrPersistence
	}
	if !membership.Volatile {
		return nil
	}
	if err := s.membershipRepo.Delete(ctx, channelID, userID); err != nil {
		return ErrPersistence
	}
	return nil
}

// MarkRead advances the user's read pointer on a channel.
func (s *ChatService) MarkRead(ctx context.Context, userID, channelID string, eventID uint64) error {
	if err := s.stateRepo.SetReadPointer(ctx, userID, channelID, eventID); err != nil {
		return ErrBrokerUnavailable
	}
	return nil
}

// ReadPointers returns all read pointers of a user.
func (s *ChatService) ReadPointers(ctx context.Context, userID string) (map[string]uint64, error) {
	pointers, err := s.stateRepo.ReadPointers(ctx, userID)
	if err != nil {
		return nil, ErrBrokerUnavailable
	}
	return pointers, nil
}
