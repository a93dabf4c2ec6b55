package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// GormRoomRepository is the GORM implementation of RoomRepository.
type GormRoomRepository struct {
	db *gorm.DB
}

func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByID(ctx context.Context, worldID, id string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).
		First(&room, "world_id = ? AND id = ? AND deleted = ?", worldID, id, false).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrRoomNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find room %s: %w", id, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) FindAllByWorld(ctx context.Context, worldID string) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).
		Where("world_id = ? AND deleted = ?", worldID, false).
		Order("sort_order asc, name asc").
		Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list rooms for world %s: %w", worldID, err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to save room %s: %w", room.ID, err)
	}
	return nil
}

func (r *GormRoomRepository) FindChannel(ctx context.Context, worldID, channelID string) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.WithContext(ctx).
		First(&channel, "world_id = ? AND id = ?", worldID, channelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrChannelNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find channel %s: %w", channelID, err)
	}
	return &channel, nil
}

func (r *GormRoomRepository) ChannelForRoom(ctx context.Context, worldID, roomID string) (*domain.Channel, error) {
	var channel domain.Channel
	err := r.db.WithContext(ctx).
		First(&channel, "world_id = ? AND room_id = ?", worldID, roomID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrChannelNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find channel for room %s: %w", roomID, err)
	}
	return &channel, nil
}

func (r *GormRoomRepository) SaveChannel(ctx context.Context, channel *domain.Channel) error {
	err := r.db.WithContext(ctx).Save(channel).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to save channel %s: %w", channel.ID, err)
	}
	return nil
}

// GormMembershipRepository is the GORM implementation of MembershipRepository.
type GormMembershipRepository struct {
	db *gorm.DB
}

func NewGormMembershipRepository(db *gorm.DB) *GormMembershipRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMembershipRepository")
	}
	return &GormMembershipRepository{db: db}
}

func (r *GormMembershipRepository) Get(ctx context.Context, channelID, userID string) (*domain.Membership, error) {
	var m domain.Membership
	err := r.db.WithContext(ctx).
		First(&m, "channel_id = ? AND user_id = ?", channelID, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find membership: %w", err)
	}
	return &m, nil
}

func (r *GormMembershipRepository) Upsert(ctx context.Context, channelID, userID string, volatile bool) (bool, error) {
	created := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m domain.Membership
		err := tx.First(&m, "channel_id = ? AND user_id = ?", channelID, userID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created = true
			return tx.Create(&domain.Membership{
				ChannelID: channelID,
				UserID:    userID,
				Volatile:  volatile,
			}).Error
		}
		if err != nil {
			return err
		}
		// Promote to durable, never back to volatile.
		if m.Volatile && !volatile {
			return tx.Model(&m).Update("volatile", false).Error
		}
		return nil
	})
	if err != nil {
		if isDuplicateEntry(err) {
			// Concurrent join, the membership exists now.
			return false, nil
		}
		return false, fmt.Errorf("gorm: failed to upsert membership: %w", err)
	}
	return created, nil
}

func (r *GormMembershipRepository) Delete(ctx context.Context, channelID, userID string) error {
	err := r.db.WithContext(ctx).
		Where("channel_id = ? AND user_id = ?", channelID, userID).
		Delete(&domain.Membership{}).Error
	if err != nil {
		return fmt.Errorf("gorm: failed to delete membership: %w", err)
	}
	return nil
}

func (r *GormMembershipRepository) ListUserIDs(ctx context.Context, channelID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&domain.Membership{}).
		Where("channel_id = ?", channelID).
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list members of channel %s: %w", channelID, err)
	}
	return ids, nil
}

func (r *GormMembershipRepository) ListVolatile(ctx context.Context) ([]domain.Membership, error) {
	var memberships []domain.Membership
	err := r.db.WithContext(ctx).
		Where("volatile = ?", true).
		Find(&memberships).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list volatile memberships: %w", err)
	}
	return memberships, nil
}
