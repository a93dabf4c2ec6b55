package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// GormPollRepository is the GORM implementation of PollRepository.
type GormPollRepository struct {
	db *gorm.DB
}

func NewGormPollRepository(db *gorm.DB) *GormPollRepository {
	if db == nil {
		panic("database connection cannot be nil for GormPollRepository")
	}
	return &GormPollRepository{db: db}
}

func orderedOptions(db *gorm.DB) *gorm.DB {
	return db.Order("position asc, id asc")
}

func (r *GormPollRepository) Create(ctx context.Context, poll *domain.Poll, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(poll).Error; err != nil {
			return err
		}
		if audit != nil {
			return tx.Create(audit).Error
		}
		return nil
	})
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to create poll %d: %w", poll.ID, err)
	}
	return nil
}

func (r *GormPollRepository) Update(ctx context.Context, poll *domain.Poll, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Options keep their own vote counters; only the poll row is rewritten.
		if err := tx.Omit("Options").Save(poll).Error; err != nil {
			return err
		}
		if audit != nil {
			return tx.Create(audit).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm: failed to update poll %d: %w", poll.ID, err)
	}
	return nil
}

func (r *GormPollRepository) Delete(ctx context.Context, worldID string, id uint64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("poll_id = ?", id).Delete(&domain.PollVote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("poll_id = ?", id).Delete(&domain.PollOption{}).Error; err != nil {
			return err
		}
		return tx.Where("world_id = ? AND id = ?", worldID, id).Delete(&domain.Poll{}).Error
	})
	if err != nil {
		return fmt.Errorf("gorm: failed to delete poll %d: %w", id, err)
	}
	return nil
}

func (r *GormPollRepository) FindByID(ctx context.Context, worldID string, id uint64) (*domain.Poll, error) {
	var poll domain.Poll
	err := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		First(&poll, "world_id = ? AND id = ?", worldID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrPollNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find poll %d: %w", id, err)
	}
	return &poll, nil
}

func (r *GormPollRepository) List(ctx context.Context, worldID, roomID string, includeDrafts bool) ([]domain.Poll, error) {
	query := r.db.WithContext(ctx).
		Preload("Options", orderedOptions).
		Where("world_id = ? AND room_id = ?", worldID, roomID)
	if !includeDrafts {
		query = query.Where("state <> ?", domain.PollStateDraft)
	}
	var polls []domain.Poll
	err := query.Order("id asc").Find(&polls).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list polls for room %s: %w", roomID, err)
	}
	return polls, nil
}

func (r *GormPollRepository) Vote(ctx context.Context, pollID uint64, optionID uint, userID string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&domain.PollVote{PollID: pollID, OptionID: optionID, UserID: userID}).Error; err != nil {
			return err
		}
		return tx.Model(&domain.PollOption{}).
			Where("id = ? AND poll_id = ?", optionID, pollID).
			UpdateColumn("votes", gorm.Expr("votes + 1")).Error
	})
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to vote on poll %d: %w", pollID, err)
	}
	return nil
}

func (r *GormPollRepository) VotedPollIDs(ctx context.Context, userID string, pollIDs []uint64) ([]uint64, error) {
	if len(pollIDs) == 0 {
		return nil, nil
	}
	var voted []uint64
	err := r.db.WithContext(ctx).Model(&domain.PollVote{}).
		Where("user_id = ? AND poll_id IN ?", userID, pollIDs).
		Pluck("poll_id", &voted).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to load poll votes of user %s: %w", userID, err)
	}
	return voted, nil
}
