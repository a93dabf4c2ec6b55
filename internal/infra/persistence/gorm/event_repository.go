package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// visibleTo is the shared visibility carve-out: a hidden record is returned
// when the viewer is its sender. Chat events and questions both go through
// this scope so the policy lives in exactly one place.
func visibleTo(viewerID string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if viewerID == "" {
			return db.Where("visible = ?", true)
		}
		return db.Where("visible = ? OR sender_id = ?", true, viewerID)
	}
}

// GormEventRepository is the GORM implementation of EventRepository.
type GormEventRepository struct {
	db *gorm.DB
}

func NewGormEventRepository(db *gorm.DB) *GormEventRepository {
	if db == nil {
		panic("database connection cannot be nil for GormEventRepository")
	}
	return &GormEventRepository{db: db}
}

func (r *GormEventRepository) Create(ctx context.Context, event *domain.ChatEvent, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(event).Error; err != nil {
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
		return fmt.Errorf("gorm: failed to create event %d: %w", event.ID, err)
	}
	return nil
}

func (r *GormEventRepository) Update(ctx context.Context, event *domain.ChatEvent, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(event).Error; err != nil {
			return err
		}
		if audit != nil {
			return tx.Create(audit).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm: failed to update event %d: %w", event.ID, err)
	}
	return nil
}

func (r *GormEventRepository) FindByID(ctx context.Context, worldID string, id uint64) (*domain.ChatEvent, error) {
	var event domain.ChatEvent
	err := r.db.WithContext(ctx).
		First(&event, "world_id = ? AND id = ?", worldID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrEventNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find event %d: %w", id, err)
	}
	return &event, nil
}

func (r *GormEventRepository) List(ctx context.Context, worldID, channelID string, filter repository.EventFilter) ([]domain.ChatEvent, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 50
	}
	query := r.db.WithContext(ctx).
		Where("world_id = ? AND channel_id = ?", worldID, channelID).
		Scopes(visibleTo(filter.ViewerID))
	if filter.BeforeID > 0 {
		query = query.Where("id < ?", filter.BeforeID)
	}
	if filter.SkipMembership {
		query = query.Where("event_type <> ?", domain.EventTypeMember)
	}

	// Fetch newest-first to honour the limit, then reverse to ascending id.
	var events []domain.ChatEvent
	err := query.Order("id desc").Limit(limit).Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list events for channel %s: %w", channelID, err)
	}
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	return events, nil
}

func (r *GormEventRepository) MaxID(ctx context.Context, worldID string) (uint64, error) {
	var maxID *uint64
	err := r.db.WithContext(ctx).Model(&domain.ChatEvent{}).
		Where("world_id = ?", worldID).
		Select("MAX(id)").
		Scan(&maxID).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: failed to get max event id for world %s: %w", worldID, err)
	}
	if maxID == nil {
		return 0, nil
	}
	return *maxID, nil
}

func (r *GormEventRepository) DeleteOlderThan(ctx context.Context, worldID string, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("world_id = ? AND created_at < ?", worldID, cutoff).
		Delete(&domain.ChatEvent{})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: failed to trim events for world %s: %w", worldID, res.Error)
	}
	return res.RowsAffected, nil
}

// GormQuestionRepository is the GORM implementation of QuestionRepository.
type GormQuestionRepository struct {
	db *gorm.DB
}

func NewGormQuestionRepository(db *gorm.DB) *GormQuestionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormQuestionRepository")
	}
	return &GormQuestionRepository{db: db}
}

func (r *GormQuestionRepository) Create(ctx context.Context, question *domain.Question, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
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
		return fmt.Errorf("gorm: failed to create question %d: %w", question.ID, err)
	}
	return nil
}

func (r *GormQuestionRepository) Update(ctx context.Context, question *domain.Question, audit *domain.AuditLog) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(question).Error; err != nil {
			return err
		}
		if audit != nil {
			return tx.Create(audit).Error
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("gorm: failed to update question %d: %w", question.ID, err)
	}
	return nil
}

func (r *GormQuestionRepository) FindByID(ctx context.Context, worldID string, id uint64) (*domain.Question, error) {
	var question domain.Question
	err := r.db.WithContext(ctx).
		First(&question, "world_id = ? AND id = ?", worldID, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find question %d: %w", id, err)
	}
	return &question, nil
}

func (r *GormQuestionRepository) List(ctx context.Context, worldID, roomID, viewerID string, includeHidden bool) ([]domain.Question, error) {
	query := r.db.WithContext(ctx).
		Where("world_id = ? AND room_id = ?", worldID, roomID)
	if !includeHidden {
		query = query.Scopes(visibleTo(viewerID))
	}
	var questions []domain.Question
	err := query.Order("id asc").Find(&questions).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list questions for room %s: %w", roomID, err)
	}
	return questions, nil
}

func (r *GormQuestionRepository) Vote(ctx context.Context, questionID uint64, userID string) (int, error) {
	votes := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&domain.QuestionVote{QuestionID: questionID, UserID: userID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&domain.Question{}).
			Where("id = ?", questionID).
			UpdateColumn("votes", gorm.Expr("votes + 1")).Error; err != nil {
			return err
		}
		var question domain.Question
		if err := tx.First(&question, "id = ?", questionID).Error; err != nil {
			return err
		}
		votes = question.Votes
		return nil
	})
	if err != nil {
		if isDuplicateEntry(err) {
			return 0, repository.ErrDuplicateEntry
		}
		return 0, fmt.Errorf("gorm: failed to vote on question %d: %w", questionID, err)
	}
	return votes, nil
}

// GormReactionRepository is the GORM implementation of ReactionRepository.
type GormReactionRepository struct {
	db *gorm.DB
}

func NewGormReactionRepository(db *gorm.DB) *GormReactionRepository {
	if db == nil {
		panic("database connection cannot be nil for GormReactionRepository")
	}
	return &GormReactionRepository{db: db}
}

func (r *GormReactionRepository) SaveBatch(ctx context.Context, reactions []domain.Reaction) error {
	if len(reactions) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Create(&reactions).Error
	if err != nil {
		return fmt.Errorf("gorm: failed to save reaction batch (size %d): %w", len(reactions), err)
	}
	return nil
}

func (r *GormReactionRepository) SaveFeedback(ctx context.Context, feedback *domain.Feedback) error {
	err := r.db.WithContext(ctx).Create(feedback).Error
	if err != nil {
		return fmt.Errorf("gorm: failed to save feedback: %w", err)
	}
	return nil
}
