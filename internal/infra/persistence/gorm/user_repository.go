package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// GormUserRepository is the GORM implementation of UserRepository.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).First(&user, append([]interface{}{query}, args...)...).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrUserNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find user: %w", err)
	}
	return &user, nil
}

func (r *GormUserRepository) FindByID(ctx context.Context, worldID, id string) (*domain.User, error) {
	return r.findOne(ctx, "world_id = ? AND id = ?", worldID, id)
}

func (r *GormUserRepository) FindByTokenID(ctx context.Context, worldID, tokenID string) (*domain.User, error) {
	return r.findOne(ctx, "world_id = ? AND token_id = ?", worldID, tokenID)
}

func (r *GormUserRepository) FindByClientID(ctx context.Context, worldID, clientID string) (*domain.User, error) {
	return r.findOne(ctx, "world_id = ? AND client_id = ?", worldID, clientID)
}

func (r *GormUserRepository) Save(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Save(user).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to save user %s: %w", user.ID, err)
	}
	return nil
}
