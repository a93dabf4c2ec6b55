package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// isDuplicateEntry maps driver-specific unique-violation errors onto the
// repository sentinel.
func isDuplicateEntry(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}

// GormWorldRepository is the GORM implementation of WorldRepository.
type GormWorldRepository struct {
	db *gorm.DB
}

func NewGormWorldRepository(db *gorm.DB) *GormWorldRepository {
	if db == nil {
		panic("database connection cannot be nil for GormWorldRepository")
	}
	return &GormWorldRepository{db: db}
}

func (r *GormWorldRepository) FindByID(ctx context.Context, id string) (*domain.World, error) {
	var world domain.World
	err := r.db.WithContext(ctx).First(&world, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrWorldNotFound
		}
		return nil, fmt.Errorf("gorm: failed to find world %s: %w", id, err)
	}
	return &world, nil
}

func (r *GormWorldRepository) FindAll(ctx context.Context) ([]domain.World, error) {
	var worlds []domain.World
	err := r.db.WithContext(ctx).Order("id asc").Find(&worlds).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list worlds: %w", err)
	}
	return worlds, nil
}

func (r *GormWorldRepository) Save(ctx context.Context, world *domain.World) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(world).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to save world %s: %w", world.ID, err)
	}
	return nil
}
