package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// GormMediaRepository is the GORM implementation of MediaRepository.
type GormMediaRepository struct {
	db *gorm.DB
}

func NewGormMediaRepository(db *gorm.DB) *GormMediaRepository {
	if db == nil {
		panic("database connection cannot be nil for GormMediaRepository")
	}
	return &GormMediaRepository{db: db}
}

func (r *GormMediaRepository) ActiveTurnServers(ctx context.Context, worldID string) ([]domain.TurnServer, error) {
	var servers []domain.TurnServer
	err := r.db.WithContext(ctx).
		Where("active = ? AND (world_id IS NULL OR world_id = ?)", true, worldID).
		Order("hostname asc").
		Find(&servers).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list turn servers for world %s: %w", worldID, err)
	}
	return servers, nil
}

func (r *GormMediaRepository) ActiveJanusServers(ctx context.Context, worldID string) ([]domain.JanusServer, error) {
	var servers []domain.JanusServer
	err := r.db.WithContext(ctx).
		Where("active = ? AND (world_id IS NULL OR world_id = ?)", true, worldID).
		Order("url asc").
		Find(&servers).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: failed to list janus servers for world %s: %w", worldID, err)
	}
	return servers, nil
}

func (r *GormMediaRepository) SaveTurnServer(ctx context.Context, server *domain.TurnServer) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "hostname"}},
		UpdateAll: true,
	}).Create(server).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to save turn server %s: %w", server.Hostname, err)
	}
	return nil
}

func (r *GormMediaRepository) SaveJanusServer(ctx context.Context, server *domain.JanusServer) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "url"}},
		UpdateAll: true,
	}).Create(server).Error
	if err != nil {
		if isDuplicateEntry(err) {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: failed to save janus server %s: %w", server.URL, err)
	}
	return nil
}
