package repository

import (
	"context"

	"github.com/eventhall/eventhall/internal/domain"
)

// WorldRepository stores tenant records and their configuration blobs.
type WorldRepository interface {
	// FindByID returns the world with the given id, or ErrWorldNotFound.
	FindByID(ctx context.Context, id string) (*domain.World, error)

	// FindAll returns every known world, ordered by id.
	FindAll(ctx context.Context) ([]domain.World, error)

	// Save creates or updates a world record.
	Save(ctx context.Context, world *domain.World) error
}
