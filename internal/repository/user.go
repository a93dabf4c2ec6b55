package repository

import (
	"context"

	"github.com/eventhall/eventhall/internal/domain"
)

// UserRepository stores world-scoped identities.
type UserRepository interface {
	// FindByID returns the user with the given id, or ErrUserNotFound.
	FindByID(ctx context.Context, worldID, id string) (*domain.User, error)

	// FindByTokenID returns the user bound to a JWT subject within a world,
	// or ErrUserNotFound.
	FindByTokenID(ctx context.Context, worldID, tokenID string) (*domain.User, error)

	// FindByClientID returns the user bound to an anonymous client id within
	// a world, or ErrUserNotFound.
	FindByClientID(ctx context.Context, worldID, clientID string) (*domain.User, error)

	// Save creates or updates a user. Unique-constraint violations are
	// reported as ErrDuplicateEntry.
	Save(ctx context.Context, user *domain.User) error
}
