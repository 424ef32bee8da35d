package repository

import (
	"context"

	"github.com/gofrs/uuid/v5"

	"github.com/akulinich/clipshare/internal/model"
)

// UserRepository provides CRUD access for clipboard owner accounts.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, u *model.User) error
	// GetByID loads a user by ID.
	GetByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	// GetByUsername loads a user by username.
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}
