package user

import (
	"context"

	"github.com/google/uuid"
)

// UserRepository defines the persistence contract for user aggregates.
type UserRepository interface {
	// FindByID retrieves a user by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)

	// FindByEmail retrieves a user by its lower-cased email address.
	FindByEmail(ctx context.Context, email string) (*User, error)

	// Save persists a new user.
	Save(ctx context.Context, user *User) error

	// Update persists changes to an existing user.
	Update(ctx context.Context, user *User) error
}
