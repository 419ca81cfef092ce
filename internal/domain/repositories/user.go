package repositories

import (
	"context"

	"storyboard/internal/domain/models"
)

// UserRepository defines data access operations for users
type UserRepository interface {
	// Create inserts a user. Returns a ConflictError when the email is taken.
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail looks a user up by exact email.
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}
