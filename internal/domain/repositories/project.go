package repositories

import (
	"context"

	"storyboard/internal/domain/models"
)

// ProjectRepository defines data access operations for projects.
// Every method is scoped to the owning user.
type ProjectRepository interface {
	// Create creates a new project and fills in generated ID and timestamps
	Create(ctx context.Context, project *models.Project) error

	// GetByID retrieves a non-deleted project owned by userID
	GetByID(ctx context.Context, id, userID string) (*models.Project, error)

	// GetOwnerID returns the owner of a non-deleted project. It is the one
	// lookup not scoped to a user, so authorization can tell a missing
	// project from someone else's.
	GetOwnerID(ctx context.Context, id string) (string, error)

	// GetByIDIncludingDeleted retrieves a project regardless of its trash state
	GetByIDIncludingDeleted(ctx context.Context, id, userID string) (*models.Project, error)

	// List retrieves non-deleted projects, ordered by updated_at DESC
	List(ctx context.Context, userID string) ([]models.Project, error)

	// ListDeleted retrieves trashed projects, ordered by deleted_at DESC
	ListDeleted(ctx context.Context, userID string) ([]models.Project, error)

	// Update writes title, description, image_size and updated_at
	Update(ctx context.Context, project *models.Project) error

	// Touch bumps updated_at
	Touch(ctx context.Context, id string) error

	// SoftDelete sets is_deleted and deleted_at and returns the trashed project
	SoftDelete(ctx context.Context, id, userID string) (*models.Project, error)

	// Restore clears the soft-delete flag and returns the project
	Restore(ctx context.Context, id, userID string) (*models.Project, error)

	// HardDelete removes the row. Scenes are removed by the FK cascade.
	HardDelete(ctx context.Context, id, userID string) error
}
