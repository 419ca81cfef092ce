package repositories

import (
	"context"

	"storyboard/internal/domain/models"
)

// SceneRepository defines data access operations for scenes.
// Ownership is checked by the service layer before these are called.
type SceneRepository interface {
	// ListByProject returns scenes ordered by order_index ASC
	ListByProject(ctx context.Context, projectID string) ([]models.Scene, error)

	GetByID(ctx context.Context, id string) (*models.Scene, error)

	// Create inserts a scene and fills in generated ID and timestamps
	Create(ctx context.Context, scene *models.Scene) error

	// Update applies a partial update, sets updated_at and returns the stored row
	Update(ctx context.Context, id string, update *models.SceneUpdate) (*models.Scene, error)

	Delete(ctx context.Context, id string) error

	// SetOrder writes order_index = position for each id in one batch.
	// Ids outside projectID are ignored.
	SetOrder(ctx context.Context, projectID string, orderedIDs []string) error
}
