package services

import (
	"context"

	"storyboard/internal/domain/models"
)

// CreateSceneRequest represents a request to append or insert a scene
type CreateSceneRequest struct {
	ProjectID  string `json:"-"`
	OrderIndex int    `json:"order_index"`
	Content    string `json:"content"`
}

// ReorderScenesRequest lists scene ids in their new display order
type ReorderScenesRequest struct {
	SceneIDs []string `json:"scene_ids"`
}

// SceneService defines business logic operations for scenes.
// Every method checks that userID owns the project the scene belongs to.
type SceneService interface {
	ListScenes(ctx context.Context, projectID, userID string) ([]models.Scene, error)

	GetScene(ctx context.Context, id, userID string) (*models.Scene, error)

	CreateScene(ctx context.Context, userID string, req *CreateSceneRequest) (*models.Scene, error)

	// UpdateScene applies a partial update
	UpdateScene(ctx context.Context, id, userID string, update *models.SceneUpdate) (*models.Scene, error)

	DeleteScene(ctx context.Context, id, userID string) error

	// ReorderScenes renumbers scenes 0..n-1 in one transaction and returns the new list
	ReorderScenes(ctx context.Context, projectID, userID string, req *ReorderScenesRequest) ([]models.Scene, error)
}
