package services

import (
	"context"

	"storyboard/internal/domain/models"
)

// CreateProjectRequest represents a request to create a project
type CreateProjectRequest struct {
	UserID      string  `json:"-"`
	Title       string  `json:"title"`
	Description *string `json:"description"`
	ImageSize   *string `json:"image_size"`
}

// UpdateProjectRequest represents a partial project update
type UpdateProjectRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	ImageSize   *string `json:"image_size"`
}

// ProjectService defines business logic operations for projects
type ProjectService interface {
	CreateProject(ctx context.Context, req *CreateProjectRequest) (*models.Project, error)

	// GetProject returns a non-deleted project owned by userID
	GetProject(ctx context.Context, id, userID string) (*models.Project, error)

	// ListProjects returns active projects, most recently touched first
	ListProjects(ctx context.Context, userID string) ([]models.Project, error)

	// ListTrash returns soft-deleted projects, most recently deleted first
	ListTrash(ctx context.Context, userID string) ([]models.Project, error)

	UpdateProject(ctx context.Context, id, userID string, req *UpdateProjectRequest) (*models.Project, error)

	// DeleteProject moves a project to the trash
	DeleteProject(ctx context.Context, id, userID string) (*models.Project, error)

	RestoreProject(ctx context.Context, id, userID string) (*models.Project, error)

	// PermanentlyDeleteProject removes the project and its scenes
	PermanentlyDeleteProject(ctx context.Context, id, userID string) error
}
