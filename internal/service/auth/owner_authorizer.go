package auth

import (
	"context"
	"fmt"

	"storyboard/internal/domain"
	"storyboard/internal/domain/repositories"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using ownership checks.
// A user can access a scene if they own the project that contains it.
type OwnerBasedAuthorizer struct {
	projectRepo repositories.ProjectRepository
	sceneRepo   repositories.SceneRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer(
	projectRepo repositories.ProjectRepository,
	sceneRepo repositories.SceneRepository,
) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{
		projectRepo: projectRepo,
		sceneRepo:   sceneRepo,
	}
}

// CanAccessProject checks if user owns the project. A missing or trashed
// project is ErrNotFound, another user's project ErrForbidden.
func (a *OwnerBasedAuthorizer) CanAccessProject(ctx context.Context, userID, projectID string) error {
	ownerID, err := a.projectRepo.GetOwnerID(ctx, projectID)
	if err != nil {
		return fmt.Errorf("check project access: %w", err)
	}
	if ownerID != userID {
		return fmt.Errorf("access denied to project %s: %w", projectID, domain.ErrForbidden)
	}
	return nil
}

// CanAccessScene checks if user can access a scene (via its project)
func (a *OwnerBasedAuthorizer) CanAccessScene(ctx context.Context, userID, sceneID string) error {
	scene, err := a.sceneRepo.GetByID(ctx, sceneID)
	if err != nil {
		return fmt.Errorf("get scene for auth: %w", err)
	}

	return a.CanAccessProject(ctx, userID, scene.ProjectID)
}
