package storyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/repositories"
	"storyboard/internal/domain/services"
)

// sceneService implements the SceneService interface
type sceneService struct {
	sceneRepo   repositories.SceneRepository
	projectRepo repositories.ProjectRepository
	txManager   repositories.TransactionManager
	authorizer  services.ResourceAuthorizer
	logger      *slog.Logger
}

// NewSceneService creates a new scene service
func NewSceneService(
	sceneRepo repositories.SceneRepository,
	projectRepo repositories.ProjectRepository,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.SceneService {
	return &sceneService{
		sceneRepo:   sceneRepo,
		projectRepo: projectRepo,
		txManager:   txManager,
		authorizer:  authorizer,
		logger:      logger,
	}
}

// ListScenes returns the scenes of a project in display order
func (s *sceneService) ListScenes(ctx context.Context, projectID, userID string) ([]models.Scene, error) {
	if err := s.authorizer.CanAccessProject(ctx, userID, projectID); err != nil {
		return nil, err
	}
	return s.sceneRepo.ListByProject(ctx, projectID)
}

// GetScene retrieves a single scene
func (s *sceneService) GetScene(ctx context.Context, id, userID string) (*models.Scene, error) {
	if err := s.authorizer.CanAccessScene(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.sceneRepo.GetByID(ctx, id)
}

// CreateScene inserts a scene at the requested order index
func (s *sceneService) CreateScene(ctx context.Context, userID string, req *services.CreateSceneRequest) (*models.Scene, error) {
	err := validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required, validation.By(isUUID)),
		validation.Field(&req.OrderIndex, validation.Min(0)),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessProject(ctx, userID, req.ProjectID); err != nil {
		return nil, err
	}

	scene := &models.Scene{
		ProjectID:  req.ProjectID,
		OrderIndex: req.OrderIndex,
		Content:    req.Content,
	}
	if err := s.sceneRepo.Create(ctx, scene); err != nil {
		return nil, err
	}
	s.touchProject(ctx, scene.ProjectID)

	s.logger.Info("scene created",
		"id", scene.ID,
		"project_id", scene.ProjectID,
		"order_index", scene.OrderIndex,
	)

	return scene, nil
}

// UpdateScene applies a partial update
func (s *sceneService) UpdateScene(ctx context.Context, id, userID string, update *models.SceneUpdate) (*models.Scene, error) {
	if err := validateSceneUpdate(update); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	if err := s.authorizer.CanAccessScene(ctx, userID, id); err != nil {
		return nil, err
	}

	scene, err := s.sceneRepo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	s.touchProject(ctx, scene.ProjectID)

	s.logger.Debug("scene updated", "id", id, "project_id", scene.ProjectID)

	return scene, nil
}

// DeleteScene removes a scene permanently
func (s *sceneService) DeleteScene(ctx context.Context, id, userID string) error {
	scene, err := s.sceneRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorizer.CanAccessProject(ctx, userID, scene.ProjectID); err != nil {
		return err
	}

	if err := s.sceneRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.touchProject(ctx, scene.ProjectID)

	s.logger.Info("scene deleted", "id", id, "project_id", scene.ProjectID)

	return nil
}

// ReorderScenes renumbers the project's scenes to the given order in one
// transaction. Unknown ids are dropped; scenes left out keep their relative
// order after the listed ones.
func (s *sceneService) ReorderScenes(ctx context.Context, projectID, userID string, req *services.ReorderScenesRequest) ([]models.Scene, error) {
	if len(req.SceneIDs) == 0 {
		return nil, fmt.Errorf("%w: scene_ids cannot be empty", domain.ErrValidation)
	}

	if err := s.authorizer.CanAccessProject(ctx, userID, projectID); err != nil {
		return nil, err
	}

	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		current, err := s.sceneRepo.ListByProject(txCtx, projectID)
		if err != nil {
			return err
		}

		ordered := ResolveOrder(current, req.SceneIDs)
		if err := s.sceneRepo.SetOrder(txCtx, projectID, ordered); err != nil {
			return err
		}
		return s.projectRepo.Touch(txCtx, projectID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scenes reordered", "project_id", projectID, "count", len(req.SceneIDs))

	return s.sceneRepo.ListByProject(ctx, projectID)
}

// ResolveOrder returns the full id order for a reorder request: requested ids
// that exist (first occurrence wins), then the remaining scenes in their
// current order.
func ResolveOrder(current []models.Scene, requested []string) []string {
	known := make(map[string]bool, len(current))
	for _, sc := range current {
		known[sc.ID] = true
	}

	ordered := make([]string, 0, len(current))
	seen := make(map[string]bool, len(current))
	for _, id := range requested {
		if known[id] && !seen[id] {
			ordered = append(ordered, id)
			seen[id] = true
		}
	}
	for _, sc := range current {
		if !seen[sc.ID] {
			ordered = append(ordered, sc.ID)
		}
	}
	return ordered
}

// touchProject bumps the project's updated_at; failure only costs list ordering
func (s *sceneService) touchProject(ctx context.Context, projectID string) {
	if err := s.projectRepo.Touch(ctx, projectID); err != nil {
		s.logger.Warn("touch project failed", "project_id", projectID, "error", err)
	}
}

func validateSceneUpdate(update *models.SceneUpdate) error {
	if update == nil || update.IsEmpty() {
		return errors.New("no fields to update")
	}
	return validation.ValidateStruct(update,
		validation.Field(&update.OrderIndex, validation.Min(0)),
		validation.Field(&update.DurationSeconds, validation.Min(0)),
	)
}

func isUUID(value interface{}) error {
	s, _ := value.(string)
	if _, err := uuid.Parse(s); err != nil {
		return errors.New("must be a valid UUID")
	}
	return nil
}
