package storyboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"storyboard/internal/config"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/repositories"
	"storyboard/internal/domain/services"
)

// imageSizePattern accepts "<width>*<height>" as stored on projects
var imageSizePattern = regexp.MustCompile(`^[1-9][0-9]{1,4}\*[1-9][0-9]{1,4}$`)

// projectService implements the ProjectService interface
type projectService struct {
	projectRepo repositories.ProjectRepository
	logger      *slog.Logger
}

// NewProjectService creates a new project service
func NewProjectService(
	projectRepo repositories.ProjectRepository,
	logger *slog.Logger,
) services.ProjectService {
	return &projectService{
		projectRepo: projectRepo,
		logger:      logger,
	}
}

// CreateProject creates a new project
func (s *projectService) CreateProject(ctx context.Context, req *services.CreateProjectRequest) (*models.Project, error) {
	if err := s.validateCreateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	project := &models.Project{
		UserID:      req.UserID,
		Title:       strings.TrimSpace(req.Title),
		Description: trimmedOrNil(req.Description),
	}
	if req.ImageSize != nil {
		project.ImageSize = *req.ImageSize
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project created",
		"id", project.ID,
		"title", project.Title,
		"user_id", req.UserID,
	)

	return project, nil
}

// GetProject retrieves a project by ID
func (s *projectService) GetProject(ctx context.Context, id, userID string) (*models.Project, error) {
	return s.projectRepo.GetByID(ctx, id, userID)
}

// ListProjects retrieves active projects for a user
func (s *projectService) ListProjects(ctx context.Context, userID string) ([]models.Project, error) {
	return s.projectRepo.List(ctx, userID)
}

// ListTrash retrieves soft-deleted projects for a user
func (s *projectService) ListTrash(ctx context.Context, userID string) ([]models.Project, error) {
	return s.projectRepo.ListDeleted(ctx, userID)
}

// UpdateProject applies the provided fields
func (s *projectService) UpdateProject(ctx context.Context, id, userID string, req *services.UpdateProjectRequest) (*models.Project, error) {
	if err := s.validateUpdateRequest(req); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	project, err := s.projectRepo.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		project.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		project.Description = trimmedOrNil(req.Description)
	}
	if req.ImageSize != nil {
		project.ImageSize = *req.ImageSize
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, err
	}

	s.logger.Info("project updated",
		"id", project.ID,
		"user_id", userID,
	)

	return project, nil
}

// DeleteProject moves a project to the trash
func (s *projectService) DeleteProject(ctx context.Context, id, userID string) (*models.Project, error) {
	project, err := s.projectRepo.SoftDelete(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("project moved to trash",
		"id", id,
		"user_id", userID,
	)

	return project, nil
}

// RestoreProject takes a project out of the trash
func (s *projectService) RestoreProject(ctx context.Context, id, userID string) (*models.Project, error) {
	project, err := s.projectRepo.Restore(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("project restored",
		"id", id,
		"user_id", userID,
	)

	return project, nil
}

// PermanentlyDeleteProject removes a project and its scenes, trashed or not
func (s *projectService) PermanentlyDeleteProject(ctx context.Context, id, userID string) error {
	// Verify project exists first (provides better error message)
	if _, err := s.projectRepo.GetByIDIncludingDeleted(ctx, id, userID); err != nil {
		return err
	}

	if err := s.projectRepo.HardDelete(ctx, id, userID); err != nil {
		return err
	}

	s.logger.Info("project permanently deleted",
		"id", id,
		"user_id", userID,
	)

	return nil
}

// validateCreateRequest validates a create project request
func (s *projectService) validateCreateRequest(req *services.CreateProjectRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title,
			validation.Required,
			validation.RuneLength(1, config.MaxProjectTitleLength),
			validation.By(notBlank("title")),
		),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxProjectDescriptionLength)),
		validation.Field(&req.ImageSize, validation.NilOrNotEmpty, validation.Match(imageSizePattern)),
	)
}

// validateUpdateRequest validates an update project request
func (s *projectService) validateUpdateRequest(req *services.UpdateProjectRequest) error {
	if req.Title == nil && req.Description == nil && req.ImageSize == nil {
		return errors.New("no fields to update")
	}
	return validation.ValidateStruct(req,
		validation.Field(&req.Title,
			validation.NilOrNotEmpty,
			validation.RuneLength(1, config.MaxProjectTitleLength),
			validation.By(notBlank("title")),
		),
		validation.Field(&req.Description, validation.RuneLength(0, config.MaxProjectDescriptionLength)),
		validation.Field(&req.ImageSize, validation.NilOrNotEmpty, validation.Match(imageSizePattern)),
	)
}

// notBlank rejects values that are only whitespace
func notBlank(field string) validation.RuleFunc {
	return func(value interface{}) error {
		var s string
		switch v := value.(type) {
		case string:
			s = v
		case *string:
			if v == nil {
				return nil
			}
			s = *v
		default:
			return fmt.Errorf("%s must be a string", field)
		}
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
