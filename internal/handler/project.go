package handler

import (
	"log/slog"
	"net/http"

	"storyboard/internal/domain/services"
	"storyboard/internal/httputil"
)

// ProjectHandler handles project HTTP requests
type ProjectHandler struct {
	projectService services.ProjectService
	logger         *slog.Logger
}

// NewProjectHandler creates a new project handler
func NewProjectHandler(projectService services.ProjectService, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		logger:         logger,
	}
}

// updateProjectBody distinguishes a null description (clear) from an absent one
type updateProjectBody struct {
	Title       *string                 `json:"title"`
	Description httputil.OptionalString `json:"description"`
	ImageSize   *string                 `json:"image_size"`
}

// ListProjects retrieves the user's active projects
// GET /api/projects
func (h *ProjectHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.ListProjects(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// ListTrash retrieves the user's soft-deleted projects
// GET /api/projects/trash
func (h *ProjectHandler) ListTrash(w http.ResponseWriter, r *http.Request) {
	projects, err := h.projectService.ListTrash(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, projects)
}

// CreateProject creates a new project
// POST /api/projects
func (h *ProjectHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req services.CreateProjectRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.UserID = httputil.GetUserID(r)

	project, err := h.projectService.CreateProject(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, project)
}

// GetProject retrieves a single project
// GET /api/projects/{id}
func (h *ProjectHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	project, err := h.projectService.GetProject(r.Context(), projectID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// UpdateProject updates title, description or image size
// PATCH /api/projects/{id}
func (h *ProjectHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var body updateProjectBody
	if !parseBody(w, r, &body) {
		return
	}
	req := services.UpdateProjectRequest{
		Title:       body.Title,
		Description: body.Description.Patch(),
		ImageSize:   body.ImageSize,
	}

	project, err := h.projectService.UpdateProject(r.Context(), projectID, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// DeleteProject moves a project to the trash
// DELETE /api/projects/{id}
func (h *ProjectHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	project, err := h.projectService.DeleteProject(r.Context(), projectID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// RestoreProject takes a project out of the trash
// POST /api/projects/{id}/restore
func (h *ProjectHandler) RestoreProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	project, err := h.projectService.RestoreProject(r.Context(), projectID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, project)
}

// PermanentlyDeleteProject removes a project and its scenes
// DELETE /api/projects/{id}/permanent
func (h *ProjectHandler) PermanentlyDeleteProject(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	if err := h.projectService.PermanentlyDeleteProject(r.Context(), projectID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
