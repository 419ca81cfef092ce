package handler

import (
	"log/slog"
	"net/http"

	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
	"storyboard/internal/httputil"
)

// SceneHandler handles scene HTTP requests
type SceneHandler struct {
	sceneService services.SceneService
	logger       *slog.Logger
}

// NewSceneHandler creates a new scene handler
func NewSceneHandler(sceneService services.SceneService, logger *slog.Logger) *SceneHandler {
	return &SceneHandler{
		sceneService: sceneService,
		logger:       logger,
	}
}

// updateSceneBody is a JSON merge patch: absent fields are kept, null clears
// a nullable field.
type updateSceneBody struct {
	Content         *string                 `json:"content"`
	ImageURL        httputil.OptionalString `json:"image_url"`
	AINotes         httputil.OptionalString `json:"ai_notes"`
	OrderIndex      *int                    `json:"order_index"`
	ShotNumber      httputil.OptionalString `json:"shot_number"`
	Frame           httputil.OptionalString `json:"frame"`
	ShotType        httputil.OptionalString `json:"shot_type"`
	DurationSeconds httputil.OptionalInt    `json:"duration_seconds"`
	Notes           httputil.OptionalString `json:"notes"`
}

func (b *updateSceneBody) toUpdate() *models.SceneUpdate {
	return &models.SceneUpdate{
		Content:         b.Content,
		ImageURL:        b.ImageURL.Patch(),
		AINotes:         b.AINotes.Patch(),
		OrderIndex:      b.OrderIndex,
		ShotNumber:      b.ShotNumber.Patch(),
		Frame:           b.Frame.Patch(),
		ShotType:        b.ShotType.Patch(),
		DurationSeconds: b.DurationSeconds.Patch(),
		Notes:           b.Notes.Patch(),
	}
}

// ListScenes retrieves a project's scenes in display order
// GET /api/projects/{id}/scenes
func (h *SceneHandler) ListScenes(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	scenes, err := h.sceneService.ListScenes(r.Context(), projectID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, scenes)
}

// CreateScene adds a scene at the given order index
// POST /api/projects/{id}/scenes
func (h *SceneHandler) CreateScene(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req services.CreateSceneRequest
	if !parseBody(w, r, &req) {
		return
	}
	req.ProjectID = projectID

	scene, err := h.sceneService.CreateScene(r.Context(), httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, scene)
}

// ReorderScenes renumbers scenes to the given order
// PUT /api/projects/{id}/scenes/order
func (h *SceneHandler) ReorderScenes(w http.ResponseWriter, r *http.Request) {
	projectID, ok := PathParam(w, r, "id", "Project ID")
	if !ok {
		return
	}

	var req services.ReorderScenesRequest
	if !parseBody(w, r, &req) {
		return
	}

	scenes, err := h.sceneService.ReorderScenes(r.Context(), projectID, httputil.GetUserID(r), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, scenes)
}

// GetScene retrieves a single scene
// GET /api/scenes/{id}
func (h *SceneHandler) GetScene(w http.ResponseWriter, r *http.Request) {
	sceneID, ok := PathParam(w, r, "id", "Scene ID")
	if !ok {
		return
	}

	scene, err := h.sceneService.GetScene(r.Context(), sceneID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, scene)
}

// UpdateScene applies a partial update
// PATCH /api/scenes/{id}
func (h *SceneHandler) UpdateScene(w http.ResponseWriter, r *http.Request) {
	sceneID, ok := PathParam(w, r, "id", "Scene ID")
	if !ok {
		return
	}

	var body updateSceneBody
	if !parseBody(w, r, &body) {
		return
	}

	scene, err := h.sceneService.UpdateScene(r.Context(), sceneID, httputil.GetUserID(r), body.toUpdate())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, scene)
}

// DeleteScene removes a scene
// DELETE /api/scenes/{id}
func (h *SceneHandler) DeleteScene(w http.ResponseWriter, r *http.Request) {
	sceneID, ok := PathParam(w, r, "id", "Scene ID")
	if !ok {
		return
	}

	if err := h.sceneService.DeleteScene(r.Context(), sceneID, httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
