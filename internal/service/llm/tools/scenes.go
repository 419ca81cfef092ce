package tools

import (
	"context"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
)

const notSet = "not set"

// sceneTool holds what every scene tool needs: the acting user and the
// scene service, which enforces ownership.
type sceneTool struct {
	userID string
	scenes services.SceneService
	config *ToolConfig
}

func newSceneTool(userID string, scenes services.SceneService, config *ToolConfig) sceneTool {
	if config == nil {
		config = DefaultToolConfig()
	}
	return sceneTool{userID: userID, scenes: scenes, config: config}
}

// GetScenesTool lists the scenes of a project without image payloads.
type GetScenesTool struct{ sceneTool }

// NewGetScenesTool creates a new GetScenesTool instance.
func NewGetScenesTool(userID string, scenes services.SceneService, config *ToolConfig) *GetScenesTool {
	return &GetScenesTool{newSceneTool(userID, scenes, config)}
}

// Definition implements DefinedTool.
func (t *GetScenesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "getScenes",
		Description: "Get all scenes of the current project. Use this to check which scenes exist, their content, order and shot details before changing anything.",
		Parameters: objectSchema(map[string]interface{}{
			"projectId": stringProp("The UUID of the project to get scenes from"),
		}, "projectId"),
	}
}

type getScenesParams struct {
	ProjectID string `json:"projectId"`
}

// Execute implements ToolExecutor interface.
// Returns {success, scenes: [{position, id, content, shotNumber, frame, shotType,
// durationSeconds, notes, hasImage}], count, message}.
func (t *GetScenesTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	var p getScenesParams
	if err := decodeInput(input, &p); err != nil {
		return failureResult(err, "Failed to get scenes", nil), nil
	}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.ProjectID, validation.Required, is.UUID),
	)
	if err != nil {
		return failureResult(err, "Failed to get scenes", nil), nil
	}

	scenes, err := t.scenes.ListScenes(ctx, p.ProjectID, t.userID)
	if err != nil {
		return failureResult(err, "Failed to get scenes", nil), nil
	}

	if len(scenes) == 0 {
		return successResult(map[string]interface{}{
			"scenes": []interface{}{},
			"count":  0,
		}, "The project has no scenes yet. Use addScene to create one."), nil
	}

	list := make([]map[string]interface{}, len(scenes))
	var summary strings.Builder
	fmt.Fprintf(&summary, "The project has %d scenes\n", len(scenes))

	for i, sc := range scenes {
		entry := map[string]interface{}{
			"position":        i + 1,
			"id":              sc.ID,
			"content":         orDefault(sc.Content, "(empty)"),
			"shotNumber":      orNotSet(sc.ShotNumber),
			"frame":           orNotSet(sc.Frame),
			"shotType":        orNotSet(sc.ShotType),
			"durationSeconds": durationOrNotSet(sc.DurationSeconds),
			"notes":           orNotSet(sc.Notes),
			"hasImage":        sc.HasImage(),
		}
		list[i] = entry

		imageState := "not generated"
		if sc.HasImage() {
			imageState = "generated"
		}
		fmt.Fprintf(&summary, "\nScene %d (ID: %s):\n", i+1, sc.ID)
		fmt.Fprintf(&summary, "  - Content: %s\n", entry["content"])
		fmt.Fprintf(&summary, "  - Shot number: %s\n", entry["shotNumber"])
		fmt.Fprintf(&summary, "  - Frame: %s\n", entry["frame"])
		fmt.Fprintf(&summary, "  - Shot type: %s\n", entry["shotType"])
		fmt.Fprintf(&summary, "  - Duration: %s\n", formatDuration(sc.DurationSeconds))
		fmt.Fprintf(&summary, "  - Notes: %s\n", entry["notes"])
		fmt.Fprintf(&summary, "  - Image: %s\n", imageState)
	}

	return successResult(map[string]interface{}{
		"scenes": list,
		"count":  len(scenes),
	}, strings.TrimRight(summary.String(), "\n")), nil
}

// AddSceneTool inserts a new scene.
type AddSceneTool struct{ sceneTool }

// NewAddSceneTool creates a new AddSceneTool instance.
func NewAddSceneTool(userID string, scenes services.SceneService, config *ToolConfig) *AddSceneTool {
	return &AddSceneTool{newSceneTool(userID, scenes, config)}
}

// Definition implements DefinedTool.
func (t *AddSceneTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "addScene",
		Description: "Add a new scene to the storyboard. Use this when the user wants to create, add or insert a scene.",
		Parameters: objectSchema(map[string]interface{}{
			"projectId": stringProp("The UUID of the project to add the scene to"),
			"content":   stringProp("Initial text description or script for the new scene"),
			"orderIndex": map[string]interface{}{
				"type":        "integer",
				"minimum":     0,
				"description": "Position of the new scene (0-based, use the next available index)",
			},
		}, "projectId", "content", "orderIndex"),
	}
}

type addSceneParams struct {
	ProjectID  string `json:"projectId"`
	Content    string `json:"content"`
	OrderIndex *int   `json:"orderIndex"`
}

// Execute implements ToolExecutor interface.
func (t *AddSceneTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	const failMsg = "Failed to add new scene"

	var p addSceneParams
	if err := decodeInput(input, &p); err != nil {
		return failureResult(err, failMsg, nil), nil
	}
	err := validation.ValidateStruct(&p,
		validation.Field(&p.ProjectID, validation.Required, is.UUID),
		validation.Field(&p.OrderIndex, validation.NotNil, validation.Min(0)),
	)
	if err != nil {
		return failureResult(err, failMsg, nil), nil
	}

	scene, err := t.scenes.CreateScene(ctx, t.userID, &services.CreateSceneRequest{
		ProjectID:  p.ProjectID,
		OrderIndex: *p.OrderIndex,
		Content:    p.Content,
	})
	if err != nil {
		return failureResult(err, failMsg, nil), nil
	}

	return successResult(map[string]interface{}{
		"scene": scene,
	}, fmt.Sprintf("New scene added\n\nPosition: %d\nContent: %s",
		*p.OrderIndex+1, preview(p.Content, t.config.ContentPreviewLength))), nil
}

// UpdateSceneContentTool rewrites a scene's script and records the model's reasoning.
type UpdateSceneContentTool struct{ sceneTool }

// NewUpdateSceneContentTool creates a new UpdateSceneContentTool instance.
func NewUpdateSceneContentTool(userID string, scenes services.SceneService, config *ToolConfig) *UpdateSceneContentTool {
	return &UpdateSceneContentTool{newSceneTool(userID, scenes, config)}
}

// Definition implements DefinedTool.
func (t *UpdateSceneContentTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "updateSceneContent",
		Description: "Update the text description or script of a scene. Use this when the user wants to modify, edit or rewrite a scene's content.",
		Parameters: objectSchema(map[string]interface{}{
			"sceneId":    stringProp("The UUID of the scene to update"),
			"content":    stringProp("The new text description or script for the scene"),
			"aiThinking": stringProp("Optional explanation of why this change was made"),
		}, "sceneId", "content"),
	}
}

type updateSceneContentParams struct {
	SceneID    string  `json:"sceneId"`
	Content    *string `json:"content"`
	AIThinking *string `json:"aiThinking"`
}

// Execute implements ToolExecutor interface.
// ai_notes is replaced by aiThinking when given and left alone otherwise.
func (t *UpdateSceneContentTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	var p updateSceneContentParams
	if err := decodeInput(input, &p); err != nil {
		return failureResult(err, "Failed to update scene", nil), nil
	}
	failMsg := fmt.Sprintf("Failed to update scene %s", p.SceneID)
	ids := map[string]interface{}{"sceneId": p.SceneID}

	err := validation.ValidateStruct(&p,
		validation.Field(&p.SceneID, validation.Required, is.UUID),
		validation.Field(&p.Content, validation.NotNil),
	)
	if err != nil {
		return failureResult(err, failMsg, ids), nil
	}

	_, err = t.scenes.UpdateScene(ctx, p.SceneID, t.userID, &models.SceneUpdate{
		Content: p.Content,
		AINotes: p.AIThinking,
	})
	if err != nil {
		return failureResult(err, failMsg, ids), nil
	}

	return successResult(map[string]interface{}{
		"sceneId": p.SceneID,
		"content": *p.Content,
	}, fmt.Sprintf("Scene content updated\n\nNew content: %s",
		preview(*p.Content, t.config.ContentPreviewLength))), nil
}

// UpdateSceneDetailsTool edits the shot metadata of a scene.
type UpdateSceneDetailsTool struct{ sceneTool }

// NewUpdateSceneDetailsTool creates a new UpdateSceneDetailsTool instance.
func NewUpdateSceneDetailsTool(userID string, scenes services.SceneService, config *ToolConfig) *UpdateSceneDetailsTool {
	return &UpdateSceneDetailsTool{newSceneTool(userID, scenes, config)}
}

// Definition implements DefinedTool.
func (t *UpdateSceneDetailsTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        "updateSceneDetails",
		Description: "Update the shot details of a scene: shot number, frame description, shot type, duration, content and notes. Only the provided fields change.",
		Parameters: objectSchema(map[string]interface{}{
			"sceneId":    stringProp("The UUID of the scene to update"),
			"shotNumber": stringProp("Shot number, for example '1', '2' or '3A'"),
			"frame":      stringProp("Frame description, for example 'Wide: city skyline'"),
			"shotType":   stringProp("Shot type, for example wide, medium, close-up, extreme close-up, aerial, push in, pull out"),
			"durationSeconds": map[string]interface{}{
				"type":        "integer",
				"minimum":     1,
				"description": "Shot duration in seconds",
			},
			"content": stringProp("What happens in the shot: action, plot or dialogue"),
			"notes":   stringProp("Director or camera notes such as camera movement or special requirements"),
		}, "sceneId"),
	}
}

type updateSceneDetailsParams struct {
	SceneID         string  `json:"sceneId"`
	ShotNumber      *string `json:"shotNumber"`
	Frame           *string `json:"frame"`
	ShotType        *string `json:"shotType"`
	DurationSeconds *int    `json:"durationSeconds"`
	Content         *string `json:"content"`
	Notes           *string `json:"notes"`
}

// Execute implements ToolExecutor interface.
func (t *UpdateSceneDetailsTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	const failMsg = "Failed to update scene details"

	var p updateSceneDetailsParams
	if err := decodeInput(input, &p); err != nil {
		return failureResult(err, failMsg, nil), nil
	}
	ids := map[string]interface{}{"sceneId": p.SceneID}

	err := validation.ValidateStruct(&p,
		validation.Field(&p.SceneID, validation.Required, is.UUID),
		validation.Field(&p.DurationSeconds, validation.By(positiveInt)),
	)
	if err != nil {
		return failureResult(err, failMsg, ids), nil
	}

	update := &models.SceneUpdate{
		ShotNumber:      p.ShotNumber,
		Frame:           p.Frame,
		ShotType:        p.ShotType,
		DurationSeconds: p.DurationSeconds,
		Content:         p.Content,
		Notes:           p.Notes,
	}
	if update.IsEmpty() {
		return failureResult(fmt.Errorf("no fields to update"), failMsg, ids), nil
	}

	if _, err := t.scenes.UpdateScene(ctx, p.SceneID, t.userID, update); err != nil {
		return failureResult(err, failMsg, ids), nil
	}

	var changed []string
	if p.ShotNumber != nil {
		changed = append(changed, "Shot number: "+*p.ShotNumber)
	}
	if p.Frame != nil {
		changed = append(changed, "Frame: "+*p.Frame)
	}
	if p.ShotType != nil {
		changed = append(changed, "Shot type: "+*p.ShotType)
	}
	if p.DurationSeconds != nil {
		changed = append(changed, fmt.Sprintf("Duration: %ds", *p.DurationSeconds))
	}
	if p.Content != nil {
		changed = append(changed, "Content: "+preview(*p.Content, 50))
	}
	if p.Notes != nil {
		changed = append(changed, "Notes: "+*p.Notes)
	}

	return successResult(ids, "Scene details updated\n\n"+strings.Join(changed, "\n")), nil
}

// positiveInt requires a value above zero; Min skips zero as empty
func positiveInt(value interface{}) error {
	if d, ok := value.(*int); ok && d != nil && *d <= 0 {
		return fmt.Errorf("must be greater than 0")
	}
	return nil
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func orNotSet(s *string) string {
	if s == nil || *s == "" {
		return notSet
	}
	return *s
}

func durationOrNotSet(d *int) interface{} {
	if d == nil || *d == 0 {
		return notSet
	}
	return *d
}

func formatDuration(d *int) string {
	if d == nil || *d == 0 {
		return notSet
	}
	return fmt.Sprintf("%ds", *d)
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
