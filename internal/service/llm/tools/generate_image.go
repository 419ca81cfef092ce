package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
	"storyboard/internal/imagedata"
	"storyboard/internal/service/llm/tools/external"
)

// ImageFetcher downloads a generated image.
type ImageFetcher interface {
	Fetch(ctx context.Context, src string) (*imagedata.Image, error)
}

// GenerateImageTool generates an image for a scene and stores it inline.
type GenerateImageTool struct {
	sceneTool
	generator external.ImageGenerator
	fetcher   ImageFetcher
	logger    *slog.Logger
}

// NewGenerateImageTool creates a new GenerateImageTool instance.
func NewGenerateImageTool(
	userID string,
	scenes services.SceneService,
	generator external.ImageGenerator,
	fetcher ImageFetcher,
	config *ToolConfig,
	logger *slog.Logger,
) *GenerateImageTool {
	return &GenerateImageTool{
		sceneTool: newSceneTool(userID, scenes, config),
		generator: generator,
		fetcher:   fetcher,
		logger:    logger,
	}
}

// Definition implements DefinedTool.
func (t *GenerateImageTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name: "generateImage",
		Description: "Generate an AI image for a storyboard scene. The image is saved to the scene automatically. " +
			"Only use the exact supported sizes: 1024*1024, 720*1280, 1280*720 or 768*1152.",
		Parameters: objectSchema(map[string]interface{}{
			"sceneId": stringProp("The UUID of the scene to generate an image for"),
			"prompt": map[string]interface{}{
				"type":        "string",
				"maxLength":   t.config.MaxPromptLength,
				"description": "Detailed visual description of the image",
			},
			"imageSize": map[string]interface{}{
				"type":        "string",
				"enum":        allowedSizes(),
				"default":     t.config.DefaultImageSize,
				"description": "Image size in pixels: 1024*1024 (square), 720*1280 (portrait), 1280*720 (landscape), 768*1152 (portrait)",
			},
		}, "sceneId", "prompt"),
	}
}

type generateImageParams struct {
	SceneID   string `json:"sceneId"`
	Prompt    string `json:"prompt"`
	ImageSize string `json:"imageSize"`
}

// Execute implements ToolExecutor interface.
// On any failure the scene image is left unchanged.
func (t *GenerateImageTool) Execute(ctx context.Context, input map[string]interface{}) (interface{}, error) {
	var p generateImageParams
	if err := decodeInput(input, &p); err != nil {
		return t.failure(err, ""), nil
	}
	if p.ImageSize == "" {
		p.ImageSize = t.config.DefaultImageSize
	}

	err := validation.ValidateStruct(&p,
		validation.Field(&p.SceneID, validation.Required, is.UUID),
		validation.Field(&p.Prompt, validation.Required, validation.RuneLength(1, t.config.MaxPromptLength)),
		validation.Field(&p.ImageSize, validation.In(allowedSizes()...)),
	)
	if err != nil {
		return t.failure(err, p.SceneID), nil
	}

	// Check ownership before spending a generation
	if _, err := t.scenes.GetScene(ctx, p.SceneID, t.userID); err != nil {
		return t.failure(err, p.SceneID), nil
	}

	t.logger.Info("generating image", "scene_id", p.SceneID, "size", p.ImageSize)

	generated, err := t.generator.Generate(ctx, external.ImageRequest{Prompt: p.Prompt, Size: p.ImageSize})
	if err != nil {
		imageGenerations.WithLabelValues(generationOutcome(err)).Inc()
		t.logger.Warn("image generation failed", "scene_id", p.SceneID, "error", err)
		return t.failure(err, p.SceneID), nil
	}

	img, err := t.fetcher.Fetch(ctx, generated.URL)
	if err != nil {
		imageGenerations.WithLabelValues("download_failed").Inc()
		t.logger.Warn("image download failed", "scene_id", p.SceneID, "task_id", generated.TaskID, "error", err)
		return t.failure(err, p.SceneID), nil
	}

	dataURL := img.DataURL()
	if _, err := t.scenes.UpdateScene(ctx, p.SceneID, t.userID, &models.SceneUpdate{ImageURL: &dataURL}); err != nil {
		imageGenerations.WithLabelValues("save_failed").Inc()
		return t.failure(err, p.SceneID), nil
	}

	imageGenerations.WithLabelValues(outcomeSuccess).Inc()
	t.logger.Info("image saved", "scene_id", p.SceneID, "task_id", generated.TaskID, "bytes", len(img.Data))

	return successResult(map[string]interface{}{
		"sceneId":  p.SceneID,
		"imageUrl": truncate(dataURL, t.config.ImageURLPreviewLength),
	}, "Image generated and saved to the scene"), nil
}

func (t *GenerateImageTool) failure(err error, sceneID string) map[string]interface{} {
	return failureResult(err,
		fmt.Sprintf("Image generation failed\n\nReason: %s\n\nCheck that the image API key is valid and the image service is enabled.", describeError(err)),
		map[string]interface{}{"sceneId": sceneID})
}

func allowedSizes() []interface{} {
	sizes := make([]interface{}, len(models.AllowedImageSizes))
	for i, s := range models.AllowedImageSizes {
		sizes[i] = s
	}
	return sizes
}

func generationOutcome(err error) string {
	var failed *external.TaskFailedError
	switch {
	case errors.As(err, &failed):
		return "task_failed"
	case errors.Is(err, external.ErrTaskTimeout):
		return "timeout"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "error"
	}
}

// truncate cuts s to n bytes and appends "..."
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
