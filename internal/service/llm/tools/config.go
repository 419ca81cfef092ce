package tools

import (
	"storyboard/internal/config"
	"storyboard/internal/domain/models"
)

// ToolConfig centralizes configuration for all tools.
type ToolConfig struct {
	// MaxPromptLength bounds generateImage prompts
	MaxPromptLength int

	// DefaultImageSize is used when generateImage gets no size
	DefaultImageSize string

	// ContentPreviewLength is how much scene content is echoed back in messages
	ContentPreviewLength int

	// ImageURLPreviewLength is how much of a stored data URL is returned to the model
	ImageURLPreviewLength int
}

// DefaultToolConfig returns the default tool configuration.
func DefaultToolConfig() *ToolConfig {
	return &ToolConfig{
		MaxPromptLength:       config.MaxImagePromptLength,
		DefaultImageSize:      models.DefaultGenerationSize,
		ContentPreviewLength:  100,
		ImageURLPreviewLength: 50,
	}
}
