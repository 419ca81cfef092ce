package tools

import (
	"log/slog"

	"storyboard/internal/domain/services"
	"storyboard/internal/service/llm/tools/external"
)

// ToolRegistryBuilder provides a fluent API for building per-request tool registries.
type ToolRegistryBuilder struct {
	registry *ToolRegistry
	config   *ToolConfig
}

// NewToolRegistryBuilder creates a new builder with a fresh registry.
func NewToolRegistryBuilder() *ToolRegistryBuilder {
	return &ToolRegistryBuilder{
		registry: NewToolRegistry(),
		config:   DefaultToolConfig(),
	}
}

// WithConfig sets custom tool configuration.
// If not called, defaults will be used.
func (b *ToolRegistryBuilder) WithConfig(config *ToolConfig) *ToolRegistryBuilder {
	if config != nil {
		b.config = config
	}
	return b
}

// WithSceneTools registers getScenes, addScene, updateSceneContent and
// updateSceneDetails, all acting as userID.
func (b *ToolRegistryBuilder) WithSceneTools(userID string, scenes services.SceneService) *ToolRegistryBuilder {
	b.registry.Register("getScenes", NewGetScenesTool(userID, scenes, b.config))
	b.registry.Register("addScene", NewAddSceneTool(userID, scenes, b.config))
	b.registry.Register("updateSceneContent", NewUpdateSceneContentTool(userID, scenes, b.config))
	b.registry.Register("updateSceneDetails", NewUpdateSceneDetailsTool(userID, scenes, b.config))
	return b
}

// WithImageGeneration registers generateImage.
// Only registers if a generator is provided.
func (b *ToolRegistryBuilder) WithImageGeneration(
	userID string,
	scenes services.SceneService,
	generator external.ImageGenerator,
	fetcher ImageFetcher,
	logger *slog.Logger,
) *ToolRegistryBuilder {
	if generator != nil && fetcher != nil {
		b.registry.Register("generateImage", NewGenerateImageTool(userID, scenes, generator, fetcher, b.config, logger))
	}
	return b
}

// Build returns the constructed tool registry.
func (b *ToolRegistryBuilder) Build() *ToolRegistry {
	return b.registry
}
