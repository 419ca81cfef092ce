package handler

import (
	"log/slog"
	"net/http"

	"storyboard/internal/capabilities"
	"storyboard/internal/config"
	"storyboard/internal/httputil"
)

// ModelsHandler handles HTTP requests for the chat model catalogue
type ModelsHandler struct {
	config   *config.Config
	logger   *slog.Logger
	registry *capabilities.Registry
}

// NewModelsHandler creates a new models handler
func NewModelsHandler(cfg *config.Config, logger *slog.Logger, registry *capabilities.Registry) *ModelsHandler {
	return &ModelsHandler{
		config:   cfg,
		logger:   logger,
		registry: registry,
	}
}

// ProviderResponse represents a provider with its models
type ProviderResponse struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Models []ModelResponse `json:"models"`
}

// ModelResponse represents a model's capabilities for the API response
type ModelResponse struct {
	ID            string           `json:"id"`
	DisplayName   string           `json:"display_name"`
	Description   string           `json:"description,omitempty"`
	ContextWindow int              `json:"context_window"`
	Capabilities  CapabilitiesInfo `json:"capabilities"`
}

// CapabilitiesInfo represents model capabilities
type CapabilitiesInfo struct {
	ToolCalls  string `json:"tool_calls"` // excellent, good, basic
	ImageInput bool   `json:"image_input"`
	Thinking   bool   `json:"thinking"`
}

// ModelsResponse is the catalogue plus the model used when a request names none
type ModelsResponse struct {
	DefaultModel string             `json:"default_model"`
	Providers    []ProviderResponse `json:"providers"`
}

// ListModels returns the tool-capable models of every configured provider
// GET /api/models
func (h *ModelsHandler) ListModels(w http.ResponseWriter, r *http.Request) {
	providers := []ProviderResponse{}

	if h.config.KimiAPIKey != "" {
		providers = h.appendProvider(providers, "kimi", "Moonshot Kimi")
	}
	if h.config.QwenAPIKey != "" {
		providers = h.appendProvider(providers, "qwen", "Alibaba Qwen")
	}

	httputil.RespondJSON(w, http.StatusOK, ModelsResponse{
		DefaultModel: h.config.DefaultModel,
		Providers:    providers,
	})
}

func (h *ModelsHandler) appendProvider(providers []ProviderResponse, id, name string) []ProviderResponse {
	models, err := h.registry.ListProviderModels(id)
	if err != nil {
		h.logger.Warn("provider has no capability file", "provider", id, "error", err)
		return providers
	}

	resp := ProviderResponse{ID: id, Name: name, Models: []ModelResponse{}}
	for _, m := range models {
		if !m.SupportsTools {
			continue
		}
		resp.Models = append(resp.Models, ModelResponse{
			ID:            m.ID,
			DisplayName:   m.DisplayName,
			Description:   m.Description,
			ContextWindow: m.ContextWindow,
			Capabilities: CapabilitiesInfo{
				ToolCalls:  string(m.ToolCallQuality),
				ImageInput: m.SupportsVision,
				Thinking:   m.SupportsThinking,
			},
		})
	}
	return append(providers, resp)
}
