package llm

import (
	"fmt"
	"strings"
)

// ModelInfo contains parsed provider and model information
type ModelInfo struct {
	Provider string // "kimi", "qwen", or "" when it could not be inferred
	Model    string // Model identifier for that provider
}

// ParseModel extracts provider information from a model string
//
// Supported formats:
//   - "qwen/qwen-max" → {Provider: "qwen", Model: "qwen-max"}
//   - "kimi-k2-0905-preview" → {Provider: "kimi", Model: "kimi-k2-0905-preview"}
//   - "moonshot-v1-32k" → {Provider: "kimi", Model: "moonshot-v1-32k"}
//   - "qwen-plus" → {Provider: "qwen", Model: "qwen-plus"}
//
// Rules:
//   - If model contains "/" → split on first "/" to extract provider
//   - Else → infer provider from model prefix, leaving it empty when unknown
func ParseModel(modelStr string) (*ModelInfo, error) {
	modelStr = strings.TrimSpace(modelStr)
	if modelStr == "" {
		return nil, fmt.Errorf("model string cannot be empty")
	}

	if provider, model, ok := strings.Cut(modelStr, "/"); ok {
		if provider == "" {
			return nil, fmt.Errorf("provider cannot be empty in model string: %s", modelStr)
		}
		if model == "" {
			return nil, fmt.Errorf("model cannot be empty in model string: %s", modelStr)
		}
		return &ModelInfo{Provider: strings.ToLower(provider), Model: model}, nil
	}

	return &ModelInfo{
		Provider: inferProvider(modelStr),
		Model:    modelStr,
	}, nil
}

// inferProvider infers the provider from model name prefix
func inferProvider(model string) string {
	modelLower := strings.ToLower(model)

	switch {
	case strings.HasPrefix(modelLower, "kimi-"), strings.HasPrefix(modelLower, "moonshot-"):
		return "kimi"
	case strings.HasPrefix(modelLower, "qwen"):
		return "qwen"
	default:
		return ""
	}
}
