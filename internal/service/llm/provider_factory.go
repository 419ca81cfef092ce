package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sashabaranov/go-openai"

	"storyboard/internal/capabilities"
	"storyboard/internal/config"
	"storyboard/internal/domain"
)

// CompletionStream is an open streaming chat completion.
type CompletionStream interface {
	Recv() (openai.ChatCompletionStreamResponse, error)
	Close() error
}

// ChatClient opens streaming chat completions against one provider.
type ChatClient interface {
	CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error)
}

// openAIClient adapts go-openai to ChatClient. Kimi and Qwen both speak
// the OpenAI chat completions protocol.
type openAIClient struct {
	client *openai.Client
}

// NewOpenAICompatibleClient creates a ChatClient for an OpenAI compatible endpoint.
func NewOpenAICompatibleClient(apiKey, baseURL string) ChatClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &openAIClient{client: openai.NewClientWithConfig(cfg)}
}

func (c *openAIClient) CreateChatCompletionStream(ctx context.Context, req openai.ChatCompletionRequest) (CompletionStream, error) {
	stream, err := c.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}
	return stream, nil
}

// ProviderFactory maps model ids to configured provider clients
type ProviderFactory struct {
	clients         map[string]ChatClient
	registry        *capabilities.Registry
	defaultProvider string
	defaultModel    string
	logger          *slog.Logger
}

// NewProviderFactory creates clients for every provider that has an API key.
// registry may be nil, in which case only the default model is accepted.
func NewProviderFactory(cfg *config.Config, registry *capabilities.Registry, logger *slog.Logger) *ProviderFactory {
	f := &ProviderFactory{
		clients:         make(map[string]ChatClient),
		registry:        registry,
		defaultProvider: cfg.DefaultProvider,
		defaultModel:    cfg.DefaultModel,
		logger:          logger,
	}

	if cfg.KimiAPIKey != "" {
		f.Register("kimi", NewOpenAICompatibleClient(cfg.KimiAPIKey, cfg.KimiBaseURL))
	}
	if cfg.QwenAPIKey != "" {
		f.Register("qwen", NewOpenAICompatibleClient(cfg.QwenAPIKey, cfg.QwenBaseURL))
	}
	if len(f.clients) == 0 {
		logger.Warn("no chat provider configured, set KIMI_API_KEY or QWEN_API_KEY")
	}

	return f
}

// Register adds or replaces the client for a provider
func (f *ProviderFactory) Register(provider string, client ChatClient) {
	f.clients[provider] = client
}

// Configured reports whether at least one provider has a client
func (f *ProviderFactory) Configured() bool {
	return len(f.clients) > 0
}

// Resolve returns the client and model id to use for a requested model.
// An empty model selects the configured default. "provider/model" pins the
// provider explicitly.
func (f *ProviderFactory) Resolve(model string) (ChatClient, string, error) {
	provider := f.defaultProvider
	if model == "" || model == f.defaultModel {
		model = f.defaultModel
	} else {
		info, err := ParseModel(model)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		caps, err := f.lookup(info)
		if err != nil {
			return nil, "", err
		}
		if !caps.SupportsTools {
			return nil, "", fmt.Errorf("%w: model %s does not support tool calling", domain.ErrValidation, info.Model)
		}
		provider, model = caps.Provider, caps.ID
	}

	client, ok := f.clients[provider]
	if !ok {
		return nil, "", &domain.UpstreamError{Provider: provider, Err: errors.New("provider is not configured")}
	}
	return client, model, nil
}

func (f *ProviderFactory) lookup(info *ModelInfo) (*capabilities.ModelCapabilities, error) {
	if f.registry != nil {
		if info.Provider != "" {
			if caps, err := f.registry.GetModelCapabilities(info.Provider, info.Model); err == nil {
				return caps, nil
			}
		} else if caps, ok := f.registry.FindModel(info.Model); ok {
			return caps, nil
		}
	}
	return nil, fmt.Errorf("%w: unknown model %s", domain.ErrValidation, info.Model)
}
