package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/sashabaranov/go-openai"

	"storyboard/internal/config"
	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
	"storyboard/internal/service/llm/tools"
	"storyboard/internal/service/llm/tools/external"
)

// ChatConfig bounds a single chat turn
type ChatConfig struct {
	MaxSteps    int
	Temperature float32
	MaxRetries  int
	RetryDelay  time.Duration
	Tools       *tools.ToolConfig
}

// DefaultChatConfig returns the limits from config/limits.go
func DefaultChatConfig() ChatConfig {
	return ChatConfig{
		MaxSteps:    config.MaxChatSteps,
		Temperature: config.ChatTemperature,
		MaxRetries:  config.MaxChatRetries,
		RetryDelay:  500 * time.Millisecond,
		Tools:       tools.DefaultToolConfig(),
	}
}

// chatService implements the ChatService interface
type chatService struct {
	providers *ProviderFactory
	projects  services.ProjectService
	scenes    services.SceneService
	images    external.ImageGenerator
	fetcher   tools.ImageFetcher
	config    ChatConfig
	logger    *slog.Logger
}

// NewChatService creates a new chat service.
// images and fetcher may be nil, which disables the generateImage tool.
func NewChatService(
	providers *ProviderFactory,
	projects services.ProjectService,
	scenes services.SceneService,
	images external.ImageGenerator,
	fetcher tools.ImageFetcher,
	cfg ChatConfig,
	logger *slog.Logger,
) services.ChatService {
	if cfg.MaxSteps <= 0 {
		cfg.MaxSteps = config.MaxChatSteps
	}
	return &chatService{
		providers: providers,
		projects:  projects,
		scenes:    scenes,
		images:    images,
		fetcher:   fetcher,
		config:    cfg,
		logger:    logger,
	}
}

// StreamTurn validates the request, then runs model steps until the model
// stops calling tools or MaxSteps is reached.
//
// Errors before the first model request are returned without emitting any
// event. Errors after that are also reported as an "error" event.
// Cancelling ctx stops streaming; a tool call already running completes.
func (s *chatService) StreamTurn(ctx context.Context, req *services.ChatRequest, sink services.ChatEventSink) error {
	if err := validateChatRequest(req); err != nil {
		return err
	}

	project, err := s.projects.GetProject(ctx, req.ProjectID, req.UserID)
	if err != nil {
		return err
	}

	client, model, err := s.providers.Resolve(req.Model)
	if err != nil {
		return err
	}

	scenes, err := s.scenes.ListScenes(ctx, project.ID, req.UserID)
	if err != nil {
		s.logger.Warn("scene index unavailable for system prompt", "project_id", project.ID, "error", err)
		scenes = nil
	}

	registry := tools.NewToolRegistryBuilder().
		WithConfig(s.config.Tools).
		WithSceneTools(req.UserID, s.scenes).
		WithImageGeneration(req.UserID, s.scenes, s.images, s.fetcher, s.logger).
		Build()

	turn := &turnRunner{
		service:  s,
		client:   client,
		registry: registry,
		sink:     sink,
		logger:   s.logger.With("project_id", project.ID, "user_id", req.UserID, "model", model),
		request: openai.ChatCompletionRequest{
			Model:       model,
			Messages:    buildMessages(project, scenes, req.Messages),
			Tools:       toOpenAITools(registry.Definitions()),
			Temperature: s.config.Temperature,
			Stream:      true,
		},
	}

	turn.logger.Info("chat turn started", "messages", len(req.Messages))
	outcome := "success"
	err = turn.run(ctx)
	if err != nil {
		outcome = "error"
		if ctx.Err() != nil {
			outcome = "cancelled"
		}
	}
	chatTurns.WithLabelValues(model, outcome).Inc()
	chatSteps.Observe(float64(turn.steps))
	return err
}

func validateChatRequest(req *services.ChatRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.ProjectID, validation.Required, is.UUID),
		validation.Field(&req.Messages, validation.Required, validation.Each(validation.By(validChatMessage))),
	)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	return nil
}

func validChatMessage(value interface{}) error {
	msg, ok := value.(services.ChatMessage)
	if !ok {
		return fmt.Errorf("invalid message")
	}
	return validation.ValidateStruct(&msg,
		validation.Field(&msg.Role, validation.Required, validation.In(
			openai.ChatMessageRoleUser,
			openai.ChatMessageRoleAssistant,
		)),
	)
}

func buildMessages(project *models.Project, scenes []models.Scene, history []services.ChatMessage) []openai.ChatCompletionMessage {
	messages := make([]openai.ChatCompletionMessage, 0, len(history)+1)
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: BuildSystemPrompt(project, scenes),
	})
	for _, m := range history {
		messages = append(messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}
	return messages
}

func toOpenAITools(defs []tools.ToolDefinition) []openai.Tool {
	out := make([]openai.Tool, len(defs))
	for i, def := range defs {
		out[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			},
		}
	}
	return out
}

// turnRunner holds the state of one streaming turn
type turnRunner struct {
	service  *chatService
	client   ChatClient
	registry *tools.ToolRegistry
	sink     services.ChatEventSink
	request  openai.ChatCompletionRequest
	logger   *slog.Logger
	steps    int
}

func (t *turnRunner) run(ctx context.Context) error {
	finishReason := "stop"

	for step := 1; step <= t.service.config.MaxSteps; step++ {
		t.steps = step

		acc, err := t.streamStep(ctx)
		if err != nil {
			return t.fail(ctx, err)
		}

		calls := acc.ToolCalls()
		t.request.Messages = append(t.request.Messages, acc.Message())
		finishReason = uiFinishReason(acc.FinishReason(), len(calls) > 0)

		t.logger.Debug("chat step finished", "step", step, "tool_calls", len(calls), "finish_reason", finishReason)

		if len(calls) > 0 {
			if err := t.runTools(ctx, calls); err != nil {
				return err
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		if err := t.sink(services.ChatEvent{Type: services.ChatEventStepFinish, Step: step, Reason: finishReason}); err != nil {
			return err
		}

		if len(calls) == 0 {
			break
		}
	}

	if t.steps >= t.service.config.MaxSteps && finishReason == "tool-calls" {
		t.logger.Warn("chat turn hit the step limit", "max_steps", t.service.config.MaxSteps)
	}

	t.logger.Info("chat turn finished", "steps", t.steps, "finish_reason", finishReason)
	return t.sink(services.ChatEvent{Type: services.ChatEventFinish, Reason: finishReason})
}

func (t *turnRunner) streamStep(ctx context.Context) (*StepAccumulator, error) {
	stream, err := t.service.openStream(ctx, t.client, t.request)
	if err != nil {
		return nil, err
	}
	defer func() { _ = stream.Close() }()

	acc := NewStepAccumulator()
	if err := acc.Consume(stream, t.sink); err != nil {
		return nil, err
	}
	return acc, nil
}

// runTools executes calls in order and appends their results to the conversation
func (t *turnRunner) runTools(ctx context.Context, calls []openai.ToolCall) error {
	// Tools finish even when the client goes away mid-call
	toolCtx := context.WithoutCancel(ctx)

	for _, call := range calls {
		input, parseErr := parseToolArguments(call.Function.Arguments)

		var eventInput interface{} = input
		if parseErr != nil {
			eventInput = call.Function.Arguments
		}
		if err := t.sink(services.ChatEvent{
			Type:       services.ChatEventToolCall,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			Input:      eventInput,
		}); err != nil {
			return err
		}

		var output interface{}
		if parseErr != nil {
			output = map[string]interface{}{
				"success": false,
				"error":   parseErr.Error(),
				"message": "Tool arguments were not valid JSON",
			}
		} else {
			result := t.registry.Execute(toolCtx, tools.ToolCall{ID: call.ID, Name: call.Function.Name, Input: input})
			output = result.Result
			if result.IsError {
				t.logger.Error("tool execution failed", "tool", call.Function.Name, "error", result.Error)
				output = map[string]interface{}{
					"success": false,
					"error":   result.Error.Error(),
					"message": "Tool execution failed",
				}
			}
		}

		content, err := json.Marshal(output)
		if err != nil {
			content = []byte(`{"success":false,"error":"result could not be encoded"}`)
		}
		t.request.Messages = append(t.request.Messages, openai.ChatCompletionMessage{
			Role:       openai.ChatMessageRoleTool,
			Content:    string(content),
			Name:       call.Function.Name,
			ToolCallID: call.ID,
		})

		if ctx.Err() != nil {
			// The client is gone; remaining results are kept for the log only
			t.logger.Info("client disconnected during tool execution", "tool", call.Function.Name)
			continue
		}
		if err := t.sink(services.ChatEvent{
			Type:       services.ChatEventToolResult,
			ToolCallID: call.ID,
			ToolName:   call.Function.Name,
			Output:     output,
		}); err != nil {
			return err
		}
	}
	return nil
}

// fail reports err to the client unless the client is already gone
func (t *turnRunner) fail(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		t.logger.Info("chat turn cancelled by client", "steps", t.steps)
		return ctx.Err()
	}
	t.logger.Error("chat turn failed", "steps", t.steps, "error", err)
	if sinkErr := t.sink(services.ChatEvent{Type: services.ChatEventError, Error: err.Error()}); sinkErr != nil {
		t.logger.Debug("could not deliver error event", "error", sinkErr)
	}
	return err
}

func parseToolArguments(raw string) (map[string]interface{}, error) {
	input := map[string]interface{}{}
	if raw == "" {
		return input, nil
	}
	if err := json.Unmarshal([]byte(raw), &input); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}
	return input, nil
}

// uiFinishReason maps provider finish reasons to the stream vocabulary
func uiFinishReason(reason openai.FinishReason, hasToolCalls bool) string {
	switch reason {
	case openai.FinishReasonToolCalls, openai.FinishReasonFunctionCall:
		return "tool-calls"
	case openai.FinishReasonLength:
		return "length"
	case openai.FinishReasonContentFilter:
		return "content-filter"
	case openai.FinishReasonStop:
		if hasToolCalls {
			return "tool-calls"
		}
		return "stop"
	default:
		if hasToolCalls {
			return "tool-calls"
		}
		return "stop"
	}
}
