package llm

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sashabaranov/go-openai"

	"storyboard/internal/domain"
	"storyboard/internal/domain/models"
	"storyboard/internal/domain/services"
)

const (
	testUser    = "user-1"
	testProject = "11111111-1111-4111-8111-111111111111"
	testScene   = "22222222-2222-4222-8222-222222222222"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedStream replays chunks, then io.EOF or err
type scriptedStream struct {
	chunks []openai.ChatCompletionStreamResponse
	err    error
	pos    int
	closed bool
}

func (s *scriptedStream) Recv() (openai.ChatCompletionStreamResponse, error) {
	if s.pos >= len(s.chunks) {
		if s.err != nil {
			return openai.ChatCompletionStreamResponse{}, s.err
		}
		return openai.ChatCompletionStreamResponse{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *scriptedStream) Close() error {
	s.closed = true
	return nil
}

// scriptedClient answers each request with the next scripted step.
// openErrs are returned, in order, before any step is served.
type scriptedClient struct {
	mu       sync.Mutex
	steps    []*scriptedStream
	repeat   *scriptedStream // served forever once steps run out
	openErrs []error
	requests []openai.ChatCompletionRequest
	opens    int
}

func (c *scriptedClient) CreateChatCompletionStream(_ context.Context, req openai.ChatCompletionRequest) (CompletionStream, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opens++

	if len(c.openErrs) > 0 {
		err := c.openErrs[0]
		c.openErrs = c.openErrs[1:]
		return nil, err
	}

	snapshot := req
	snapshot.Messages = append([]openai.ChatCompletionMessage(nil), req.Messages...)
	c.requests = append(c.requests, snapshot)

	if len(c.steps) > 0 {
		s := c.steps[0]
		c.steps = c.steps[1:]
		return s, nil
	}
	if c.repeat != nil {
		cp := *c.repeat
		return &cp, nil
	}
	return nil, fmt.Errorf("no scripted step left")
}

func textChunk(text string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{Choices: []openai.ChatCompletionStreamChoice{{
		Delta: openai.ChatCompletionStreamChoiceDelta{Content: text},
	}}}
}

func reasoningChunk(text string) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{Choices: []openai.ChatCompletionStreamChoice{{
		Delta: openai.ChatCompletionStreamChoiceDelta{ReasoningContent: text},
	}}}
}

func toolChunk(index int, id, name, args string) openai.ChatCompletionStreamResponse {
	i := index
	return openai.ChatCompletionStreamResponse{Choices: []openai.ChatCompletionStreamChoice{{
		Delta: openai.ChatCompletionStreamChoiceDelta{ToolCalls: []openai.ToolCall{{
			Index:    &i,
			ID:       id,
			Type:     openai.ToolTypeFunction,
			Function: openai.FunctionCall{Name: name, Arguments: args},
		}}},
	}}}
}

func finishChunk(reason openai.FinishReason) openai.ChatCompletionStreamResponse {
	return openai.ChatCompletionStreamResponse{Choices: []openai.ChatCompletionStreamChoice{{FinishReason: reason}}}
}

func step(chunks ...openai.ChatCompletionStreamResponse) *scriptedStream {
	return &scriptedStream{chunks: chunks}
}

type fakeProjects struct {
	services.ProjectService
	project *models.Project
}

func (f *fakeProjects) GetProject(_ context.Context, id, userID string) (*models.Project, error) {
	if f.project == nil || f.project.ID != id || f.project.UserID != userID {
		return nil, fmt.Errorf("project %s: %w", id, domain.ErrNotFound)
	}
	cp := *f.project
	return &cp, nil
}

// fakeScenes serves one project's scenes and records updates
type fakeScenes struct {
	services.SceneService
	mu          sync.Mutex
	scenes      []models.Scene
	updates     []models.SceneUpdate
	updateCtxOK []bool
	onUpdate    func()
}

func (f *fakeScenes) ListScenes(_ context.Context, projectID, userID string) ([]models.Scene, error) {
	if projectID != testProject || userID != testUser {
		return nil, fmt.Errorf("project %s: %w", projectID, domain.ErrForbidden)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.Scene(nil), f.scenes...), nil
}

func (f *fakeScenes) GetScene(_ context.Context, id, userID string) (*models.Scene, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.scenes {
		if f.scenes[i].ID == id && userID == testUser {
			cp := f.scenes[i]
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("scene %s: %w", id, domain.ErrNotFound)
}

func (f *fakeScenes) UpdateScene(ctx context.Context, id, userID string, u *models.SceneUpdate) (*models.Scene, error) {
	if f.onUpdate != nil {
		f.onUpdate()
	}
	sc, err := f.GetScene(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, *u)
	f.updateCtxOK = append(f.updateCtxOK, ctx.Err() == nil)
	for i := range f.scenes {
		if f.scenes[i].ID == id && u.Content != nil {
			f.scenes[i].Content = *u.Content
		}
	}
	return sc, nil
}
