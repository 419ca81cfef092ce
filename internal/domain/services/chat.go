package services

import "context"

// ChatMessage is one turn of conversation history sent by the client
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is one inbound conversation turn
type ChatRequest struct {
	UserID    string        `json:"-"`
	ProjectID string        `json:"projectId"`
	Messages  []ChatMessage `json:"messages"`
	Model     string        `json:"model,omitempty"`
}

// Chat stream event types
const (
	ChatEventTextDelta      = "text-delta"
	ChatEventReasoningDelta = "reasoning-delta"
	ChatEventToolCall       = "tool-call"
	ChatEventToolResult     = "tool-result"
	ChatEventStepFinish     = "step-finish"
	ChatEventFinish         = "finish"
	ChatEventError          = "error"
)

// ChatEvent is one item of the streamed response
type ChatEvent struct {
	Type       string      `json:"type"`
	Delta      string      `json:"delta,omitempty"`
	ToolCallID string      `json:"toolCallId,omitempty"`
	ToolName   string      `json:"toolName,omitempty"`
	Input      interface{} `json:"input,omitempty"`
	Output     interface{} `json:"output,omitempty"`
	Step       int         `json:"step,omitempty"`
	Reason     string      `json:"finishReason,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// ChatEventSink receives stream events in order. A returned error stops the turn.
type ChatEventSink func(event ChatEvent) error

// ChatService runs one conversation turn against the LLM provider,
// executing tool calls server side.
type ChatService interface {
	StreamTurn(ctx context.Context, req *ChatRequest, sink ChatEventSink) error
}
