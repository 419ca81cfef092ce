package llm

import (
	"errors"
	"io"
	"sort"
	"strings"

	"github.com/sashabaranov/go-openai"

	"storyboard/internal/domain/services"
)

// StepAccumulator collects the streamed deltas of one model step into the
// assistant message, forwarding text and reasoning deltas as they arrive.
//
// Tool call fragments are keyed by their stream index. The first fragment
// carries id and name; later ones only append argument JSON.
//
// Thread-safety: NOT thread-safe. Used by the goroutine running the turn.
type StepAccumulator struct {
	text         strings.Builder
	calls        map[int]*openai.ToolCall
	lastIndex    int
	finishReason openai.FinishReason
}

// NewStepAccumulator creates an empty accumulator.
func NewStepAccumulator() *StepAccumulator {
	return &StepAccumulator{
		calls:     make(map[int]*openai.ToolCall),
		lastIndex: -1,
	}
}

// Consume reads the stream until EOF, emitting deltas through emit.
// An emit error stops consumption and is returned as is.
func (acc *StepAccumulator) Consume(stream CompletionStream, emit services.ChatEventSink) error {
	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		for _, choice := range resp.Choices {
			if err := acc.process(choice, emit); err != nil {
				return err
			}
		}
	}
}

func (acc *StepAccumulator) process(choice openai.ChatCompletionStreamChoice, emit services.ChatEventSink) error {
	delta := choice.Delta

	if delta.ReasoningContent != "" {
		if err := emit(services.ChatEvent{Type: services.ChatEventReasoningDelta, Delta: delta.ReasoningContent}); err != nil {
			return err
		}
	}

	if delta.Content != "" {
		acc.text.WriteString(delta.Content)
		if err := emit(services.ChatEvent{Type: services.ChatEventTextDelta, Delta: delta.Content}); err != nil {
			return err
		}
	}

	for _, tc := range delta.ToolCalls {
		acc.addToolCallDelta(tc)
	}

	if choice.FinishReason != "" {
		acc.finishReason = choice.FinishReason
	}
	return nil
}

func (acc *StepAccumulator) addToolCallDelta(tc openai.ToolCall) {
	index := acc.lastIndex
	switch {
	case tc.Index != nil:
		index = *tc.Index
	case tc.ID != "" || index < 0:
		index = len(acc.calls)
	}
	acc.lastIndex = index

	call, ok := acc.calls[index]
	if !ok {
		call = &openai.ToolCall{Type: openai.ToolTypeFunction}
		acc.calls[index] = call
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Function.Name = tc.Function.Name
	}
	call.Function.Arguments += tc.Function.Arguments
}

// Text returns the accumulated assistant text.
func (acc *StepAccumulator) Text() string {
	return acc.text.String()
}

// ToolCalls returns the complete tool calls in stream order.
// Arguments default to "{}" when the model sent none.
func (acc *StepAccumulator) ToolCalls() []openai.ToolCall {
	indexes := make([]int, 0, len(acc.calls))
	for i := range acc.calls {
		indexes = append(indexes, i)
	}
	sort.Ints(indexes)

	out := make([]openai.ToolCall, 0, len(indexes))
	for _, i := range indexes {
		call := *acc.calls[i]
		call.Index = nil
		if strings.TrimSpace(call.Function.Arguments) == "" {
			call.Function.Arguments = "{}"
		}
		out = append(out, call)
	}
	return out
}

// FinishReason returns the provider's finish reason for the step.
func (acc *StepAccumulator) FinishReason() openai.FinishReason {
	return acc.finishReason
}

// Message returns the assistant message to append to the conversation.
func (acc *StepAccumulator) Message() openai.ChatCompletionMessage {
	return openai.ChatCompletionMessage{
		Role:      openai.ChatMessageRoleAssistant,
		Content:   acc.Text(),
		ToolCalls: acc.ToolCalls(),
	}
}
