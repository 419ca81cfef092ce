package tools

import (
	"context"
	"fmt"
	"sync"
)

// ToolCall represents a single tool invocation request.
type ToolCall struct {
	ID    string                 `json:"id"`    // tool call id from the model
	Name  string                 `json:"name"`  // tool name
	Input map[string]interface{} `json:"input"` // tool parameters
}

// ToolResult represents the result of a tool execution.
type ToolResult struct {
	ID      string      `json:"id"`       // matches ToolCall.ID
	Name    string      `json:"name"`     // matches ToolCall.Name
	Result  interface{} `json:"result"`   // execution result (nil if error)
	Error   error       `json:"error"`    // execution error (nil if success)
	IsError bool        `json:"is_error"` // whether execution failed
}

// ToolRegistry manages tool executors and handles tool execution.
// It is thread-safe and can be used concurrently.
type ToolRegistry struct {
	mu        sync.RWMutex
	executors map[string]ToolExecutor
	order     []string
}

// NewToolRegistry creates a new tool registry.
func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{
		executors: make(map[string]ToolExecutor),
	}
}

// Register adds a tool executor to the registry.
// If a tool with the same name already exists, it will be replaced.
func (r *ToolRegistry) Register(name string, executor ToolExecutor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.executors[name]; !exists {
		r.order = append(r.order, name)
	}
	r.executors[name] = executor
}

// Get retrieves a tool executor by name.
// Returns nil if the tool is not registered.
func (r *ToolRegistry) Get(name string) ToolExecutor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.executors[name]
}

// Names returns registered tool names in registration order.
func (r *ToolRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...)
}

// Definitions returns the definitions of every self-describing tool,
// in registration order.
func (r *ToolRegistry) Definitions() []ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]ToolDefinition, 0, len(r.order))
	for _, name := range r.order {
		if dt, ok := r.executors[name].(DefinedTool); ok {
			defs = append(defs, dt.Definition())
		}
	}
	return defs
}

// Execute runs a single tool and returns the result.
// A missing tool, an execution error or a panic is reported in the result.
func (r *ToolRegistry) Execute(ctx context.Context, call ToolCall) (result ToolResult) {
	executor := r.Get(call.Name)
	if executor == nil {
		toolExecutions.WithLabelValues(call.Name, outcomeError).Inc()
		return ToolResult{
			ID:      call.ID,
			Name:    call.Name,
			Error:   fmt.Errorf("tool not found: %s", call.Name),
			IsError: true,
		}
	}

	defer func() {
		if p := recover(); p != nil {
			toolExecutions.WithLabelValues(call.Name, outcomeError).Inc()
			result = ToolResult{
				ID:      call.ID,
				Name:    call.Name,
				Error:   fmt.Errorf("tool %s panicked: %v", call.Name, p),
				IsError: true,
			}
		}
	}()

	timer := newToolTimer(call.Name)
	out, err := executor.Execute(ctx, call.Input)
	timer.observe()

	if err != nil {
		toolExecutions.WithLabelValues(call.Name, outcomeError).Inc()
		return ToolResult{
			ID:      call.ID,
			Name:    call.Name,
			Error:   err,
			IsError: true,
		}
	}

	toolExecutions.WithLabelValues(call.Name, outcomeOf(out)).Inc()
	return ToolResult{
		ID:     call.ID,
		Name:   call.Name,
		Result: out,
	}
}
