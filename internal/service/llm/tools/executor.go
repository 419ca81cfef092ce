package tools

import "context"

// ToolExecutor defines the interface for executing a tool.
// Implementations must be thread-safe and respect context cancellation.
type ToolExecutor interface {
	// Execute runs the tool with the given input parameters.
	// The input map contains the tool-specific parameters as specified in the tool schema.
	// The returned interface{} must be JSON-serializable (maps, slices, primitives).
	// User-level failures (bad input, missing scene) are returned as a result
	// with success=false; an error means the tool could not run at all.
	Execute(ctx context.Context, input map[string]interface{}) (interface{}, error)
}

// ToolDefinition describes a tool to the model.
// Parameters is a JSON Schema object.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// DefinedTool is a ToolExecutor that can describe itself.
type DefinedTool interface {
	ToolExecutor
	Definition() ToolDefinition
}
