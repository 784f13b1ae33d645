// Package tools provides the tool abstraction, a registry of available
// tools, and the engine that executes model-requested tool calls in
// parallel with hook pipelines applied around each call.
//
// Information Hiding:
// - Registry locking internal
// - Engine fan-out and per-call isolation internal
// - Hook staging order encapsulated in the engine
package tools

import (
	"context"
	"encoding/json"
)

// Tool is a capability the model can invoke by name.
type Tool interface {
	// Name returns the unique tool name presented to the model.
	Name() string

	// Description explains what the tool does, for the model's benefit.
	Description() string

	// Parameters returns the JSON Schema of the tool's arguments.
	Parameters() map[string]any

	// Invoke runs the tool with raw JSON arguments and returns its result.
	Invoke(ctx context.Context, args json.RawMessage) (string, error)
}

// Func adapts a plain function into a Tool.
type Func struct {
	ToolName        string
	ToolDescription string
	ToolParameters  map[string]any
	Fn              func(ctx context.Context, args json.RawMessage) (string, error)
}

func (f Func) Name() string               { return f.ToolName }
func (f Func) Description() string        { return f.ToolDescription }
func (f Func) Parameters() map[string]any { return f.ToolParameters }

func (f Func) Invoke(ctx context.Context, args json.RawMessage) (string, error) {
	return f.Fn(ctx, args)
}
