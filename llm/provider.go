// Provider contract for the model invocation service.
//
// Each adapter hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific tool-call encoding

package llm

import "context"

// Invocation is the outcome of one model call: the assistant message the
// model produced plus token accounting when the vendor reports it.
type Invocation struct {
	Message ChatMessage
	Usage   *TokenUsage
}

// Provider invokes a model with a message sequence and the tools bound to
// the run. The returned message carries any tool calls the model requested.
// Callers own retry policy; adapters report failures as plain errors.
type Provider interface {
	// Name returns the vendor name (for logging).
	Name() string

	// Model returns the model identifier in use.
	Model() string

	// Invoke sends one completion request. tools may be nil when the run
	// has no registry bound.
	Invoke(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Invocation, error)
}
