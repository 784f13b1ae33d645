// Package hooks lets external code observe or mutate turn data at fixed
// extension points without destabilizing the main loop. Interceptors may
// rewrite data or short-circuit a tool call; breakpoints only observe.
// Both pipelines are fail-open: a hook failure never aborts the turn.
//
// Information Hiding:
// - Per-key mutual exclusion mechanics hidden
// - Concurrency-slot accounting hidden
// - Timeout/detach behavior of breakpoints encapsulated
package hooks

import (
	"context"

	"github.com/richinex/ixion/llm"
)

// Stage names an execution point in the turn lifecycle.
type Stage int

const (
	StageBeforeModel Stage = iota
	StageAfterModel
	StageBeforeTool
	StageAfterTool
	StageAfterComplete
)

// String returns the stage's name.
func (s Stage) String() string {
	switch s {
	case StageBeforeModel:
		return "before_model"
	case StageAfterModel:
		return "after_model"
	case StageBeforeTool:
		return "before_tool"
	case StageAfterTool:
		return "after_tool"
	case StageAfterComplete:
		return "after_complete"
	default:
		return "unknown"
	}
}

// Decision is the two-variant result of a before-tool interceptor: either
// short-circuit with a ready result, or continue with a possibly rewritten
// call.
type Decision struct {
	shortCircuit bool
	result       string
	call         llm.ToolCall
}

// ShortCircuit skips the real tool invocation and uses result directly.
func ShortCircuit(result string) Decision {
	return Decision{shortCircuit: true, result: result}
}

// Continue proceeds with the given (possibly rewritten) call.
func Continue(call llm.ToolCall) Decision {
	return Decision{call: call}
}

// ShortCircuited reports whether the decision carries a ready result.
func (d Decision) ShortCircuited() (string, bool) {
	return d.result, d.shortCircuit
}

// Call returns the call the decision applies to. For a short-circuit built
// by a hook the call is attached by the caller via WithCall, so later hook
// stages still see the call that was skipped.
func (d Decision) Call() llm.ToolCall {
	return d.call
}

// WithCall returns a copy of d carrying call. A hook returning ShortCircuit
// has no call in hand; attaching it here keeps the call's identity stable
// through the remaining stages.
func (d Decision) WithCall(call llm.ToolCall) Decision {
	d.call = call
	return d
}

// Hook function shapes, one per extension point.
type (
	// MessagesInterceptor may rewrite a message sequence (before-model,
	// after-complete core points).
	MessagesInterceptor func(ctx context.Context, messages []llm.ChatMessage) ([]llm.ChatMessage, error)

	// MessagesObserver watches a message sequence without modifying it.
	MessagesObserver func(ctx context.Context, messages []llm.ChatMessage) error

	// ResponseObserver watches the raw model response.
	ResponseObserver func(ctx context.Context, response llm.ChatMessage) error

	// CallInterceptor may rewrite or short-circuit a tool call.
	CallInterceptor func(ctx context.Context, call llm.ToolCall) (Decision, error)

	// CallObserver watches a tool call about to run.
	CallObserver func(ctx context.Context, call llm.ToolCall) error

	// ResultInterceptor may rewrite a tool call's result.
	ResultInterceptor func(ctx context.Context, call llm.ToolCall, result string) (string, error)

	// ResultObserver watches a tool call's result.
	ResultObserver func(ctx context.Context, call llm.ToolCall, result string) error
)

// ToolHooks holds the hooks for one tool scope (global or a specific tool).
type ToolHooks struct {
	BeforeIntercept CallInterceptor
	BeforeObserve   CallObserver
	AfterIntercept  ResultInterceptor
	AfterObserve    ResultObserver
}

// Config declares which hooks are attached where. Core points hold at most
// one hook each by construction; tool-specific hooks are keyed by tool name.
// The zero value is a valid, fully disabled configuration.
type Config struct {
	Enabled bool

	// Core scope, applied once per run.
	BeforeModelIntercept   MessagesInterceptor
	BeforeModelObserve     MessagesObserver
	AfterModelObserve      ResponseObserver
	AfterCompleteIntercept MessagesInterceptor
	AfterCompleteObserve   MessagesObserver

	// Global scope, applied to every tool call.
	Global ToolHooks

	// Tool scope, applied only to calls for the named tool.
	Tools map[string]ToolHooks
}

// ForTool returns the tool-specific hooks for name, if any.
func (c *Config) ForTool(name string) (ToolHooks, bool) {
	if c == nil || c.Tools == nil {
		return ToolHooks{}, false
	}
	th, ok := c.Tools[name]
	return th, ok
}

// Active reports whether hooks are enabled at all.
func (c *Config) Active() bool {
	return c != nil && c.Enabled
}
