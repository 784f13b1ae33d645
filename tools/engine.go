package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/ixion/faults"
	"github.com/richinex/ixion/hooks"
	"github.com/richinex/ixion/llm"
	"github.com/richinex/ixion/telemetry"
)

// EngineOptions configures an Engine. All fields are optional; a zero
// options value yields an engine that executes tools with no hooks and
// default logging.
type EngineOptions struct {
	Hooks        *hooks.Config
	Interceptors *hooks.Interceptors
	Breakpoints  *hooks.Breakpoints
	Recorder     *telemetry.Recorder
	Classifier   *faults.Classifier
	Logger       *slog.Logger
}

// Engine executes batches of model-requested tool calls in parallel.
// Each call runs in its own goroutine with panic isolation, wrapped in
// the configured hook stages. A failing call produces an error-text
// result for the model instead of failing the batch.
type Engine struct {
	registry     *Registry
	hooks        *hooks.Config
	interceptors *hooks.Interceptors
	breakpoints  *hooks.Breakpoints
	recorder     *telemetry.Recorder
	classifier   *faults.Classifier
	logger       *slog.Logger
}

// NewEngine builds an engine over the given registry.
func NewEngine(registry *Registry, opts EngineOptions) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		registry:     registry,
		hooks:        opts.Hooks,
		interceptors: opts.Interceptors,
		breakpoints:  opts.Breakpoints,
		recorder:     opts.Recorder,
		classifier:   opts.Classifier,
		logger:       logger.With("component", "engine"),
	}
}

// ExecuteBatch runs all calls concurrently and returns one tool-result
// message per call, in input order. Calls without an ID are assigned one
// so results stay correlated.
func (e *Engine) ExecuteBatch(ctx context.Context, calls []llm.ToolCall) []llm.ChatMessage {
	if len(calls) == 0 {
		return nil
	}

	results := make([]llm.ChatMessage, len(calls))
	var failures int
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, call := range calls {
		if call.ID == "" {
			call.ID = uuid.NewString()
		}
		wg.Add(1)
		go func(i int, call llm.ToolCall) {
			defer wg.Done()
			result, ok := e.executeOne(ctx, call)
			mu.Lock()
			results[i] = llm.ToolResultMessage(call.ID, result)
			if !ok {
				failures++
			}
			mu.Unlock()
		}(i, call)
	}
	wg.Wait()

	if failures > len(calls)/2 {
		e.logger.Warn("majority of tool batch failed",
			"failed", failures, "total", len(calls))
		if e.recorder != nil {
			e.recorder.Inc("engine.batch.systemic_failures")
		}
	}
	return results
}

// executeOne runs a single call through the hook stages and the tool
// itself. Returns the result text and whether the call succeeded. Every
// call is timed and counted under its requested tool name, including
// short-circuited and unknown-tool calls.
func (e *Engine) executeOne(ctx context.Context, call llm.ToolCall) (result string, ok bool) {
	start := time.Now()
	defer func() {
		if e.recorder != nil {
			e.recorder.RecordTool(call.Name, time.Since(start), ok)
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			err := faults.Runtimef("tool %s panicked: %v", call.Name, r)
			e.reportFailure(err, call)
			result, ok = err.Error(), false
		}
	}()

	tool, found := e.registry.Get(call.Name)
	if !found {
		e.logger.Warn("model requested unknown tool", "tool", call.Name)
		if e.recorder != nil {
			e.recorder.Inc("engine.unknown_tool")
		}
		return fmt.Sprintf("unknown tool: %s", call.Name), false
	}

	key := call.Name + ":" + call.ID
	global, _ := e.toolHooks("")
	specific, hasSpecific := e.toolHooks(call.Name)

	// Before stages, global scope first.
	decision := hooks.Continue(call)
	if e.hooksActive() {
		decision = e.interceptCall(ctx, key, global.BeforeIntercept, decision)
		e.observeCall(ctx, key+":before:global", global.BeforeObserve, decision)
		if hasSpecific {
			decision = e.interceptCall(ctx, key, specific.BeforeIntercept, decision)
			e.observeCall(ctx, key+":before:tool", specific.BeforeObserve, decision)
		}
	}

	// Resolve: either a short-circuit result or the real invocation.
	if sc, shorted := decision.ShortCircuited(); shorted {
		result = sc
		ok = true
	} else {
		var err error
		result, err = e.invoke(ctx, tool, decision.Call())
		ok = err == nil
		if err != nil {
			e.reportFailure(err, call)
			result = err.Error()
		}
	}

	// After stages, tool scope first, mirroring the before order.
	if e.hooksActive() {
		if hasSpecific {
			result = e.interceptResult(ctx, key, specific.AfterIntercept, decision.Call(), result)
			e.observeResult(ctx, key+":after:tool", specific.AfterObserve, decision.Call(), result)
		}
		result = e.interceptResult(ctx, key, global.AfterIntercept, decision.Call(), result)
		e.observeResult(ctx, key+":after:global", global.AfterObserve, decision.Call(), result)
	}
	return result, ok
}

// invoke runs the actual tool execution.
func (e *Engine) invoke(ctx context.Context, tool Tool, call llm.ToolCall) (string, error) {
	start := time.Now()
	result, err := tool.Invoke(ctx, call.Arguments)
	elapsed := time.Since(start)
	if err != nil {
		return "", fmt.Errorf("tool %s failed: %w", call.Name, err)
	}
	e.logger.Debug("tool executed", "tool", call.Name, "call_id", call.ID, "elapsed", elapsed)
	return result, nil
}

func (e *Engine) hooksActive() bool {
	return e.hooks.Active()
}

// toolHooks returns hooks for a scope: "" selects the global scope.
func (e *Engine) toolHooks(name string) (hooks.ToolHooks, bool) {
	if !e.hooks.Active() {
		return hooks.ToolHooks{}, false
	}
	if name == "" {
		return e.hooks.Global, true
	}
	return e.hooks.ForTool(name)
}

// interceptCall applies a before-tool interceptor to the current decision.
// A call already short-circuited by an earlier scope is not re-intercepted.
func (e *Engine) interceptCall(ctx context.Context, key string, fn hooks.CallInterceptor, d hooks.Decision) hooks.Decision {
	if fn == nil {
		return d
	}
	if _, shorted := d.ShortCircuited(); shorted {
		return d
	}
	next := hooks.Intercept(ctx, e.interceptors, key, d, func(ctx context.Context) (hooks.Decision, error) {
		return fn(ctx, d.Call())
	})
	// A hook returning ShortCircuit cannot know the call; reattach it so
	// every later stage sees the same call identity.
	if _, shorted := next.ShortCircuited(); shorted {
		return next.WithCall(d.Call())
	}
	return next
}

func (e *Engine) interceptResult(ctx context.Context, key string, fn hooks.ResultInterceptor, call llm.ToolCall, result string) string {
	if fn == nil {
		return result
	}
	return hooks.Intercept(ctx, e.interceptors, key, result, func(ctx context.Context) (string, error) {
		return fn(ctx, call, result)
	})
}

func (e *Engine) observeCall(ctx context.Context, key string, fn hooks.CallObserver, d hooks.Decision) {
	if fn == nil || e.breakpoints == nil {
		return
	}
	call := d.Call()
	e.breakpoints.Observe(ctx, key, func(ctx context.Context) error {
		return fn(ctx, call)
	})
}

func (e *Engine) observeResult(ctx context.Context, key string, fn hooks.ResultObserver, call llm.ToolCall, result string) {
	if fn == nil || e.breakpoints == nil {
		return
	}
	e.breakpoints.Observe(ctx, key, func(ctx context.Context) error {
		return fn(ctx, call, result)
	})
}

func (e *Engine) reportFailure(err error, call llm.ToolCall) {
	if e.classifier != nil {
		e.classifier.Handle(err, map[string]any{"tool": call.Name, "call_id": call.ID})
		return
	}
	e.logger.Error("tool call failed", "tool", call.Name, "call_id", call.ID, "error", err)
}
