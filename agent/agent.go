// Package agent drives the model/tools turn loop: invoke the model, run
// any requested tools, feed results back, repeat until the model answers
// without tool calls or the turn budget runs out.
//
// Information Hiding:
// - Turn state machine internals hidden
// - Hook pipeline wiring hidden
// - Checkpoint load/save timing hidden
package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/richinex/ixion/faults"
	"github.com/richinex/ixion/hooks"
	"github.com/richinex/ixion/llm"
	"github.com/richinex/ixion/storage"
	"github.com/richinex/ixion/telemetry"
	"github.com/richinex/ixion/tools"
)

// phase is the loop's current state.
type phase int

const (
	phaseModel phase = iota
	phaseTools
	phaseEnd
)

// Agent orchestrates one conversation loop. Construction is the only
// point that can fail; a built agent reports runtime trouble through the
// classifier and telemetry instead of erroring out of Run.
type Agent struct {
	config       Config
	logger       *slog.Logger
	recorder     *telemetry.Recorder
	classifier   *faults.Classifier
	registry     *tools.Registry
	engine       *tools.Engine
	interceptors *hooks.Interceptors
	breakpoints  *hooks.Breakpoints

	store    storage.CheckpointStore
	threadID string
}

// New validates the configuration and wires the runtime. A missing
// provider is the one unrecoverable condition.
func New(config Config) (*Agent, error) {
	if config.Provider == nil {
		return nil, faults.Configf("agent %q has no provider", config.Name)
	}
	config = config.withDefaults()
	logger := config.Logger.With("agent", config.Name)

	recorder := telemetry.NewRecorder(logger)
	classifier := faults.NewClassifier(recorder, logger, config.Faults)
	interceptors := hooks.NewInterceptors(config.Limits, recorder, classifier, logger)
	breakpoints := hooks.NewBreakpoints(config.Limits, recorder, classifier, logger)

	registry := tools.NewRegistry(logger)
	registry.SetAll(config.Tools)

	engine := tools.NewEngine(registry, tools.EngineOptions{
		Hooks:        config.Hooks,
		Interceptors: interceptors,
		Breakpoints:  breakpoints,
		Recorder:     recorder,
		Classifier:   classifier,
		Logger:       logger,
	})

	return &Agent{
		config:       config,
		logger:       logger,
		recorder:     recorder,
		classifier:   classifier,
		registry:     registry,
		engine:       engine,
		interceptors: interceptors,
		breakpoints:  breakpoints,
	}, nil
}

// WithCheckpoint enables transcript persistence for the given thread.
func (a *Agent) WithCheckpoint(store storage.CheckpointStore, threadID string) *Agent {
	a.store = store
	a.threadID = threadID
	return a
}

// Name returns the agent's name.
func (a *Agent) Name() string { return a.config.Name }

// Registry exposes the agent's tool registry for late registration.
func (a *Agent) Registry() *tools.Registry { return a.registry }

// Recorder exposes the agent's telemetry recorder.
func (a *Agent) Recorder() *telemetry.Recorder { return a.recorder }

// Status reports the agent's in-flight hook work and tool count.
func (a *Agent) Status() Status {
	return Status{
		ActiveInterceptorTasks: a.interceptors.Active(),
		ActiveBreakpointTasks:  a.breakpoints.Active(),
		RegistrySize:           a.registry.Size(),
	}
}

// Run executes the loop for the given input messages and returns the
// result, or nil when the run could not produce one (provider failure or
// turn budget exhausted). A nil result is soft: it is logged and counted,
// never panicked.
func (a *Agent) Run(ctx context.Context, input []llm.ChatMessage) *Result {
	start := time.Now()
	a.recorder.StartTimer("agent.run")
	defer a.recorder.StopTimer("agent.run")
	a.recorder.SampleMemory()

	conversation := a.assemble(ctx, input)

	var usage llm.TokenUsage
	turns := 0
	state := phaseModel
	var response llm.ChatMessage

	for state != phaseEnd {
		select {
		case <-ctx.Done():
			a.classifier.Handle(faults.Timeoutf("run cancelled: %v", ctx.Err()), nil)
			return a.noResult("cancelled")
		default:
		}

		switch state {
		case phaseModel:
			if a.config.MaxTurns > 0 && turns >= a.config.MaxTurns {
				return a.noResult("turn budget exhausted")
			}
			turns++

			messages := a.beforeModel(ctx, conversation)
			inv, err := a.invokeModel(ctx, messages)
			if err != nil {
				return a.noResult("model invocation failed")
			}
			if inv.Usage != nil {
				usage.PromptTokens += inv.Usage.PromptTokens
				usage.CompletionTokens += inv.Usage.CompletionTokens
				usage.TotalTokens += inv.Usage.TotalTokens
			}
			response = a.afterModel(ctx, inv.Message)
			conversation = append(conversation, response)
			if len(response.ToolCalls) > 0 {
				state = phaseTools
			} else {
				state = phaseEnd
			}

		case phaseTools:
			results := a.engine.ExecuteBatch(ctx, response.ToolCalls)
			conversation = append(conversation, results...)
			state = phaseModel
		}
	}

	conversation = a.afterComplete(ctx, conversation)
	a.checkpoint(ctx, conversation)
	a.recorder.Inc("runs.completed")
	a.recorder.SampleMemory()

	return &Result{
		Final:    response,
		Messages: conversation,
		Turns:    turns,
		Usage:    usage,
		Elapsed:  time.Since(start),
	}
}

// assemble builds the starting transcript: checkpoint, system prompt,
// then the caller's input.
func (a *Agent) assemble(ctx context.Context, input []llm.ChatMessage) []llm.ChatMessage {
	var conversation []llm.ChatMessage
	if a.store != nil && a.threadID != "" {
		prior, err := a.store.Load(ctx, a.threadID)
		if err != nil {
			a.classifier.Handle(err, map[string]any{"thread": a.threadID})
		} else {
			conversation = prior
		}
	}
	if len(conversation) == 0 && a.config.SystemPrompt != "" {
		conversation = append(conversation, llm.SystemMessage(a.config.SystemPrompt))
	}
	return append(conversation, input...)
}

// invokeModel calls the provider once. The loop never retries this call
// itself; callers wanting retry wrap the whole run with faults.Retry. A
// response without structured tool calls is scanned for an inline call
// embedded in the text, so weaker models still reach tools.
func (a *Agent) invokeModel(ctx context.Context, messages []llm.ChatMessage) (llm.Invocation, error) {
	inv, err := a.config.Provider.Invoke(ctx, messages, a.registry.Definitions())
	if err != nil {
		a.classifier.Handle(faults.Networkf("provider %s: %v", a.config.Provider.Name(), err), nil)
		return llm.Invocation{}, err
	}
	if len(inv.Message.ToolCalls) == 0 {
		inv.Message.ToolCalls = llm.InlineToolCalls(inv.Message.Content)
	}
	return inv, nil
}

func (a *Agent) beforeModel(ctx context.Context, conversation []llm.ChatMessage) []llm.ChatMessage {
	if !a.config.Hooks.Active() {
		return conversation
	}
	if fn := a.config.Hooks.BeforeModelIntercept; fn != nil {
		conversation = hooks.Intercept(ctx, a.interceptors, "core:before_model", conversation,
			func(ctx context.Context) ([]llm.ChatMessage, error) {
				return fn(ctx, llm.CloneMessages(conversation))
			})
	}
	if fn := a.config.Hooks.BeforeModelObserve; fn != nil {
		snapshot := llm.CloneMessages(conversation)
		a.breakpoints.Observe(ctx, "core:before_model", func(ctx context.Context) error {
			return fn(ctx, snapshot)
		})
	}
	return conversation
}

func (a *Agent) afterModel(ctx context.Context, response llm.ChatMessage) llm.ChatMessage {
	if !a.config.Hooks.Active() {
		return response
	}
	if fn := a.config.Hooks.AfterModelObserve; fn != nil {
		a.breakpoints.Observe(ctx, "core:after_model", func(ctx context.Context) error {
			return fn(ctx, response)
		})
	}
	return response
}

func (a *Agent) afterComplete(ctx context.Context, conversation []llm.ChatMessage) []llm.ChatMessage {
	if !a.config.Hooks.Active() {
		return conversation
	}
	if fn := a.config.Hooks.AfterCompleteIntercept; fn != nil {
		conversation = hooks.Intercept(ctx, a.interceptors, "core:after_complete", conversation,
			func(ctx context.Context) ([]llm.ChatMessage, error) {
				return fn(ctx, llm.CloneMessages(conversation))
			})
	}
	if fn := a.config.Hooks.AfterCompleteObserve; fn != nil {
		snapshot := llm.CloneMessages(conversation)
		a.breakpoints.Observe(ctx, "core:after_complete", func(ctx context.Context) error {
			return fn(ctx, snapshot)
		})
	}
	return conversation
}

func (a *Agent) checkpoint(ctx context.Context, conversation []llm.ChatMessage) {
	if a.store == nil || a.threadID == "" {
		return
	}
	if err := a.store.Save(ctx, a.threadID, conversation); err != nil {
		a.classifier.Handle(err, map[string]any{"thread": a.threadID})
	}
}

func (a *Agent) noResult(reason string) *Result {
	a.logger.Warn("run produced no result", "reason", reason)
	a.recorder.Inc("runs.no_result")
	return nil
}
