package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/richinex/ixion/faults"
	"github.com/richinex/ixion/hooks"
	"github.com/richinex/ixion/llm"
	"github.com/richinex/ixion/storage"
	"github.com/richinex/ixion/tools"
)

// scriptedProvider replays canned responses and records what it was sent.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []llm.ChatMessage
	err       error
	calls     int
	seen      [][]llm.ChatMessage
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return "scripted-1" }

func (p *scriptedProvider) Invoke(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition) (llm.Invocation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seen = append(p.seen, llm.CloneMessages(messages))
	if p.err != nil {
		p.calls++
		return llm.Invocation{}, p.err
	}
	if p.calls >= len(p.responses) {
		return llm.Invocation{}, errors.New("script exhausted")
	}
	msg := p.responses[p.calls]
	p.calls++
	return llm.Invocation{
		Message: msg,
		Usage:   &llm.TokenUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}, nil
}

func calculatorCall(id, expression string) llm.ToolCall {
	args, _ := json.Marshal(map[string]string{"expression": expression})
	return llm.ToolCall{ID: id, Name: "calculator", Arguments: args}
}

func TestNewRequiresProvider(t *testing.T) {
	_, err := New(Config{Name: "orphan"})
	if err == nil {
		t.Fatal("expected error for missing provider")
	}
	var record *faults.Record
	if !errors.As(err, &record) || record.Kind != faults.KindConfiguration {
		t.Errorf("expected configuration record, got %v", err)
	}
}

func TestRunToolLoop(t *testing.T) {
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{calculatorCall("c1", "2 + 2")}},
			llm.AssistantMessage("The answer is 4."),
		},
	}
	a, err := New(Config{
		Provider: provider,
		Tools:    []tools.Tool{tools.NewCalculatorTool()},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("Calculate 2 + 2")})
	if result == nil {
		t.Fatal("expected a result")
	}
	if result.Output() != "The answer is 4." {
		t.Errorf("unexpected output: %q", result.Output())
	}
	if result.Turns != 2 {
		t.Errorf("expected 2 turns, got %d", result.Turns)
	}
	if result.Usage.TotalTokens != 30 {
		t.Errorf("expected 30 total tokens, got %d", result.Usage.TotalTokens)
	}

	// user, assistant with tool call, tool result, final answer
	if len(result.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d: %+v", len(result.Messages), result.Messages)
	}
	wantRoles := []string{llm.RoleUser, llm.RoleAssistant, llm.RoleTool, llm.RoleAssistant}
	for i, want := range wantRoles {
		if result.Messages[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, result.Messages[i].Role, want)
		}
	}
	toolMsg := result.Messages[2]
	if toolMsg.Role != llm.RoleTool || toolMsg.ToolCallID != "c1" || toolMsg.Content != "4" {
		t.Errorf("unexpected tool result message: %+v", toolMsg)
	}

	// The second model call must include the tool result.
	second := provider.seen[1]
	if second[len(second)-1].Content != "4" {
		t.Errorf("model did not see the tool result: %+v", second[len(second)-1])
	}
}

func TestRunParallelCallsStayCorrelated(t *testing.T) {
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
				calculatorCall("c1", "1 + 1"),
				calculatorCall("c2", "3 * 3"),
			}},
			llm.AssistantMessage("2 and 9."),
		},
	}
	a, err := New(Config{
		Provider: provider,
		Tools:    []tools.Tool{tools.NewCalculatorTool()},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("Do both")})
	if result == nil {
		t.Fatal("expected a result")
	}
	byID := map[string]string{}
	for _, msg := range result.Messages {
		if msg.Role == llm.RoleTool {
			byID[msg.ToolCallID] = msg.Content
		}
	}
	if byID["c1"] != "2" || byID["c2"] != "9" {
		t.Errorf("results crossed between calls: %v", byID)
	}
}

func TestRunProviderFailureReturnsNil(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	a, err := New(Config{Provider: provider})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")})
	if result != nil {
		t.Fatal("expected nil result on provider failure")
	}
	if got := a.Recorder().Counter("runs.no_result"); got != 1 {
		t.Errorf("expected no_result counter 1, got %d", got)
	}
	if provider.calls != 1 {
		t.Errorf("the loop must not retry the provider itself, got %d calls", provider.calls)
	}
}

func TestRunFaultOptionsConfigureDedup(t *testing.T) {
	provider := &scriptedProvider{err: errors.New("connection refused")}
	a, err := New(Config{
		Provider: provider,
		Faults:   faults.Options{DedupThreshold: 1},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// Identical failures land on the same dedup key; with threshold 1 only
	// the first one reaches telemetry.
	a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")})
	a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")})
	if got := a.Recorder().Counter("errors.total"); got != 1 {
		t.Errorf("expected 1 forwarded error with threshold 1, got %d", got)
	}
}

func TestRunTurnBudgetExhausted(t *testing.T) {
	// The model keeps calling tools and never answers.
	looping := make([]llm.ChatMessage, 5)
	for i := range looping {
		looping[i] = llm.ChatMessage{
			Role:      llm.RoleAssistant,
			ToolCalls: []llm.ToolCall{calculatorCall("", "1 + 1")},
		}
	}
	provider := &scriptedProvider{responses: looping}
	a, err := New(Config{
		Provider: provider,
		Tools:    []tools.Tool{tools.NewCalculatorTool()},
		MaxTurns: 3,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("loop forever")})
	if result != nil {
		t.Fatal("expected nil result when the turn budget runs out")
	}
	if provider.calls != 3 {
		t.Errorf("expected exactly 3 model calls, got %d", provider.calls)
	}
	if got := a.Recorder().Counter("runs.no_result"); got != 1 {
		t.Errorf("expected no_result counter 1, got %d", got)
	}
}

func TestRunInlineToolCallFallback(t *testing.T) {
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{
			llm.AssistantMessage(`I'll compute that: {"tool": "calculator", "arguments": {"expression": "6 * 7"}}`),
			llm.AssistantMessage("It is 42."),
		},
	}
	a, err := New(Config{
		Provider: provider,
		Tools:    []tools.Tool{tools.NewCalculatorTool()},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("what is 6*7")})
	if result == nil {
		t.Fatal("expected a result")
	}
	var sawToolResult bool
	for _, msg := range result.Messages {
		if msg.Role == llm.RoleTool && msg.Content == "42" {
			sawToolResult = true
		}
	}
	if !sawToolResult {
		t.Error("inline tool call was not executed")
	}
}

func TestRunCheckpointRoundTrip(t *testing.T) {
	store := storage.NewMemoryStore()
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{llm.AssistantMessage("Hello Ada.")},
	}
	a, err := New(Config{Provider: provider, SystemPrompt: "Be brief."})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	a.WithCheckpoint(store, "thread-1")

	if result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("I am Ada")}); result == nil {
		t.Fatal("first run failed")
	}

	saved, err := store.Load(context.Background(), "thread-1")
	if err != nil || len(saved) != 3 {
		t.Fatalf("expected 3 saved messages, got %d (err %v)", len(saved), err)
	}

	// A second run on the same thread resumes from the checkpoint.
	provider2 := &scriptedProvider{
		responses: []llm.ChatMessage{llm.AssistantMessage("You said you are Ada.")},
	}
	b, err := New(Config{Provider: provider2, SystemPrompt: "Be brief."})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	b.WithCheckpoint(store, "thread-1")

	if result := b.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("Who am I?")}); result == nil {
		t.Fatal("second run failed")
	}
	first := provider2.seen[0]
	if len(first) != 4 {
		t.Fatalf("resumed run should see 4 messages, got %d", len(first))
	}
	if first[1].Content != "I am Ada" {
		t.Errorf("prior user message missing from resumed transcript: %+v", first[1])
	}
}

func TestRunCoreHooks(t *testing.T) {
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{llm.AssistantMessage("done")},
	}
	var observed bool
	cfg := &hooks.Config{
		Enabled: true,
		BeforeModelIntercept: func(ctx context.Context, messages []llm.ChatMessage) ([]llm.ChatMessage, error) {
			return append(messages, llm.SystemMessage("Be terse.")), nil
		},
		AfterModelObserve: func(ctx context.Context, response llm.ChatMessage) error {
			observed = response.Content == "done"
			return nil
		},
		AfterCompleteIntercept: func(ctx context.Context, messages []llm.ChatMessage) ([]llm.ChatMessage, error) {
			return append(messages, llm.SystemMessage("redacted")), nil
		},
	}
	a, err := New(Config{Provider: provider, Hooks: cfg})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")})
	if result == nil {
		t.Fatal("expected a result")
	}

	sent := provider.seen[0]
	if sent[len(sent)-1].Content != "Be terse." {
		t.Error("before-model interceptor rewrite did not reach the provider")
	}
	if !observed {
		t.Error("after-model observer did not run")
	}
	if last := result.Messages[len(result.Messages)-1]; last.Content != "redacted" {
		t.Errorf("after-complete interceptor did not shape the transcript, last = %q", last.Content)
	}
}

func TestRunFailingHookDoesNotBreakRun(t *testing.T) {
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{llm.AssistantMessage("fine")},
	}
	cfg := &hooks.Config{
		Enabled: true,
		BeforeModelIntercept: func(ctx context.Context, messages []llm.ChatMessage) ([]llm.ChatMessage, error) {
			return nil, errors.New("hook exploded")
		},
	}
	a, err := New(Config{Provider: provider, Hooks: cfg})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("hi")})
	if result == nil {
		t.Fatal("a failing hook must not fail the run")
	}
	if result.Output() != "fine" {
		t.Errorf("unexpected output %q", result.Output())
	}
	// The original message set was used despite the hook failure.
	if len(provider.seen[0]) != 1 || provider.seen[0][0].Content != "hi" {
		t.Errorf("fail-open should preserve the input, provider saw %+v", provider.seen[0])
	}
}

func TestRunCancelledContext(t *testing.T) {
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{llm.AssistantMessage("never sent")},
	}
	a, err := New(Config{Provider: provider})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if result := a.Run(ctx, []llm.ChatMessage{llm.UserMessage("hi")}); result != nil {
		t.Fatal("expected nil result for a cancelled context")
	}
}

func TestStatus(t *testing.T) {
	provider := &scriptedProvider{}
	a, err := New(Config{
		Provider: provider,
		Tools:    []tools.Tool{tools.NewCalculatorTool(), tools.NewClockTool()},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s := a.Status()
	if s.RegistrySize != 2 {
		t.Errorf("expected 2 registered tools, got %d", s.RegistrySize)
	}
	if s.ActiveInterceptorTasks != 0 || s.ActiveBreakpointTasks != 0 {
		t.Errorf("idle agent should report zero active tasks: %+v", s)
	}
}

func TestRunUnknownToolMessageReachesModel(t *testing.T) {
	provider := &scriptedProvider{
		responses: []llm.ChatMessage{
			{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{{ID: "c1", Name: "teleport"}}},
			llm.AssistantMessage("I cannot do that."),
		},
	}
	a, err := New(Config{Provider: provider})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	result := a.Run(context.Background(), []llm.ChatMessage{llm.UserMessage("teleport me")})
	if result == nil {
		t.Fatal("expected a result")
	}
	second := provider.seen[1]
	last := second[len(second)-1]
	if !strings.Contains(last.Content, "unknown tool: teleport") {
		t.Errorf("model should see the unknown-tool message, got %q", last.Content)
	}
}
