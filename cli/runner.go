// Command execution for CLI commands.
//
// Information Hiding:
// - Provider and agent setup hidden
// - Output formatting hidden
// - Checkpoint database wiring hidden
package cli

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/richinex/ixion/agent"
	"github.com/richinex/ixion/config"
	"github.com/richinex/ixion/llm"
	"github.com/richinex/ixion/storage"
	"github.com/richinex/ixion/telemetry"
	"github.com/richinex/ixion/tools"
)

// Options holds CLI execution options.
type Options struct {
	Provider   string
	MaxTurns   int
	Verbose    bool
	ShowReport bool
}

// DefaultOptions returns default CLI options.
func DefaultOptions() Options {
	return Options{MaxTurns: 10}
}

// defaultDBPath is the default checkpoint database location.
const defaultDBPath = ".ixion/ixion.db"

const defaultSystemPrompt = `You are a capable assistant with access to tools.
Use a tool when it helps; answer directly when it does not.`

// RunTask executes a single task and prints the final answer.
func RunTask(ctx context.Context, task, threadID, dbPath string, opts Options) error {
	a, cleanup, err := buildAgent(threadID, dbPath, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Printf("Running task...\n\n")
	result := a.Run(ctx, []llm.ChatMessage{llm.UserMessage(task)})
	if result == nil {
		return fmt.Errorf("run produced no result")
	}

	fmt.Printf("%s\n", result.Output())
	if opts.Verbose {
		fmt.Printf("\n(%d turns, %d tokens, %s)\n",
			result.Turns, result.Usage.TotalTokens, result.Elapsed.Round(time.Millisecond))
	}
	if opts.ShowReport {
		printReport(a.Recorder().Report())
	}
	return nil
}

// Chat starts an interactive session. With a thread ID the conversation
// survives restarts.
func Chat(ctx context.Context, threadID, dbPath string, opts Options) error {
	a, cleanup, err := buildAgent(threadID, dbPath, opts)
	if err != nil {
		return err
	}
	defer cleanup()

	if threadID != "" {
		fmt.Printf("Chat session '%s'. Type 'exit' to quit.\n\n", threadID)
	} else {
		fmt.Printf("Chat session (not persisted). Type 'exit' to quit.\n\n")
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "exit" || input == "quit" {
			break
		}

		result := a.Run(ctx, []llm.ChatMessage{llm.UserMessage(input)})
		if result == nil {
			fmt.Fprintf(os.Stderr, "\nNo result for that turn, see logs.\n\n")
			continue
		}
		fmt.Printf("\n%s\n\n", result.Output())
	}

	if opts.ShowReport {
		printReport(a.Recorder().Report())
	}
	return scanner.Err()
}

// ListTools prints the default tool set.
func ListTools(verbose bool) {
	fmt.Println("Available tools:")
	fmt.Println()
	for _, t := range defaultTools() {
		fmt.Printf("  %s\n", t.Name())
		fmt.Printf("    %s\n", t.Description())
		if verbose {
			if props, ok := t.Parameters()["properties"].(map[string]any); ok {
				for name, raw := range props {
					desc := ""
					if p, ok := raw.(map[string]any); ok {
						desc, _ = p["description"].(string)
					}
					fmt.Printf("      %s: %s\n", name, desc)
				}
			}
		}
		fmt.Println()
	}
}

// Helper functions

func defaultTools() []tools.Tool {
	return []tools.Tool{
		tools.NewCalculatorTool(),
		tools.NewClockTool(),
		tools.NewHTTPTool(30 * time.Second),
	}
}

// buildAgent wires the provider, tool set, and optional checkpoint store.
// The returned cleanup closes the store.
func buildAgent(threadID, dbPath string, opts Options) (*agent.Agent, func(), error) {
	noop := func() {}
	if opts.Provider == "" {
		return nil, noop, fmt.Errorf("--provider is required for this command")
	}

	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, noop, err
	}
	provider, err := settings.Provider.FromEnv()
	if err != nil {
		return nil, noop, err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = settings.Agent.MaxTurns
	}

	a, err := agent.New(agent.Config{
		Name:         "ixion",
		SystemPrompt: defaultSystemPrompt,
		Provider:     provider,
		Tools:        defaultTools(),
		Limits:       settings.Hooks,
		Faults:       settings.Faults,
		MaxTurns:     maxTurns,
		Logger:       logger,
	})
	if err != nil {
		return nil, noop, err
	}

	if threadID == "" {
		return a, noop, nil
	}

	if dbPath == "" {
		dbPath = settings.Storage.Path
	}
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	store, err := storage.OpenSqlite(dbPath)
	if err != nil {
		return nil, noop, fmt.Errorf("failed to open checkpoint database: %w", err)
	}
	a.WithCheckpoint(store, threadID)
	return a, func() { _ = store.Close() }, nil
}

// printReport dumps the run's telemetry in a compact form.
func printReport(report telemetry.Report) {
	fmt.Println("\n--- Telemetry ---")
	for name, count := range report.Counters {
		fmt.Printf("  %s: %d\n", name, count)
	}
	for name, timer := range report.Timers {
		fmt.Printf("  %s: count=%d total=%s min=%s max=%s\n",
			name, timer.Count,
			timer.Total.Round(time.Millisecond),
			timer.Min.Round(time.Millisecond),
			timer.Max.Round(time.Millisecond))
	}
	for name, tool := range report.Tools {
		fmt.Printf("  tool %s: calls=%d failures=%d success=%.0f%%\n",
			name, tool.Count, tool.Failures, tool.SuccessRate*100)
	}
	if report.Trend != "" {
		fmt.Printf("  memory trend: %s\n", report.Trend)
	}
}
