package agent

import (
	"time"

	"github.com/richinex/ixion/llm"
)

// Result is the outcome of a completed run.
type Result struct {
	// Final is the model's terminal message.
	Final llm.ChatMessage

	// Messages is the full transcript, including tool calls and results.
	Messages []llm.ChatMessage

	// Turns is the number of model invocations made.
	Turns int

	// Usage is the cumulative token usage across all model invocations.
	Usage llm.TokenUsage

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Output returns the text of the terminal message.
func (r *Result) Output() string {
	return r.Final.Content
}

// Status is a point-in-time snapshot of the agent's moving parts.
type Status struct {
	ActiveInterceptorTasks int
	ActiveBreakpointTasks  int
	RegistrySize           int
}
