package agent

import (
	"log/slog"

	"github.com/richinex/ixion/faults"
	"github.com/richinex/ixion/hooks"
	"github.com/richinex/ixion/llm"
	"github.com/richinex/ixion/tools"
)

// Config describes an agent. Provider is the only required field.
type Config struct {
	Name         string
	SystemPrompt string
	Provider     llm.Provider
	Tools        []tools.Tool
	Hooks        *hooks.Config
	Limits       hooks.Limits

	// Faults tunes error deduplication. The zero value uses the
	// classifier's defaults.
	Faults faults.Options

	// MaxTurns is a defensive cap on model invocations per run. Zero
	// means unlimited; the loop then ends only when the model stops
	// requesting tools.
	MaxTurns int

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.Name == "" {
		c.Name = "agent"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}
