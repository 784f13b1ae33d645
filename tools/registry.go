package tools

import (
	"log/slog"
	"sort"
	"sync"

	"github.com/richinex/ixion/llm"
)

// Registry holds the set of tools available to the model. All methods are
// safe for concurrent use.
type Registry struct {
	logger *slog.Logger

	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry builds an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		logger: logger.With("component", "registry"),
		tools:  make(map[string]Tool),
	}
}

// Add registers a tool. A tool with the same name is replaced, with a
// warning, so a rebuilt tool set wins over a stale one.
func (r *Registry) Add(t Tool) {
	if t == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name()]; exists {
		r.logger.Warn("replacing registered tool", "tool", t.Name())
	}
	r.tools[t.Name()] = t
}

// SetAll atomically replaces the registry contents. An empty set is legal
// but logged, since it usually means a wiring mistake upstream.
func (r *Registry) SetAll(ts []Tool) {
	next := make(map[string]Tool, len(ts))
	for _, t := range ts {
		if t != nil {
			next[t.Name()] = t
		}
	}
	r.mu.Lock()
	r.tools = next
	r.mu.Unlock()
	if len(next) == 0 {
		r.logger.Warn("registry replaced with empty tool set")
	}
}

// Get looks up a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// All returns the registered tools in name order.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the registered tool names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Size returns the number of registered tools.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Clear removes all tools.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.tools = make(map[string]Tool)
	r.mu.Unlock()
}

// Definitions returns the tool schemas in the shape providers consume.
func (r *Registry) Definitions() []llm.ToolDefinition {
	all := r.All()
	defs := make([]llm.ToolDefinition, 0, len(all))
	for _, t := range all {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return defs
}
