// Inline tool-call recovery for providers (or models) that emit a JSON
// tool request in plain text instead of the structured tool-call channel.

package llm

import (
	"encoding/json"

	jsonutil "github.com/richinex/ixion/internal/json"
)

// inlineCall is the shape models fall back to when they ignore the
// structured tool channel.
type inlineCall struct {
	Tool      string          `json:"tool"`
	Arguments json.RawMessage `json:"arguments"`
}

// InlineToolCalls scans assistant text for an embedded JSON tool request
// of the form {"tool": ..., "arguments": {...}}. It returns nil when the
// text carries no such request; ids are left empty for the caller to assign.
func InlineToolCalls(content string) []ToolCall {
	if content == "" {
		return nil
	}

	var call inlineCall
	if err := jsonutil.Unmarshal(content, &call); err != nil {
		return nil
	}
	if call.Tool == "" {
		return nil
	}

	args := call.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	return []ToolCall{{Name: call.Tool, Arguments: args}}
}
