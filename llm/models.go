// Package llm provides the model invocation service: a narrow Provider
// contract plus adapters for the supported vendors.
//
// Information Hiding:
// - API clients, authentication, and wire formats per vendor
// - Tool-call extraction quirks per vendor
// - Token accounting internals
package llm

import "encoding/json"

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ChatMessage is one entry in a turn's message sequence.
type ChatMessage struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`   // assistant messages requesting tools
	ToolCallID string     `json:"tool_call_id,omitempty"` // tool result messages
}

// ToolCall is a tool invocation requested by the model. Immutable once
// issued; pipelines that rewrite a call replace it wholesale.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolDefinition describes a tool the model may call.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"` // JSON Schema
}

// TokenUsage holds token accounting for one invocation.
type TokenUsage struct {
	PromptTokens     uint32 `json:"prompt_tokens"`
	CompletionTokens uint32 `json:"completion_tokens"`
	TotalTokens      uint32 `json:"total_tokens"`
}

// SystemMessage creates a system message.
func SystemMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleSystem, Content: content}
}

// UserMessage creates a user message.
func UserMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleUser, Content: content}
}

// AssistantMessage creates an assistant message.
func AssistantMessage(content string) ChatMessage {
	return ChatMessage{Role: RoleAssistant, Content: content}
}

// ToolResultMessage creates a tool result message for the given call id.
func ToolResultMessage(callID, content string) ChatMessage {
	return ChatMessage{Role: RoleTool, Content: content, ToolCallID: callID}
}

// CloneMessages deep-copies a message sequence, including tool-call slices,
// so hook rewrites cannot alias the caller's state.
func CloneMessages(messages []ChatMessage) []ChatMessage {
	if messages == nil {
		return nil
	}
	out := make([]ChatMessage, len(messages))
	copy(out, messages)
	for i := range out {
		if len(out[i].ToolCalls) > 0 {
			calls := make([]ToolCall, len(out[i].ToolCalls))
			copy(calls, out[i].ToolCalls)
			out[i].ToolCalls = calls
		}
	}
	return out
}
