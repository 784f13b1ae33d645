// Anthropic adapter built on the official anthropic-sdk-go.

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicProvider implements Provider for the Anthropic Messages API.
type AnthropicProvider struct {
	client      anthropic.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewAnthropicProvider creates a new Anthropic provider.
func NewAnthropicProvider(apiKey, model string, maxTokens uint32, temperature float32) *AnthropicProvider {
	return &AnthropicProvider{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		maxTokens:   int64(maxTokens),
		temperature: float64(temperature),
	}
}

// Name returns the provider name.
func (p *AnthropicProvider) Name() string {
	return "anthropic"
}

// Model returns the current model.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Invoke sends one completion request, binding tools when present.
func (p *AnthropicProvider) Invoke(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Invocation, error) {
	anthropicMessages, systemPrompt := toAnthropicMessages(messages)

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   p.maxTokens,
		Messages:    anthropicMessages,
		Temperature: anthropic.Float(p.temperature),
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}
	if len(tools) > 0 {
		params.Tools = toAnthropicTools(tools)
	}

	resp, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Invocation{}, fmt.Errorf("anthropic completion failed: %w", err)
	}

	message := ChatMessage{Role: RoleAssistant}
	for _, block := range resp.Content {
		switch variant := block.AsAny().(type) {
		case anthropic.TextBlock:
			message.Content += variant.Text
		case anthropic.ToolUseBlock:
			input, _ := json.Marshal(variant.Input)
			message.ToolCalls = append(message.ToolCalls, ToolCall{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: input,
			})
		}
	}

	var usage *TokenUsage
	if resp.Usage.InputTokens > 0 || resp.Usage.OutputTokens > 0 {
		usage = &TokenUsage{
			PromptTokens:     uint32(resp.Usage.InputTokens),
			CompletionTokens: uint32(resp.Usage.OutputTokens),
			TotalTokens:      uint32(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		}
	}

	return Invocation{Message: message, Usage: usage}, nil
}

func toAnthropicMessages(messages []ChatMessage) ([]anthropic.MessageParam, string) {
	var out []anthropic.MessageParam
	var systemPrompt string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemPrompt = msg.Content
		case RoleUser:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewTextBlock(msg.Content),
			))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				out = append(out, anthropic.NewAssistantMessage(
					anthropic.NewTextBlock(msg.Content),
				))
				continue
			}
			param := anthropic.MessageParam{Role: anthropic.MessageParamRoleAssistant}
			if msg.Content != "" {
				param.Content = append(param.Content, anthropic.NewTextBlock(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				var input map[string]any
				_ = json.Unmarshal(tc.Arguments, &input)
				param.Content = append(param.Content, anthropic.ContentBlockParamUnion{
					OfToolUse: &anthropic.ToolUseBlockParam{
						ID:    tc.ID,
						Name:  tc.Name,
						Input: input,
					},
				})
			}
			out = append(out, param)
		case RoleTool:
			out = append(out, anthropic.NewUserMessage(
				anthropic.NewToolResultBlock(msg.ToolCallID, msg.Content, false),
			))
		}
	}

	return out, systemPrompt
}

func toAnthropicTools(tools []ToolDefinition) []anthropic.ToolUnionParam {
	result := make([]anthropic.ToolUnionParam, len(tools))
	for i, t := range tools {
		properties, _ := t.Parameters["properties"].(map[string]any)
		required, _ := t.Parameters["required"].([]string)

		param := anthropic.ToolParam{
			Name:        t.Name,
			Description: anthropic.String(t.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: properties,
				Required:   required,
			},
		}
		result[i] = anthropic.ToolUnionParam{OfTool: &param}
	}
	return result
}

// Verify AnthropicProvider implements Provider
var _ Provider = (*AnthropicProvider)(nil)
