// OpenAI adapter built on the go-openai library.

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for the OpenAI Chat Completions API.
type OpenAIProvider struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	return &OpenAIProvider{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// newOpenAICompatible creates a provider against an OpenAI-compatible API
// at a different base URL (used by the DeepSeek adapter).
func newOpenAICompatible(apiKey, baseURL, model string, maxTokens uint32, temperature float32) *OpenAIProvider {
	config := openai.DefaultConfig(apiKey)
	config.BaseURL = baseURL
	return &OpenAIProvider{
		client:      openai.NewClientWithConfig(config),
		model:       model,
		maxTokens:   int(maxTokens),
		temperature: temperature,
	}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Model returns the current model.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Invoke sends one completion request, binding tools when present.
func (p *OpenAIProvider) Invoke(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Invocation, error) {
	req := openai.ChatCompletionRequest{
		Model:       p.model,
		Messages:    toOpenAIMessages(messages),
		MaxTokens:   p.maxTokens,
		Temperature: p.temperature,
	}
	if len(tools) > 0 {
		req.Tools = toOpenAITools(tools)
	}

	resp, err := p.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return Invocation{}, fmt.Errorf("openai completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return Invocation{}, fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0].Message
	message := AssistantMessage(choice.Content)
	for _, tc := range choice.ToolCalls {
		message.ToolCalls = append(message.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: []byte(tc.Function.Arguments),
		})
	}

	usage := &TokenUsage{
		PromptTokens:     uint32(resp.Usage.PromptTokens),
		CompletionTokens: uint32(resp.Usage.CompletionTokens),
		TotalTokens:      uint32(resp.Usage.TotalTokens),
	}

	return Invocation{Message: message, Usage: usage}, nil
}

func toOpenAIMessages(messages []ChatMessage) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oai := openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
		for _, tc := range msg.ToolCalls {
			oai.ToolCalls = append(oai.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: string(tc.Arguments),
				},
			})
		}
		if msg.ToolCallID != "" {
			oai.ToolCallID = msg.ToolCallID
		}
		result[i] = oai
	}
	return result
}

func toOpenAITools(tools []ToolDefinition) []openai.Tool {
	result := make([]openai.Tool, len(tools))
	for i, t := range tools {
		result[i] = openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return result
}

// Verify OpenAIProvider implements Provider
var _ Provider = (*OpenAIProvider)(nil)
