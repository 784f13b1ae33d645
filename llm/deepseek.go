// DeepSeek adapter. Uses the OpenAI-compatible API surface with a
// different base URL, so it wraps the OpenAI adapter.

package llm

import "context"

const deepseekBaseURL = "https://api.deepseek.com/v1"

// DeepSeekProvider implements Provider for DeepSeek.
type DeepSeekProvider struct {
	inner *OpenAIProvider
}

// NewDeepSeekProvider creates a new DeepSeek provider.
func NewDeepSeekProvider(apiKey, model string, maxTokens uint32, temperature float32) *DeepSeekProvider {
	return &DeepSeekProvider{
		inner: newOpenAICompatible(apiKey, deepseekBaseURL, model, maxTokens, temperature),
	}
}

// Name returns the provider name.
func (p *DeepSeekProvider) Name() string {
	return "deepseek"
}

// Model returns the current model.
func (p *DeepSeekProvider) Model() string {
	return p.inner.Model()
}

// Invoke sends one completion request.
func (p *DeepSeekProvider) Invoke(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Invocation, error) {
	return p.inner.Invoke(ctx, messages, tools)
}

// Verify DeepSeekProvider implements Provider
var _ Provider = (*DeepSeekProvider)(nil)
