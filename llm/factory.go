// Provider factory: enum of supported vendors plus a small builder for
// model, token, and temperature overrides.

package llm

import (
	"fmt"
	"os"
	"strings"
)

// ProviderType identifies a supported vendor.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

// String returns the vendor name.
func (p ProviderType) String() string {
	switch p {
	case ProviderOpenAI:
		return "openai"
	case ProviderAnthropic:
		return "anthropic"
	case ProviderDeepSeek:
		return "deepseek"
	case ProviderGemini:
		return "gemini"
	default:
		return "unknown"
	}
}

// EnvVar returns the environment variable holding this vendor's API key.
func (p ProviderType) EnvVar() string {
	switch p {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	case ProviderAnthropic:
		return "ANTHROPIC_API_KEY"
	case ProviderDeepSeek:
		return "DEEPSEEK_API_KEY"
	case ProviderGemini:
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

// DefaultModel returns the default model for this vendor.
func (p ProviderType) DefaultModel() string {
	switch p {
	case ProviderOpenAI:
		return "gpt-4o"
	case ProviderAnthropic:
		return "claude-sonnet-4-20250514"
	case ProviderDeepSeek:
		return "deepseek-chat"
	case ProviderGemini:
		return "gemini-2.5-flash"
	default:
		return ""
	}
}

// ParseProviderType parses a vendor name (case-insensitive).
func ParseProviderType(s string) (ProviderType, error) {
	switch strings.ToLower(s) {
	case "openai", "gpt":
		return ProviderOpenAI, nil
	case "anthropic", "claude":
		return ProviderAnthropic, nil
	case "deepseek":
		return ProviderDeepSeek, nil
	case "gemini", "google":
		return ProviderGemini, nil
	default:
		return 0, fmt.Errorf("unknown provider: %s", s)
	}
}

// FromEnv creates a provider with defaults, reading the API key from the
// environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewBuilder(p).FromEnv()
}

// Builder configures a provider before construction.
type Builder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
}

// NewBuilder creates a builder for the given vendor.
func NewBuilder(providerType ProviderType) *Builder {
	return &Builder{providerType: providerType}
}

// Model sets the model identifier.
func (b *Builder) Model(model string) *Builder {
	b.model = model
	return b
}

// MaxTokens sets the response token budget.
func (b *Builder) MaxTokens(tokens uint32) *Builder {
	b.maxTokens = tokens
	return b
}

// Temperature sets sampling temperature.
func (b *Builder) Temperature(temp float32) *Builder {
	b.temperature = &temp
	return b
}

// FromEnv builds the provider, reading the API key from the environment.
func (b *Builder) FromEnv() (Provider, error) {
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.APIKey(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *Builder) APIKey(key string) (Provider, error) {
	model := b.model
	if model == "" {
		model = b.providerType.DefaultModel()
	}

	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	temperature := float32(0.7)
	if b.temperature != nil {
		temperature = *b.temperature
	}

	switch b.providerType {
	case ProviderOpenAI:
		return NewOpenAIProvider(key, model, maxTokens, temperature), nil
	case ProviderAnthropic:
		return NewAnthropicProvider(key, model, maxTokens, temperature), nil
	case ProviderDeepSeek:
		return NewDeepSeekProvider(key, model, maxTokens, temperature), nil
	case ProviderGemini:
		return NewGeminiProvider(key, model, maxTokens, temperature), nil
	default:
		return nil, fmt.Errorf("unknown provider type: %v", b.providerType)
	}
}
