// Google Gemini adapter built on the official google.golang.org/genai SDK.

package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider implements Provider for the Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	model       string
	maxTokens   int32
	temperature float32
	initErr     error // client creation error, surfaced on first use
}

// NewGeminiProvider creates a new Gemini provider. A client initialization
// failure is stored and returned from the first Invoke.
func NewGeminiProvider(apiKey, model string, maxTokens uint32, temperature float32) *GeminiProvider {
	p := &GeminiProvider{
		model:       model,
		maxTokens:   int32(maxTokens),
		temperature: temperature,
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		p.initErr = fmt.Errorf("failed to initialize gemini client: %w", err)
		return p
	}
	p.client = client
	return p
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return "gemini"
}

// Model returns the current model.
func (p *GeminiProvider) Model() string {
	return p.model
}

// Invoke sends one completion request, binding tools when present.
func (p *GeminiProvider) Invoke(ctx context.Context, messages []ChatMessage, tools []ToolDefinition) (Invocation, error) {
	if p.initErr != nil {
		return Invocation{}, p.initErr
	}

	contents, systemInstruction := toGeminiContents(messages)

	config := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(p.temperature),
		MaxOutputTokens: p.maxTokens,
	}
	if systemInstruction != "" {
		config.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	if len(tools) > 0 {
		config.Tools = toGeminiTools(tools)
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return Invocation{}, fmt.Errorf("gemini completion failed: %w", err)
	}

	message := ChatMessage{Role: RoleAssistant}
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if part.Text != "" {
				message.Content += part.Text
			}
			if part.FunctionCall != nil {
				args, _ := json.Marshal(part.FunctionCall.Args)
				message.ToolCalls = append(message.ToolCalls, ToolCall{
					// Gemini has no call id; the name stands in and the
					// engine generates a unique id downstream.
					Name:      part.FunctionCall.Name,
					Arguments: args,
				})
			}
		}
	}

	var usage *TokenUsage
	if resp.UsageMetadata != nil {
		usage = &TokenUsage{
			PromptTokens:     uint32(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: uint32(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      uint32(resp.UsageMetadata.TotalTokenCount),
		}
	}

	return Invocation{Message: message, Usage: usage}, nil
}

func toGeminiContents(messages []ChatMessage) ([]*genai.Content, string) {
	var contents []*genai.Content
	var systemInstruction string

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			systemInstruction = msg.Content
		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		case RoleAssistant:
			if len(msg.ToolCalls) == 0 {
				contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
				continue
			}
			content := &genai.Content{Role: genai.RoleModel}
			if msg.Content != "" {
				content.Parts = append(content.Parts, &genai.Part{Text: msg.Content})
			}
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				_ = json.Unmarshal(tc.Arguments, &args)
				content.Parts = append(content.Parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{Name: tc.Name, Args: args},
				})
			}
			contents = append(contents, content)
		case RoleTool:
			// Gemini expects tool results as user-role function responses.
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     msg.ToolCallID,
						Response: map[string]any{"output": msg.Content},
					},
				}},
			})
		}
	}

	return contents, systemInstruction
}

func toGeminiTools(tools []ToolDefinition) []*genai.Tool {
	declarations := make([]*genai.FunctionDeclaration, len(tools))
	for i, t := range tools {
		declarations[i] = &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  toGeminiSchema(t.Parameters),
		}
	}
	return []*genai.Tool{{FunctionDeclarations: declarations}}
}

func toGeminiSchema(params map[string]any) *genai.Schema {
	schema := &genai.Schema{Type: genai.TypeObject}

	if properties, ok := params["properties"].(map[string]any); ok {
		schema.Properties = make(map[string]*genai.Schema, len(properties))
		for name, raw := range properties {
			prop, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			ps := &genai.Schema{}
			if t, ok := prop["type"].(string); ok {
				switch t {
				case "string":
					ps.Type = genai.TypeString
				case "number":
					ps.Type = genai.TypeNumber
				case "integer":
					ps.Type = genai.TypeInteger
				case "boolean":
					ps.Type = genai.TypeBoolean
				case "array":
					ps.Type = genai.TypeArray
				default:
					ps.Type = genai.TypeObject
				}
			}
			if d, ok := prop["description"].(string); ok {
				ps.Description = d
			}
			schema.Properties[name] = ps
		}
	}
	if required, ok := params["required"].([]string); ok {
		schema.Required = required
	}
	if required, ok := params["required"].([]any); ok {
		for _, r := range required {
			if s, ok := r.(string); ok {
				schema.Required = append(schema.Required, s)
			}
		}
	}

	return schema
}

// Verify GeminiProvider implements Provider
var _ Provider = (*GeminiProvider)(nil)
