package provider

import (
	"fmt"

	"github.com/specvital/codedoc/internal/adapter/ai/prompt"
	"github.com/specvital/codedoc/internal/domain/docgen"
)

// LocalRequest is the local generation server payload.
type LocalRequest struct {
	Model   string       `json:"model"`
	Options LocalOptions `json:"options"`
	Prompt  string       `json:"prompt"`
	Stream  bool         `json:"stream"`
}

type LocalOptions struct {
	NumPredict  int     `json:"num_predict"`
	Temperature float64 `json:"temperature"`
}

// ChatRequest is the chat completions payload.
type ChatRequest struct {
	MaxTokens   int           `json:"max_tokens"`
	Messages    []ChatMessage `json:"messages"`
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
}

type ChatMessage struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// GenericRequest is the lowest common denominator payload for unknown services.
type GenericRequest struct {
	MaxTokens   int     `json:"max_tokens"`
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	Temperature float64 `json:"temperature"`
}

// GeminiRequest mirrors the generateContent request body.
type GeminiRequest struct {
	Contents          []GeminiContent        `json:"contents"`
	GenerationConfig  GeminiGenerationConfig `json:"generationConfig"`
	SystemInstruction *GeminiContent         `json:"systemInstruction,omitempty"`
}

type GeminiContent struct {
	Parts []GeminiPart `json:"parts"`
	Role  string       `json:"role,omitempty"`
}

type GeminiPart struct {
	Text string `json:"text"`
}

type GeminiGenerationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float64 `json:"temperature"`
}

// UserText returns the concatenated text of all user parts.
func (r *GeminiRequest) UserText() string {
	var text string
	for _, c := range r.Contents {
		for _, p := range c.Parts {
			text += p.Text
		}
	}
	return text
}

// BuildRequest builds the provider-specific payload for a prompt.
func BuildRequest(m docgen.ModelDescriptor, userPrompt string) (any, error) {
	return buildForFamily(Classify(m), m, userPrompt)
}

func buildForFamily(family Family, m docgen.ModelDescriptor, userPrompt string) (any, error) {
	switch family {
	case FamilyLocal:
		return &LocalRequest{
			Model:  m.Name,
			Prompt: userPrompt,
			Stream: false,
			Options: LocalOptions{
				NumPredict:  m.MaxTokens,
				Temperature: m.Temperature,
			},
		}, nil
	case FamilyChat:
		return &ChatRequest{
			Model: m.Name,
			Messages: []ChatMessage{
				{Role: "system", Content: prompt.SystemPrompt},
				{Role: "user", Content: userPrompt},
			},
			MaxTokens:   m.MaxTokens,
			Temperature: m.Temperature,
		}, nil
	case FamilyGemini:
		return &GeminiRequest{
			Contents: []GeminiContent{
				{Role: "user", Parts: []GeminiPart{{Text: userPrompt}}},
			},
			SystemInstruction: &GeminiContent{Parts: []GeminiPart{{Text: prompt.SystemPrompt}}},
			GenerationConfig: GeminiGenerationConfig{
				MaxOutputTokens: m.MaxTokens,
				Temperature:     m.Temperature,
			},
		}, nil
	case FamilyGeneric:
		return &GenericRequest{
			Model:       m.Name,
			Prompt:      userPrompt,
			MaxTokens:   m.MaxTokens,
			Temperature: m.Temperature,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown provider family %q", docgen.ErrConfiguration, family)
	}
}
