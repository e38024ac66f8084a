package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/specvital/codedoc/internal/adapter/ai/provider"
	"github.com/specvital/codedoc/internal/domain/docgen"
)

// clientKey identifies one SDK client. Clients are reused across calls that share
// credentials and base URL.
type clientKey struct {
	APIKey  string
	BaseURL string
}

// Transport sends Gemini-family requests through the genai SDK. It implements
// provider.SDKTransport.
type Transport struct {
	mu      sync.RWMutex
	clients map[clientKey]*genai.Client
}

var _ provider.SDKTransport = (*Transport)(nil)

// NewTransport creates a transport with an empty client cache.
func NewTransport() *Transport {
	return &Transport{
		clients: make(map[clientKey]*genai.Client),
	}
}

// Send performs a generateContent call and returns the SDK response as JSON.
func (t *Transport) Send(ctx context.Context, m docgen.ModelDescriptor, endpoint string, req *provider.GeminiRequest) ([]byte, error) {
	client, err := t.client(ctx, clientKey{APIKey: m.APIKey, BaseURL: baseURL(endpoint)})
	if err != nil {
		return nil, err
	}

	result, err := client.Models.GenerateContent(ctx, m.Name, toContents(req), toConfig(req))
	if err != nil {
		return nil, fmt.Errorf("%w: gemini generate content: %w", docgen.ErrNetwork, err)
	}

	if len(result.Candidates) > 0 {
		candidate := result.Candidates[0]
		switch candidate.FinishReason {
		case genai.FinishReasonMaxTokens:
			// truncated text is still usable documentation
			slog.WarnContext(ctx, "gemini output truncated due to token limit",
				"model", m.Name,
				"finish_reason", candidate.FinishReason,
			)
		case genai.FinishReasonSafety, genai.FinishReasonRecitation, genai.FinishReasonBlocklist, genai.FinishReasonProhibitedContent, genai.FinishReasonSPII:
			return nil, fmt.Errorf("%w: gemini content blocked (%s)", docgen.ErrUnexpectedBody, candidate.FinishReason)
		}
	}

	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal gemini response: %w", err)
	}
	return data, nil
}

func (t *Transport) client(ctx context.Context, key clientKey) (*genai.Client, error) {
	t.mu.RLock()
	c, ok := t.clients[key]
	t.mu.RUnlock()
	if ok {
		return c, nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if c, ok := t.clients[key]; ok {
		return c, nil
	}

	config := &genai.ClientConfig{
		APIKey:  key.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if key.BaseURL != "" {
		config.HTTPOptions = genai.HTTPOptions{BaseURL: key.BaseURL}
	}

	c, err := genai.NewClient(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %w", docgen.ErrConfiguration, err)
	}
	t.clients[key] = c
	return c, nil
}

// baseURL drops the default endpoint so the SDK picks its own.
func baseURL(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || endpoint == provider.DefaultGeminiEndpoint {
		return ""
	}
	return endpoint
}

func toContents(req *provider.GeminiRequest) []*genai.Content {
	contents := make([]*genai.Content, 0, len(req.Contents))
	for _, c := range req.Contents {
		contents = append(contents, toContent(c))
	}
	return contents
}

func toContent(c provider.GeminiContent) *genai.Content {
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		parts = append(parts, &genai.Part{Text: p.Text})
	}
	return &genai.Content{Role: c.Role, Parts: parts}
}

func toConfig(req *provider.GeminiRequest) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(req.GenerationConfig.Temperature)),
	}
	if req.GenerationConfig.MaxOutputTokens > 0 {
		config.MaxOutputTokens = int32(req.GenerationConfig.MaxOutputTokens)
	}
	if req.SystemInstruction != nil {
		config.SystemInstruction = toContent(*req.SystemInstruction)
	}
	return config
}
