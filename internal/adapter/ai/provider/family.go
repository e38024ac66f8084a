package provider

import (
	"fmt"
	"strings"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

// Family is the wire-protocol family of a model endpoint.
type Family string

const (
	FamilyLocal   Family = "local_generation"
	FamilyChat    Family = "chat_completion"
	FamilyGemini  Family = "gemini"
	FamilyGeneric Family = "generic"
)

const (
	// LocalPortToken marks an endpoint served by a local generation server.
	LocalPortToken = ":11434"

	DefaultLocalEndpoint  = "http://localhost:11434/api/generate"
	DefaultGeminiEndpoint = "https://generativelanguage.googleapis.com/"
)

var localNameFragments = []string{
	"llama",
	"mistral",
	"codellama",
	"phi",
	"gemma",
	"qwen",
	"vicuna",
	"orca",
	"starcoder",
	"tinyllama",
}

// chatProviderEndpoints maps a provider token to its default chat completions URL.
// An empty URL means the provider is recognized but has no usable default.
var chatProviderEndpoints = map[string]string{
	"openai":     "https://api.openai.com/v1/chat/completions",
	"openrouter": "https://openrouter.ai/api/v1/chat/completions",
	"groq":       "https://api.groq.com/openai/v1/chat/completions",
	"together":   "https://api.together.xyz/v1/chat/completions",
	"deepseek":   "https://api.deepseek.com/chat/completions",
	"xai":        "https://api.x.ai/v1/chat/completions",
	"azure":      "",
}

var chatHostFragments = []string{
	"api.openai.com",
	"openrouter.ai",
	"api.groq.com",
	"api.together.xyz",
	"api.deepseek.com",
	"api.x.ai",
	"openai.azure.com",
	"/chat/completions",
}

// chatNamePrefixes identify hosted chat models by name when neither a provider token
// nor an endpoint is configured. Checked in order.
var chatNamePrefixes = []struct {
	prefix   string
	provider string
}{
	{"gpt-", "openai"},
	{"o1", "openai"},
	{"o3", "openai"},
	{"o4", "openai"},
	{"deepseek-", "deepseek"},
	{"grok-", "xai"},
}

const geminiHostFragment = "generativelanguage.googleapis.com"

// ConfigError reports a model whose calls cannot be made because its configuration
// is incomplete.
type ConfigError struct {
	Model   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("model %q: %s", e.Model, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return docgen.ErrConfiguration
}

// Classify determines the wire-protocol family of a model. It is a pure function of
// the descriptor.
func Classify(m docgen.ModelDescriptor) Family {
	endpoint := strings.ToLower(strings.TrimSpace(m.Endpoint))
	name := strings.ToLower(m.Name)
	provider := strings.ToLower(strings.TrimSpace(m.Provider))

	if strings.Contains(endpoint, LocalPortToken) {
		return FamilyLocal
	}
	if endpoint == "" && matchesAny(name, localNameFragments) {
		return FamilyLocal
	}
	if _, ok := chatProviderEndpoints[provider]; ok || matchesAny(endpoint, chatHostFragments) {
		return FamilyChat
	}
	if endpoint == "" && chatProviderForName(name) != "" {
		return FamilyChat
	}
	if provider == "gemini" || provider == "google" || strings.Contains(endpoint, geminiHostFragment) {
		return FamilyGemini
	}
	return FamilyGeneric
}

// ResolveEndpoint returns the configured endpoint verbatim, or the family default.
// It never returns an empty URL with a nil error.
func ResolveEndpoint(m docgen.ModelDescriptor) (string, error) {
	if endpoint := strings.TrimSpace(m.Endpoint); endpoint != "" {
		return m.Endpoint, nil
	}

	switch Classify(m) {
	case FamilyLocal:
		return DefaultLocalEndpoint, nil
	case FamilyChat:
		if url := defaultChatEndpoint(m); url != "" {
			return url, nil
		}
		return "", &ConfigError{Model: m.Name, Message: "no default chat completions endpoint; set endpoint explicitly"}
	case FamilyGemini:
		return DefaultGeminiEndpoint, nil
	default:
		return "", &ConfigError{Model: m.Name, Message: "unknown provider family and no endpoint configured"}
	}
}

func defaultChatEndpoint(m docgen.ModelDescriptor) string {
	if url, ok := chatProviderEndpoints[strings.ToLower(strings.TrimSpace(m.Provider))]; ok {
		return url
	}
	return chatProviderEndpoints[chatProviderForName(strings.ToLower(m.Name))]
}

func chatProviderForName(name string) string {
	for _, p := range chatNamePrefixes {
		if strings.HasPrefix(name, p.prefix) {
			return p.provider
		}
	}
	return ""
}

func matchesAny(s string, fragments []string) bool {
	if s == "" {
		return false
	}
	for _, f := range fragments {
		if strings.Contains(s, f) {
			return true
		}
	}
	return false
}
