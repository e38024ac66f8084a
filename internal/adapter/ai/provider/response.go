package provider

import (
	"encoding/json"
	"strings"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

// genericFields are tried in order when the family-specific shape does not match.
var genericFields = []string{"text", "content", "response", "output", "result"}

// ParseResponse extracts the generated text from a raw response body. It never fails:
// bodies that are not JSON objects, or that carry none of the known fields, are
// returned unchanged.
func ParseResponse(raw string, m docgen.ModelDescriptor) string {
	var body map[string]any
	if err := json.Unmarshal([]byte(raw), &body); err != nil || body == nil {
		return raw
	}

	var (
		text string
		ok   bool
	)
	switch Classify(m) {
	case FamilyLocal:
		text, ok = stringField(body, "response")
	case FamilyChat:
		text, ok = chatText(body)
	case FamilyGemini:
		text, ok = geminiText(body)
	}
	if ok {
		return text
	}

	for _, field := range genericFields {
		if text, ok := stringField(body, field); ok {
			return text
		}
	}
	return raw
}

func stringField(obj map[string]any, key string) (string, bool) {
	s, ok := obj[key].(string)
	return s, ok
}

func firstObject(obj map[string]any, key string) (map[string]any, bool) {
	list, ok := obj[key].([]any)
	if !ok || len(list) == 0 {
		return nil, false
	}
	first, ok := list[0].(map[string]any)
	return first, ok
}

// chatText reads choices[0].message.content, then choices[0].text.
func chatText(body map[string]any) (string, bool) {
	choice, ok := firstObject(body, "choices")
	if !ok {
		return "", false
	}
	if msg, ok := choice["message"].(map[string]any); ok {
		if content, ok := stringField(msg, "content"); ok {
			return content, true
		}
	}
	return stringField(choice, "text")
}

// geminiText concatenates candidates[0].content.parts[*].text.
func geminiText(body map[string]any) (string, bool) {
	candidate, ok := firstObject(body, "candidates")
	if !ok {
		return "", false
	}
	content, ok := candidate["content"].(map[string]any)
	if !ok {
		return "", false
	}
	parts, ok := content["parts"].([]any)
	if !ok {
		return "", false
	}

	var (
		sb    strings.Builder
		found bool
	)
	for _, p := range parts {
		part, ok := p.(map[string]any)
		if !ok {
			continue
		}
		// thought parts carry reasoning, not the answer
		if thought, _ := part["thought"].(bool); thought {
			continue
		}
		if text, ok := stringField(part, "text"); ok {
			sb.WriteString(text)
			found = true
		}
	}
	return sb.String(), found
}
