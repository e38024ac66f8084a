package mock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

const qualifiedNamePrefix = "Qualified name: "

// Caller implements docgen.ModelCaller with deterministic responses derived from
// the prompt. Intended for local development and dry runs without network access.
type Caller struct {
	delay time.Duration
}

var _ docgen.ModelCaller = (*Caller)(nil)

// NewCaller creates a mock caller. A positive delay simulates model latency.
func NewCaller(delay time.Duration) *Caller {
	return &Caller{delay: delay}
}

// Generate returns a deterministic mock result for prompt.
func (c *Caller) Generate(ctx context.Context, model docgen.ModelDescriptor, prompt string) docgen.GenerationResult {
	start := time.Now()

	if c.delay > 0 {
		timer := time.NewTimer(c.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return docgen.GenerationResult{
				Duration:   time.Since(start),
				Model:      model.Name,
				Provenance: docgen.ProvenanceTimedOut,
				Text:       docgen.CallErrorText(model.Name),
			}
		case <-timer.C:
		}
	}

	return docgen.GenerationResult{
		Duration:   time.Since(start),
		Model:      model.Name,
		Provenance: docgen.ProvenanceSuccess,
		Text:       mockText(model.Name, prompt),
	}
}

func mockText(modelName, prompt string) string {
	subject := extractQualifiedName(prompt)
	readable := camelCaseToReadable(lastSegment(subject))

	firstLine, _, _ := strings.Cut(prompt, "\n")
	switch {
	case strings.HasPrefix(firstLine, "Write unit tests"):
		return fmt.Sprintf("[Mock %s] Tests for `%s`\n\n```\n// verifies that %s behaves as documented\n```", modelName, subject, readable)
	case strings.HasPrefix(firstLine, "Write"):
		return fmt.Sprintf("[Mock %s] Example using `%s`\n\n```\n%s(...)\n```", modelName, subject, subject)
	default:
		return fmt.Sprintf("[Mock %s] `%s` provides %s.", modelName, subject, readable)
	}
}

func extractQualifiedName(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if name, ok := strings.CutPrefix(line, qualifiedNamePrefix); ok {
			return strings.TrimSpace(name)
		}
	}
	return "unknown"
}

func lastSegment(qualified string) string {
	if i := strings.LastIndex(qualified, "."); i >= 0 {
		return qualified[i+1:]
	}
	return qualified
}

// camelCaseToReadable converts CamelCase or snake_case to readable format.
func camelCaseToReadable(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		if r == '_' {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.ToLower(strings.TrimSpace(result.String()))
}
