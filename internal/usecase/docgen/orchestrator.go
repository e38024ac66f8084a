package docgen

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"unicode/utf8"

	"golang.org/x/sync/semaphore"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

const (
	NoDocumentationPlaceholder = "No documentation generated."
	NotConfiguredPlaceholder   = "Not configured: no model available."

	DefaultMaxConcurrentCalls = int64(8)
)

// Orchestrator fans one generation request out to the models of a run and
// consolidates their results.
type Orchestrator struct {
	caller  docgen.ModelCaller
	callSem *semaphore.Weighted
	prompts docgen.PromptBuilder
}

// NewOrchestrator creates an orchestrator. maxConcurrentCalls bounds outbound calls
// across every element and run served by this orchestrator.
func NewOrchestrator(caller docgen.ModelCaller, prompts docgen.PromptBuilder, maxConcurrentCalls int64) *Orchestrator {
	if maxConcurrentCalls <= 0 {
		maxConcurrentCalls = DefaultMaxConcurrentCalls
	}
	return &Orchestrator{
		caller:  caller,
		callSem: semaphore.NewWeighted(maxConcurrentCalls),
		prompts: prompts,
	}
}

// GenerateDocumentation asks every model of the run for documentation of e and keeps
// the longest successful answer.
func (o *Orchestrator) GenerateDocumentation(ctx context.Context, gc *docgen.GenerationContext, e docgen.CodeElement) (docgen.Generation, error) {
	return o.generate(ctx, gc, e, docgen.PurposeDocumentation)
}

// GenerateUsageExamples asks the models allowed for usage examples, by default only
// the first one.
func (o *Orchestrator) GenerateUsageExamples(ctx context.Context, gc *docgen.GenerationContext, e docgen.CodeElement) (docgen.Generation, error) {
	return o.generate(ctx, gc, e, docgen.PurposeUsageExamples)
}

// GenerateUnitTests asks the models allowed for unit tests, by default only the
// first one.
func (o *Orchestrator) GenerateUnitTests(ctx context.Context, gc *docgen.GenerationContext, e docgen.CodeElement) (docgen.Generation, error) {
	return o.generate(ctx, gc, e, docgen.PurposeUnitTests)
}

// Generate dispatches on purpose.
func (o *Orchestrator) Generate(ctx context.Context, gc *docgen.GenerationContext, e docgen.CodeElement, purpose docgen.Purpose) (docgen.Generation, error) {
	return o.generate(ctx, gc, e, purpose)
}

func (o *Orchestrator) generate(ctx context.Context, gc *docgen.GenerationContext, e docgen.CodeElement, purpose docgen.Purpose) (docgen.Generation, error) {
	if gc == nil || gc.Released() {
		return docgen.Generation{}, docgen.ErrContextClosed
	}
	if err := ctx.Err(); err != nil {
		return docgen.Generation{}, fmt.Errorf("%w: %w", docgen.ErrRunCancelled, err)
	}

	models := gc.ModelsFor(purpose)
	if len(models) == 0 {
		text := NotConfiguredPlaceholder
		if purpose == docgen.PurposeDocumentation {
			text = NoDocumentationPlaceholder
		}
		return docgen.Generation{Purpose: purpose, Text: text}, nil
	}

	prompt := o.prompts(purpose, e)
	results := make([]docgen.GenerationResult, len(models))

	// every call is awaited before consolidating; slots keep model order
	var wg sync.WaitGroup
	for i, m := range models {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = o.call(ctx, m, prompt)
		}()
	}
	wg.Wait()

	text, ok := Consolidate(results)
	if !ok {
		text = noContentPlaceholder(purpose)
	}
	return docgen.Generation{Purpose: purpose, Results: results, Text: text}, nil
}

func (o *Orchestrator) call(ctx context.Context, m docgen.ModelDescriptor, prompt string) (result docgen.GenerationResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "model call panicked",
				"model", m.Name,
				"panic", r,
			)
			result = docgen.GenerationResult{
				Model:      m.Name,
				Provenance: docgen.ProvenanceError,
				Text:       docgen.CallErrorText(m.Name),
			}
		}
	}()

	if err := o.callSem.Acquire(ctx, 1); err != nil {
		// run cancelled while waiting for a slot; the call is never started
		slog.WarnContext(ctx, "model call skipped",
			"model", m.Name,
			"error", err,
		)
		return docgen.GenerationResult{
			Model:      m.Name,
			Provenance: docgen.ProvenanceError,
			Text:       docgen.CallErrorText(m.Name),
		}
	}
	defer o.callSem.Release(1)

	return o.caller.Generate(ctx, m, prompt)
}

// Consolidate picks the longest successful, non-blank result. Exact-length ties go
// to the earliest result. It reports false when no result is usable.
func Consolidate(results []docgen.GenerationResult) (string, bool) {
	var (
		best    string
		bestLen = -1
	)
	for _, r := range results {
		if !r.Succeeded() {
			continue
		}
		if n := utf8.RuneCountInString(r.Text); n > bestLen {
			best, bestLen = r.Text, n
		}
	}
	return best, bestLen >= 0
}

func noContentPlaceholder(purpose docgen.Purpose) string {
	if purpose == docgen.PurposeDocumentation {
		return NoDocumentationPlaceholder
	}
	return fmt.Sprintf("No %s generated.", purpose.Label())
}
