package docgen

import (
	"slices"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// PurposeLimits caps how many models are asked for each purpose. Zero or a missing
// entry means every configured model.
type PurposeLimits map[Purpose]int

// DefaultPurposeLimits fans documentation out to every model and uses only the first
// model for usage examples and unit tests.
func DefaultPurposeLimits() PurposeLimits {
	return PurposeLimits{
		PurposeDocumentation: 0,
		PurposeUsageExamples: 1,
		PurposeUnitTests:     1,
	}
}

// GenerationContext is the configuration of one generation run. It is created before
// any task of the run is scheduled, handed to every task explicitly, and released by
// the run's owner once all tasks have returned. It is never shared between runs.
type GenerationContext struct {
	createdAt time.Time
	limits    PurposeLimits
	models    []ModelDescriptor
	released  atomic.Bool
	runID     string
}

// NewGenerationContext snapshots models and limits into a new run-scoped context.
func NewGenerationContext(models []ModelDescriptor, limits PurposeLimits) *GenerationContext {
	l := make(PurposeLimits, len(limits))
	for p, n := range limits {
		l[p] = n
	}
	return &GenerationContext{
		createdAt: time.Now(),
		limits:    l,
		models:    slices.Clone(models),
		runID:     uuid.NewString(),
	}
}

// RunID returns the unique identifier of the run that owns this context.
func (gc *GenerationContext) RunID() string {
	return gc.runID
}

// CreatedAt returns when the context was attached.
func (gc *GenerationContext) CreatedAt() time.Time {
	return gc.createdAt
}

// Models returns a copy of the ordered model list.
func (gc *GenerationContext) Models() []ModelDescriptor {
	return slices.Clone(gc.models)
}

// ModelNames returns the configured model names in order.
func (gc *GenerationContext) ModelNames() []string {
	names := make([]string, len(gc.models))
	for i, m := range gc.models {
		names[i] = m.Name
	}
	return names
}

// ModelsFor returns the leading models allowed for the purpose.
func (gc *GenerationContext) ModelsFor(p Purpose) []ModelDescriptor {
	n := gc.limits[p]
	if n <= 0 || n > len(gc.models) {
		n = len(gc.models)
	}
	return slices.Clone(gc.models[:n])
}

// Limit returns the configured cap for the purpose (0 means all models).
func (gc *GenerationContext) Limit(p Purpose) int {
	return gc.limits[p]
}

// Release marks the context as finished. It returns false if it was already released.
func (gc *GenerationContext) Release() bool {
	return gc.released.CompareAndSwap(false, true)
}

// Released reports whether the owning run has finished.
func (gc *GenerationContext) Released() bool {
	return gc.released.Load()
}
