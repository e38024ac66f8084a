package docgen

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testModels(names ...string) []ModelDescriptor {
	models := make([]ModelDescriptor, len(names))
	for i, n := range names {
		models[i] = ModelDescriptor{Name: n, MaxTokens: 256, Timeout: time.Second}
	}
	return models
}

func TestNewGenerationContext_SnapshotsInputs(t *testing.T) {
	models := testModels("a", "b")
	limits := DefaultPurposeLimits()

	gc := NewGenerationContext(models, limits)

	models[0].Name = "mutated"
	limits[PurposeDocumentation] = 1

	assert.Equal(t, []string{"a", "b"}, gc.ModelNames())
	assert.Len(t, gc.ModelsFor(PurposeDocumentation), 2)
}

func TestGenerationContext_ModelsFor(t *testing.T) {
	gc := NewGenerationContext(testModels("a", "b", "c"), DefaultPurposeLimits())

	docs := gc.ModelsFor(PurposeDocumentation)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].Name)

	examples := gc.ModelsFor(PurposeUsageExamples)
	require.Len(t, examples, 1)
	assert.Equal(t, "a", examples[0].Name)

	tests := gc.ModelsFor(PurposeUnitTests)
	require.Len(t, tests, 1)
	assert.Equal(t, "a", tests[0].Name)
}

func TestGenerationContext_ModelsForLimitAboveCount(t *testing.T) {
	gc := NewGenerationContext(testModels("a"), PurposeLimits{PurposeUsageExamples: 5})

	assert.Len(t, gc.ModelsFor(PurposeUsageExamples), 1)
}

func TestGenerationContext_EmptyModels(t *testing.T) {
	gc := NewGenerationContext(nil, DefaultPurposeLimits())

	assert.Empty(t, gc.ModelsFor(PurposeDocumentation))
	assert.Empty(t, gc.ModelsFor(PurposeUsageExamples))
}

func TestGenerationContext_ModelsReturnsCopy(t *testing.T) {
	gc := NewGenerationContext(testModels("a"), nil)

	got := gc.Models()
	got[0].Name = "changed"

	assert.Equal(t, "a", gc.Models()[0].Name)
}

func TestGenerationContext_UniqueRunIDs(t *testing.T) {
	a := NewGenerationContext(testModels("a"), nil)
	b := NewGenerationContext(testModels("a"), nil)

	assert.NotEmpty(t, a.RunID())
	assert.NotEqual(t, a.RunID(), b.RunID())
}

func TestGenerationContext_ReleaseOnce(t *testing.T) {
	gc := NewGenerationContext(testModels("a"), nil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		released int
	)
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if gc.Release() {
				mu.Lock()
				released++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, released)
	assert.True(t, gc.Released())
}
