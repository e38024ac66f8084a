package docgen

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/codedoc/internal/adapter/ai/provider"
	"github.com/specvital/codedoc/internal/domain/docgen"
)

func TestConsolidate(t *testing.T) {
	tests := []struct {
		name    string
		results []docgen.GenerationResult
		want    string
		wantOK  bool
	}{
		{"no results", nil, "", false},
		{"only failures", []docgen.GenerationResult{failed("a", docgen.ProvenanceError), failed("b", docgen.ProvenanceTimedOut)}, "", false},
		{"blank success discarded", []docgen.GenerationResult{success("a", "  \n")}, "", false},
		{"single", []docgen.GenerationResult{success("a", "doc")}, "doc", true},
		{"longest wins", []docgen.GenerationResult{success("a", "short"), success("b", "much longer")}, "much longer", true},
		{"tie goes to first seen", []docgen.GenerationResult{success("a", "aaaa"), success("b", "bbbb")}, "aaaa", true},
		{"failure text never wins", []docgen.GenerationResult{success("a", "ok"), failed("very-long-model-name", docgen.ProvenanceError)}, "ok", true},
		{"counts characters not bytes", []docgen.GenerationResult{success("a", "ééé"), success("b", "abcd")}, "abcd", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Consolidate(tt.results)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

// Re-ordering results without length ties does not change the outcome.
func TestConsolidate_OrderIndependentWithoutTies(t *testing.T) {
	results := []docgen.GenerationResult{
		success("a", "one"),
		success("b", "three"),
		failed("c", docgen.ProvenanceTimedOut),
		success("d", "fourfour"),
	}
	want, _ := Consolidate(results)

	permute(results, 0, func(p []docgen.GenerationResult) {
		got, ok := Consolidate(p)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})
}

func permute(items []docgen.GenerationResult, k int, visit func([]docgen.GenerationResult)) {
	if k == len(items) {
		visit(items)
		return
	}
	for i := k; i < len(items); i++ {
		items[k], items[i] = items[i], items[k]
		permute(items, k+1, visit)
		items[k], items[i] = items[i], items[k]
	}
}

func TestOrchestrator_Widget(t *testing.T) {
	bodies := map[string]string{
		"llama3": `{"response":"short"}`,
		"gpt-4o": `{"choices":[{"message":{"content":"a longer explanation of Widget"}}]}`,
	}
	models := []docgen.ModelDescriptor{
		{Name: "llama3", MaxTokens: 64, Timeout: time.Second},
		{Name: "gpt-4o", Provider: "openai", MaxTokens: 64, Timeout: time.Second},
	}
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		return success(m.Name, provider.ParseResponse(bodies[m.Name], m))
	}}

	o := NewOrchestrator(caller, testPrompts, 4)
	gc := docgen.NewGenerationContext(models, docgen.DefaultPurposeLimits())
	widget := docgen.CodeElement{Kind: docgen.KindClass, Name: "Widget", QualifiedName: "Widget"}

	gen, err := o.GenerateDocumentation(context.Background(), gc, widget)

	require.NoError(t, err)
	assert.Equal(t, "a longer explanation of Widget", gen.Text)
	assert.Len(t, gen.Results, 2)
}

func TestOrchestrator_OneModelTimesOut(t *testing.T) {
	caller := &fakeCaller{generateFn: func(ctx context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		if m.Name == "slow" {
			time.Sleep(50 * time.Millisecond)
			return failed(m.Name, docgen.ProvenanceTimedOut)
		}
		if m.Name == "a" {
			return success(m.Name, "doc from a")
		}
		return success(m.Name, "longer doc from b")
	}}

	o := NewOrchestrator(caller, testPrompts, 4)
	gc := docgen.NewGenerationContext(testModels("a", "slow", "b"), nil)

	gen, err := o.GenerateDocumentation(context.Background(), gc, docgen.CodeElement{Kind: docgen.KindMethod, Name: "m", QualifiedName: "X.m"})

	require.NoError(t, err)
	assert.Equal(t, "longer doc from b", gen.Text)
	require.Len(t, gen.Results, 3)
	assert.Equal(t, docgen.ProvenanceTimedOut, gen.Results[1].Provenance)
}

func TestOrchestrator_CallsRunConcurrently(t *testing.T) {
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		time.Sleep(100 * time.Millisecond)
		return success(m.Name, m.Name)
	}}

	o := NewOrchestrator(caller, testPrompts, 8)
	gc := docgen.NewGenerationContext(testModels("a", "b", "c", "d"), nil)

	start := time.Now()
	_, err := o.GenerateDocumentation(context.Background(), gc, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 350*time.Millisecond)
}

func TestOrchestrator_EmptyModelList(t *testing.T) {
	o := NewOrchestrator(&fakeCaller{}, testPrompts, 1)
	gc := docgen.NewGenerationContext(nil, docgen.DefaultPurposeLimits())
	e := docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"}

	doc, err := o.GenerateDocumentation(context.Background(), gc, e)
	require.NoError(t, err)
	assert.Equal(t, NoDocumentationPlaceholder, doc.Text)

	examples, err := o.GenerateUsageExamples(context.Background(), gc, e)
	require.NoError(t, err)
	assert.Equal(t, NotConfiguredPlaceholder, examples.Text)

	tests, err := o.GenerateUnitTests(context.Background(), gc, e)
	require.NoError(t, err)
	assert.Equal(t, NotConfiguredPlaceholder, tests.Text)
}

func TestOrchestrator_AllModelsFail(t *testing.T) {
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		return failed(m.Name, docgen.ProvenanceError)
	}}
	o := NewOrchestrator(caller, testPrompts, 2)
	gc := docgen.NewGenerationContext(testModels("a", "b"), nil)
	e := docgen.CodeElement{Kind: docgen.KindMethod, Name: "m", QualifiedName: "X.m"}

	doc, err := o.GenerateDocumentation(context.Background(), gc, e)
	require.NoError(t, err)
	assert.Equal(t, NoDocumentationPlaceholder, doc.Text)

	examples, err := o.GenerateUsageExamples(context.Background(), gc, e)
	require.NoError(t, err)
	assert.Equal(t, "No usage examples generated.", examples.Text)
}

func TestOrchestrator_ExamplesAndTestsUseFirstModelOnly(t *testing.T) {
	var (
		mu    sync.Mutex
		calls = map[string][]docgen.Purpose{}
	)
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, prompt string) docgen.GenerationResult {
		purpose, _ := parsePrompt(prompt)
		mu.Lock()
		calls[m.Name] = append(calls[m.Name], purpose)
		mu.Unlock()
		return success(m.Name, "text")
	}}

	o := NewOrchestrator(caller, testPrompts, 4)
	gc := docgen.NewGenerationContext(testModels("first", "second", "third"), docgen.DefaultPurposeLimits())
	e := docgen.CodeElement{Kind: docgen.KindMethod, Name: "m", QualifiedName: "X.m"}

	_, err := o.GenerateUsageExamples(context.Background(), gc, e)
	require.NoError(t, err)
	_, err = o.GenerateUnitTests(context.Background(), gc, e)
	require.NoError(t, err)

	assert.Equal(t, []docgen.Purpose{docgen.PurposeUsageExamples, docgen.PurposeUnitTests}, calls["first"])
	assert.Empty(t, calls["second"])
	assert.Empty(t, calls["third"])
}

func TestOrchestrator_PurposeLimitKnob(t *testing.T) {
	var count atomic.Int32
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		count.Add(1)
		return success(m.Name, "text")
	}}

	o := NewOrchestrator(caller, testPrompts, 4)
	gc := docgen.NewGenerationContext(testModels("a", "b", "c"), docgen.PurposeLimits{docgen.PurposeUsageExamples: 0})

	gen, err := o.GenerateUsageExamples(context.Background(), gc, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), count.Load())
	assert.Len(t, gen.Results, 3)
}

func TestOrchestrator_ReleasedContext(t *testing.T) {
	o := NewOrchestrator(&fakeCaller{}, testPrompts, 1)
	gc := docgen.NewGenerationContext(testModels("a"), nil)
	gc.Release()

	_, err := o.GenerateDocumentation(context.Background(), gc, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
	assert.ErrorIs(t, err, docgen.ErrContextClosed)

	_, err = o.GenerateDocumentation(context.Background(), nil, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
	assert.ErrorIs(t, err, docgen.ErrContextClosed)
}

func TestOrchestrator_CancelledRun(t *testing.T) {
	var called atomic.Bool
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		called.Store(true)
		return success(m.Name, "text")
	}}
	o := NewOrchestrator(caller, testPrompts, 1)
	gc := docgen.NewGenerationContext(testModels("a"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.GenerateDocumentation(ctx, gc, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
	assert.ErrorIs(t, err, docgen.ErrRunCancelled)
	assert.False(t, called.Load())
}

func TestOrchestrator_CallerPanicIsolated(t *testing.T) {
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		if m.Name == "bad" {
			panic("boom")
		}
		return success(m.Name, "good docs")
	}}
	o := NewOrchestrator(caller, testPrompts, 2)
	gc := docgen.NewGenerationContext(testModels("bad", "good"), nil)

	var gen docgen.Generation
	require.NotPanics(t, func() {
		var err error
		gen, err = o.GenerateDocumentation(context.Background(), gc, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
		require.NoError(t, err)
	})
	assert.Equal(t, "good docs", gen.Text)
	assert.Equal(t, docgen.ProvenanceError, gen.Results[0].Provenance)
}

func TestOrchestrator_BoundsConcurrentCalls(t *testing.T) {
	var inFlight, peak atomic.Int32
	caller := &fakeCaller{generateFn: func(_ context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		return success(m.Name, strings.Repeat("x", 3))
	}}

	o := NewOrchestrator(caller, testPrompts, 2)
	gc := docgen.NewGenerationContext(testModels("a", "b", "c", "d", "e", "f"), nil)

	_, err := o.GenerateDocumentation(context.Background(), gc, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
	require.NoError(t, err)

	assert.LessOrEqual(t, peak.Load(), int32(2))
}

func TestOrchestrator_CancelledWhileWaitingForSlotIsLogged(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	var (
		once    sync.Once
		started = make(chan struct{})
	)
	caller := &fakeCaller{generateFn: func(ctx context.Context, m docgen.ModelDescriptor, _ string) docgen.GenerationResult {
		once.Do(func() { close(started) })
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return failed(m.Name, docgen.ProvenanceError)
	}}
	o := NewOrchestrator(caller, testPrompts, 1)
	gc := docgen.NewGenerationContext(testModels("a", "b"), nil)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-started
		cancel()
	}()

	gen, err := o.GenerateDocumentation(ctx, gc, docgen.CodeElement{Kind: docgen.KindClass, Name: "X", QualifiedName: "X"})
	require.NoError(t, err)
	require.Len(t, gen.Results, 2)
	assert.Equal(t, docgen.ProvenanceError, gen.Results[0].Provenance)
	assert.Equal(t, docgen.ProvenanceError, gen.Results[1].Provenance)

	logs := buf.String()
	assert.Contains(t, logs, `"msg":"model call skipped"`)
	assert.Contains(t, logs, "context canceled")
}
