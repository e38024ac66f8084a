package docgen

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

type fakeCaller struct {
	generateFn func(ctx context.Context, model docgen.ModelDescriptor, prompt string) docgen.GenerationResult
}

func (f *fakeCaller) Generate(ctx context.Context, model docgen.ModelDescriptor, prompt string) docgen.GenerationResult {
	if f.generateFn != nil {
		return f.generateFn(ctx, model, prompt)
	}
	return docgen.GenerationResult{
		Model:      model.Name,
		Provenance: docgen.ProvenanceSuccess,
		Text:       fmt.Sprintf("%s says %s", model.Name, prompt),
	}
}

func success(model, text string) docgen.GenerationResult {
	return docgen.GenerationResult{Model: model, Provenance: docgen.ProvenanceSuccess, Text: text}
}

func failed(model string, p docgen.Provenance) docgen.GenerationResult {
	return docgen.GenerationResult{Model: model, Provenance: p, Text: docgen.CallErrorText(model)}
}

// testPrompts encodes purpose and element so fakes can route on them.
func testPrompts(purpose docgen.Purpose, e docgen.CodeElement) string {
	return string(purpose) + ":" + e.QualifiedName
}

func parsePrompt(prompt string) (docgen.Purpose, string) {
	purpose, name, _ := strings.Cut(prompt, ":")
	return docgen.Purpose(purpose), name
}

func testModels(names ...string) []docgen.ModelDescriptor {
	models := make([]docgen.ModelDescriptor, len(names))
	for i, n := range names {
		models[i] = docgen.ModelDescriptor{Name: n, MaxTokens: 256, Timeout: time.Second}
	}
	return models
}

type fakeRenderer struct {
	renderFn func(doc *docgen.ClassDocument) ([]byte, error)
}

func (f *fakeRenderer) Extension() string { return ".md" }

func (f *fakeRenderer) RenderHeader(doc *docgen.ClassDocument) ([]byte, error) {
	header := fmt.Sprintf("# %s\nrun=%s models=%s\n", doc.Title, doc.RunID, strings.Join(doc.Models, ","))
	if doc.CachedFromRun != "" {
		header += "cached=" + doc.CachedFromRun + "\n"
	}
	return []byte(header), nil
}

func (f *fakeRenderer) RenderBody(doc *docgen.ClassDocument) ([]byte, error) {
	if f.renderFn != nil {
		return f.renderFn(doc)
	}
	var sb strings.Builder
	if doc.Class != nil {
		fmt.Fprintf(&sb, "class: %s | %s\n", doc.Class.Documentation, doc.Class.Examples)
	}
	for _, fd := range doc.Fields {
		fmt.Fprintf(&sb, "field %s: %s | %s\n", fd.Element.Name, fd.Documentation, fd.Examples)
	}
	for _, m := range doc.Methods {
		fmt.Fprintf(&sb, "method %s: %s | %s | %s\n", m.Element.Name, m.Documentation, m.Examples, m.UnitTests)
	}
	return []byte(sb.String()), nil
}

type fakeWriter struct {
	mu      sync.Mutex
	files   map[string][]byte
	writeFn func(relPath string) error
}

func newFakeWriter() *fakeWriter {
	return &fakeWriter{files: make(map[string][]byte)}
}

func (f *fakeWriter) Write(ctx context.Context, relPath string, content []byte) error {
	if f.writeFn != nil {
		if err := f.writeFn(relPath); err != nil {
			return err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[relPath] = content
	return nil
}

func (f *fakeWriter) get(relPath string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	content, ok := f.files[relPath]
	return string(content), ok
}

type fakeRepository struct {
	findDocumentByContentHashFn func(ctx context.Context, contentHash []byte) (*docgen.StoredDocument, error)
	saveDocumentFn              func(ctx context.Context, doc *docgen.StoredDocument) error
	saveRunSummaryFn            func(ctx context.Context, summary *docgen.RunSummary) error
}

func (m *fakeRepository) FindDocumentByContentHash(ctx context.Context, contentHash []byte) (*docgen.StoredDocument, error) {
	if m.findDocumentByContentHashFn != nil {
		return m.findDocumentByContentHashFn(ctx, contentHash)
	}
	return nil, nil
}

func (m *fakeRepository) SaveDocument(ctx context.Context, doc *docgen.StoredDocument) error {
	if m.saveDocumentFn != nil {
		return m.saveDocumentFn(ctx, doc)
	}
	return nil
}

func (m *fakeRepository) SaveRunSummary(ctx context.Context, summary *docgen.RunSummary) error {
	if m.saveRunSummaryFn != nil {
		return m.saveRunSummaryFn(ctx, summary)
	}
	return nil
}

// memoryRepository keeps documents by content hash, like the Postgres cache.
type memoryRepository struct {
	mu   sync.Mutex
	docs map[string]*docgen.StoredDocument
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{docs: make(map[string]*docgen.StoredDocument)}
}

func (m *memoryRepository) FindDocumentByContentHash(_ context.Context, contentHash []byte) (*docgen.StoredDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[string(contentHash)], nil
}

func (m *memoryRepository) SaveDocument(_ context.Context, doc *docgen.StoredDocument) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[string(doc.ContentHash)] = doc
	return nil
}

func (m *memoryRepository) SaveRunSummary(context.Context, *docgen.RunSummary) error {
	return nil
}

func widgetElements() []docgen.CodeElement {
	return []docgen.CodeElement{
		{Kind: docgen.KindClass, Name: "Widget", QualifiedName: "com.acme.Widget"},
		{Kind: docgen.KindField, Name: "size", QualifiedName: "com.acme.Widget.size"},
		{Kind: docgen.KindMethod, Name: "draw", QualifiedName: "com.acme.Widget.draw"},
		{Kind: docgen.KindClass, Name: "Gadget", QualifiedName: "com.acme.Gadget"},
		{Kind: docgen.KindMethod, Name: "run", QualifiedName: "com.acme.Gadget.run"},
		{Kind: docgen.KindField, Name: "cfg", QualifiedName: "cfg"},
	}
}
