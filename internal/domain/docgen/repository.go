package docgen

import "context"

// ModelCaller performs one generation call against one model. Implementations
// never panic and never return an error: failures are reported through the
// result's provenance and a descriptive text.
type ModelCaller interface {
	Generate(ctx context.Context, model ModelDescriptor, prompt string) GenerationResult
}

// PromptBuilder turns an element into the user prompt for purpose.
type PromptBuilder func(purpose Purpose, element CodeElement) string

// DocumentRenderer turns an assembled document into bytes. The header carries what
// is specific to a run (title, run id, time, models); the body carries the generated
// sections and is what the document cache stores. Header followed by body is the
// complete document.
type DocumentRenderer interface {
	// Extension returns the file extension including the leading dot.
	Extension() string
	RenderHeader(doc *ClassDocument) ([]byte, error)
	RenderBody(doc *ClassDocument) ([]byte, error)
}

// DocumentWriter persists rendered documents. relPath is relative to an output
// root the core does not know.
type DocumentWriter interface {
	Write(ctx context.Context, relPath string, content []byte) error
}

// DocumentRepository caches rendered documents by content hash and archives runs.
type DocumentRepository interface {
	// FindDocumentByContentHash returns nil without error when nothing is cached.
	FindDocumentByContentHash(ctx context.Context, contentHash []byte) (*StoredDocument, error)

	SaveDocument(ctx context.Context, doc *StoredDocument) error

	SaveRunSummary(ctx context.Context, summary *RunSummary) error
}
