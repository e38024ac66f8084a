package docgen

import (
	"fmt"
	"strings"
	"time"
)

// ElementKind identifies what a code element is.
type ElementKind string

const (
	KindClass  ElementKind = "class"
	KindField  ElementKind = "field"
	KindMethod ElementKind = "method"
)

// IsValid checks if the kind is one of the supported values.
func (k ElementKind) IsValid() bool {
	switch k {
	case KindClass, KindField, KindMethod:
		return true
	default:
		return false
	}
}

// Purpose is what a generation request asks the model to produce.
type Purpose string

const (
	PurposeDocumentation Purpose = "documentation"
	PurposeUsageExamples Purpose = "usage-examples"
	PurposeUnitTests     Purpose = "unit-tests"
)

// Label returns the human-readable name used in placeholders and logs.
func (p Purpose) Label() string {
	switch p {
	case PurposeDocumentation:
		return "documentation"
	case PurposeUsageExamples:
		return "usage examples"
	case PurposeUnitTests:
		return "unit tests"
	default:
		return string(p)
	}
}

// ModelDescriptor describes one configured model. Values are never mutated after
// configuration is loaded.
type ModelDescriptor struct {
	APIKey      string
	Endpoint    string
	MaxTokens   int
	Name        string
	Provider    string // family hint, e.g. "openai", "ollama", "gemini"
	Temperature float64
	Timeout     time.Duration
}

// Validate reports descriptor fields that make every call fail.
func (m ModelDescriptor) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidInput)
	}
	if m.Timeout <= 0 {
		return fmt.Errorf("%w: model %q: timeout must be positive", ErrInvalidInput, m.Name)
	}
	if m.MaxTokens <= 0 {
		return fmt.Errorf("%w: model %q: max tokens must be positive", ErrInvalidInput, m.Name)
	}
	return nil
}

// Parameter is a single parameter of a method element.
type Parameter struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// CodeElement is a class, field or method produced by an upstream parser.
type CodeElement struct {
	Annotations   []string    `json:"annotations,omitempty"`
	Context       string      `json:"context,omitempty"` // text sent to the model
	FilePath      string      `json:"file_path,omitempty"`
	Kind          ElementKind `json:"kind"`
	Line          int         `json:"line,omitempty"`
	Name          string      `json:"name"`
	Parameters    []Parameter `json:"parameters,omitempty"`
	QualifiedName string      `json:"qualified_name"`
	Signature     string      `json:"signature,omitempty"`
}

// Validate checks the fields the assembler relies on.
func (e CodeElement) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("%w: unsupported element kind %q", ErrInvalidInput, e.Kind)
	}
	if e.Name == "" {
		return fmt.Errorf("%w: element name is required", ErrInvalidInput)
	}
	if e.QualifiedName == "" {
		return fmt.Errorf("%w: element %q: qualified name is required", ErrInvalidInput, e.Name)
	}
	return nil
}

// DisplayName returns the signature when present, else the short name.
func (e CodeElement) DisplayName() string {
	if e.Signature != "" {
		return e.Signature
	}
	return e.Name
}

// GenerationRequest pairs an element with what should be generated for it.
type GenerationRequest struct {
	Element CodeElement
	Purpose Purpose
}

// Provenance records how a single model call ended.
type Provenance string

const (
	ProvenanceSuccess  Provenance = "success"
	ProvenanceTimedOut Provenance = "timed_out"
	ProvenanceError    Provenance = "error"
)

// GenerationResult is the outcome of one model call.
type GenerationResult struct {
	Duration   time.Duration
	Model      string
	Provenance Provenance
	Text       string
}

// Succeeded reports whether the result carries usable generated text.
func (r GenerationResult) Succeeded() bool {
	return r.Provenance == ProvenanceSuccess && strings.TrimSpace(r.Text) != ""
}

// CallErrorText is the text of a result whose model call failed.
func CallErrorText(modelName string) string {
	return "Error generating content with " + modelName
}

// Generation is the consolidated output for one (element, purpose) pair.
type Generation struct {
	Purpose Purpose
	Results []GenerationResult
	Text    string
}

// ElementDoc holds everything generated for one element of a cluster.
type ElementDoc struct {
	Documentation string
	Element       CodeElement
	Examples      string
	UnitTests     string
}

// ClassDocument is the assembled document for one cluster.
type ClassDocument struct {
	CachedFromRun string // run that generated the sections, when served from the cache
	Class         *ElementDoc
	Fields        []ElementDoc
	GeneratedAt   time.Time
	Key           string
	Methods       []ElementDoc
	Models        []string
	RunID         string
	Title         string
}

// HasMembers reports whether the document needs a table of contents.
func (d *ClassDocument) HasMembers() bool {
	return len(d.Fields) > 0 || len(d.Methods) > 0
}

// ClusterFailure records a cluster that could not be rendered or written.
type ClusterFailure struct {
	Err        error
	ClusterKey string
	Stage      string
}

// RunSummary is the aggregate end-of-run report.
type RunSummary struct {
	CachedClusters int
	Calls          map[Provenance]int
	ClusterCount   int
	Documents      []string // relative paths written
	Duration       time.Duration
	ElementCount   int
	Failures       []ClusterFailure
	RunID          string
}

// FailedClusters returns the number of clusters that produced no document.
func (s *RunSummary) FailedClusters() int {
	return len(s.Failures)
}

// StoredDocument is a rendered document kept in the document cache.
type StoredDocument struct {
	ClusterKey  string
	Content     []byte
	ContentHash []byte
	CreatedAt   time.Time
	ID          string
	Path        string
	RunID       string
}
