// Package markdown renders assembled class documents as Markdown.
package markdown

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

const Extension = ".md"

// Renderer implements docgen.DocumentRenderer. It is safe for concurrent use.
type Renderer struct {
	lang language.Tag
}

var _ docgen.DocumentRenderer = (*Renderer)(nil)

func NewRenderer() *Renderer {
	return &Renderer{lang: language.English}
}

func (r *Renderer) Extension() string {
	return Extension
}

// Render returns the complete document: header followed by body.
func (r *Renderer) Render(doc *docgen.ClassDocument) ([]byte, error) {
	header, err := r.RenderHeader(doc)
	if err != nil {
		return nil, err
	}
	body, err := r.RenderBody(doc)
	if err != nil {
		return nil, err
	}
	return []byte(strings.TrimRight(string(header)+string(body), "\n") + "\n"), nil
}

// RenderHeader writes the title and the provenance line.
func (r *Renderer) RenderHeader(doc *docgen.ClassDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", docgen.ErrInvalidInput)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", doc.Title)
	r.writeMeta(&sb, doc)
	return []byte(sb.String()), nil
}

// RenderBody writes the class sections, a table of contents when the cluster has
// members, then one section per field and method. It ends with a single newline, or
// is empty when there is nothing to show.
func (r *Renderer) RenderBody(doc *docgen.ClassDocument) ([]byte, error) {
	if doc == nil {
		return nil, fmt.Errorf("%w: nil document", docgen.ErrInvalidInput)
	}

	var (
		sb      strings.Builder
		anchors = newAnchorSet()
	)

	// the title heading lives in the header but still claims its anchor
	anchors.add(doc.Title)

	if doc.Class != nil {
		if strings.TrimSpace(doc.Class.Documentation) != "" {
			anchors.add(r.heading(docgen.PurposeDocumentation))
		}
		if strings.TrimSpace(doc.Class.Examples) != "" {
			anchors.add(r.heading(docgen.PurposeUsageExamples))
		}
		writeSignature(&sb, doc.Class.Element)
		writeSection(&sb, "##", r.heading(docgen.PurposeDocumentation), doc.Class.Documentation)
		writeSection(&sb, "##", r.heading(docgen.PurposeUsageExamples), doc.Class.Examples)
	}

	if doc.HasMembers() {
		anchors.add("Contents")
		sb.WriteString("## Contents\n\n")
		if len(doc.Fields) > 0 {
			fmt.Fprintf(&sb, "- [Fields](#%s)\n", anchors.add("Fields"))
			for _, f := range doc.Fields {
				fmt.Fprintf(&sb, "  - [%s](#%s)\n", f.Element.Name, anchors.add(f.Element.Name))
			}
		}
		if len(doc.Methods) > 0 {
			fmt.Fprintf(&sb, "- [Methods](#%s)\n", anchors.add("Methods"))
			for _, m := range doc.Methods {
				fmt.Fprintf(&sb, "  - [%s](#%s)\n", m.Element.Name, anchors.add(m.Element.Name))
			}
		}
		sb.WriteString("\n")

		if len(doc.Fields) > 0 {
			sb.WriteString("## Fields\n\n")
			for _, f := range doc.Fields {
				fmt.Fprintf(&sb, "### %s\n\n", f.Element.Name)
				writeSignature(&sb, f.Element)
				writeBody(&sb, f.Documentation)
				writeSection(&sb, "####", r.heading(docgen.PurposeUsageExamples), f.Examples)
			}
		}
		if len(doc.Methods) > 0 {
			sb.WriteString("## Methods\n\n")
			for _, m := range doc.Methods {
				fmt.Fprintf(&sb, "### %s\n\n", m.Element.Name)
				writeSignature(&sb, m.Element)
				writeBody(&sb, m.Documentation)
				writeSection(&sb, "####", r.heading(docgen.PurposeUsageExamples), m.Examples)
				writeSection(&sb, "####", r.heading(docgen.PurposeUnitTests), m.UnitTests)
			}
		}
	}

	body := strings.TrimRight(sb.String(), "\n")
	if body == "" {
		return nil, nil
	}
	return []byte(body + "\n"), nil
}

func (r *Renderer) heading(p docgen.Purpose) string {
	// a Caser is stateful and must not be shared between goroutines
	return cases.Title(r.lang).String(p.Label())
}

func (r *Renderer) writeMeta(sb *strings.Builder, doc *docgen.ClassDocument) {
	var meta []string
	if doc.Key != docgen.OrphanFieldsKey && doc.Key != docgen.OrphanMethodsKey {
		meta = append(meta, fmt.Sprintf("`%s`", doc.Key))
	}
	if !doc.GeneratedAt.IsZero() {
		meta = append(meta, "generated "+doc.GeneratedAt.UTC().Format(time.RFC3339))
	}
	if len(doc.Models) > 0 {
		meta = append(meta, "models: "+strings.Join(doc.Models, ", "))
	}
	if doc.RunID != "" {
		meta = append(meta, "run "+doc.RunID)
	}
	if doc.CachedFromRun != "" && doc.CachedFromRun != doc.RunID {
		meta = append(meta, "cached from run "+doc.CachedFromRun)
	}
	if len(meta) > 0 {
		fmt.Fprintf(sb, "> %s\n\n", strings.Join(meta, " | "))
	}
}

func writeSignature(sb *strings.Builder, e docgen.CodeElement) {
	if e.Signature == "" {
		return
	}
	fmt.Fprintf(sb, "```\n%s\n```\n\n", strings.TrimSpace(e.Signature))
}

// writeSection skips empty bodies so optional sections leave no empty headings.
func writeSection(sb *strings.Builder, level, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	fmt.Fprintf(sb, "%s %s\n\n", level, title)
	writeBody(sb, body)
}

func writeBody(sb *strings.Builder, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	sb.WriteString(body)
	sb.WriteString("\n\n")
}

// anchorSet produces GitHub-style heading anchors, suffixing repeats with -1, -2...
type anchorSet struct {
	seen map[string]int
}

func newAnchorSet() *anchorSet {
	return &anchorSet{seen: make(map[string]int)}
}

func (a *anchorSet) add(heading string) string {
	slug := Slug(heading)
	n := a.seen[slug]
	a.seen[slug] = n + 1
	if n == 0 {
		return slug
	}
	return fmt.Sprintf("%s-%d", slug, n)
}

// Slug converts a heading to its anchor: lower case, spaces to hyphens, punctuation
// other than hyphen and underscore dropped.
func Slug(heading string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(heading)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '-', r == '_':
			sb.WriteRune(r)
		case r == ' ':
			sb.WriteRune('-')
		}
	}
	return sb.String()
}
