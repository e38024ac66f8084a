package docgen

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

// Assembler generates every section of a cluster concurrently and combines them
// into one document.
type Assembler struct {
	orchestrator *Orchestrator
	sections     docgen.Sections
}

// AssemblerOptions selects the optional sections.
type AssemblerOptions struct {
	FieldExamples bool // usage examples for fields
	UnitTests     bool // unit tests for methods
}

// NewAssembler creates an assembler. Classes and methods always get documentation and
// usage examples, fields get documentation; opts adds the optional sections.
func NewAssembler(orchestrator *Orchestrator, opts AssemblerOptions) *Assembler {
	sections := docgen.Sections{
		docgen.KindClass:  {docgen.PurposeDocumentation, docgen.PurposeUsageExamples},
		docgen.KindField:  {docgen.PurposeDocumentation},
		docgen.KindMethod: {docgen.PurposeDocumentation, docgen.PurposeUsageExamples},
	}
	if opts.FieldExamples {
		sections[docgen.KindField] = append(sections[docgen.KindField], docgen.PurposeUsageExamples)
	}
	if opts.UnitTests {
		sections[docgen.KindMethod] = append(sections[docgen.KindMethod], docgen.PurposeUnitTests)
	}
	return &Assembler{
		orchestrator: orchestrator,
		sections:     sections,
	}
}

// Sections returns a copy of the purposes generated per element kind.
func (a *Assembler) Sections() docgen.Sections {
	out := make(docgen.Sections, len(a.sections))
	for k, ps := range a.sections {
		out[k] = append([]docgen.Purpose(nil), ps...)
	}
	return out
}

// Purposes returns the purposes generated for a run, in a stable order.
func (a *Assembler) Purposes() []docgen.Purpose {
	purposes := []docgen.Purpose{docgen.PurposeDocumentation, docgen.PurposeUsageExamples}
	if slices.Contains(a.sections[docgen.KindMethod], docgen.PurposeUnitTests) {
		purposes = append(purposes, docgen.PurposeUnitTests)
	}
	return purposes
}

// CallStats counts finished model calls by provenance.
type CallStats map[docgen.Provenance]int

func (s CallStats) add(results []docgen.GenerationResult) {
	for _, r := range results {
		s[r.Provenance]++
	}
}

type subtask struct {
	element docgen.CodeElement
	purpose docgen.Purpose
	target  *string
}

// Assemble builds the document of one cluster. A failing section is replaced with a
// marked placeholder, so a document is always returned; the error is non-nil only
// when the run was cancelled before any section could start.
func (a *Assembler) Assemble(ctx context.Context, gc *docgen.GenerationContext, cluster docgen.ClassCluster) (*docgen.ClassDocument, CallStats, error) {
	if gc == nil || gc.Released() {
		return nil, nil, docgen.ErrContextClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", docgen.ErrRunCancelled, err)
	}

	doc := &docgen.ClassDocument{
		Fields:      make([]docgen.ElementDoc, len(cluster.Fields)),
		GeneratedAt: time.Now().UTC(),
		Key:         cluster.Key,
		Methods:     make([]docgen.ElementDoc, len(cluster.Methods)),
		Models:      gc.ModelNames(),
		RunID:       gc.RunID(),
		Title:       cluster.Title(),
	}

	var tasks []subtask
	if cluster.Class != nil {
		doc.Class = &docgen.ElementDoc{Element: *cluster.Class}
		tasks = a.appendTasks(tasks, doc.Class)
	}
	for i, f := range cluster.Fields {
		doc.Fields[i].Element = f
		tasks = a.appendTasks(tasks, &doc.Fields[i])
	}
	for i, m := range cluster.Methods {
		doc.Methods[i].Element = m
		tasks = a.appendTasks(tasks, &doc.Methods[i])
	}

	// each subtask writes its own slot; results are merged after Wait
	results := make([][]docgen.GenerationResult, len(tasks))

	var g errgroup.Group
	for i, task := range tasks {
		g.Go(func() error {
			gen, err := a.runSubtask(ctx, gc, cluster.Key, task)
			if err != nil {
				*task.target = SubtaskErrorPlaceholder(task.purpose, task.element)
				return nil
			}
			*task.target = gen.Text
			results[i] = gen.Results
			return nil
		})
	}
	_ = g.Wait()

	stats := make(CallStats)
	for _, r := range results {
		stats.add(r)
	}
	return doc, stats, nil
}

// appendTasks adds one subtask per section configured for the element's kind.
func (a *Assembler) appendTasks(tasks []subtask, ed *docgen.ElementDoc) []subtask {
	for _, p := range a.sections[ed.Element.Kind] {
		var target *string
		switch p {
		case docgen.PurposeDocumentation:
			target = &ed.Documentation
		case docgen.PurposeUsageExamples:
			target = &ed.Examples
		case docgen.PurposeUnitTests:
			target = &ed.UnitTests
		default:
			continue
		}
		tasks = append(tasks, subtask{element: ed.Element, purpose: p, target: target})
	}
	return tasks
}

func (a *Assembler) runSubtask(ctx context.Context, gc *docgen.GenerationContext, clusterKey string, task subtask) (gen docgen.Generation, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			slog.WarnContext(ctx, "cluster subtask failed, using placeholder",
				"run_id", gc.RunID(),
				"cluster", clusterKey,
				"element", task.element.QualifiedName,
				"purpose", task.purpose,
				"error", err,
			)
		}
	}()

	return a.orchestrator.Generate(ctx, gc, task.element, task.purpose)
}

// SubtaskErrorPlaceholder marks a section whose generation failed.
func SubtaskErrorPlaceholder(purpose docgen.Purpose, e docgen.CodeElement) string {
	return fmt.Sprintf("Error generating %s for %s", purpose.Label(), e.Name)
}
