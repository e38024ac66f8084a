package prompt

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

//go:embed templates/system.md
var SystemPrompt string

// Build returns the user prompt for purpose. Unknown purposes fall back to
// documentation.
func Build(purpose docgen.Purpose, e docgen.CodeElement) string {
	switch purpose {
	case docgen.PurposeUsageExamples:
		return UsageExamples(e)
	case docgen.PurposeUnitTests:
		return UnitTests(e)
	default:
		return Documentation(e)
	}
}

// Documentation builds the prompt asking for reference documentation of e.
func Documentation(e docgen.CodeElement) string {
	var sb strings.Builder

	switch e.Kind {
	case docgen.KindClass:
		fmt.Fprintf(&sb, "Document the class `%s`.\n", e.Name)
		sb.WriteString("Cover its responsibility, its main collaborators, how instances are created and any invariants it maintains.\n")
	case docgen.KindField:
		fmt.Fprintf(&sb, "Document the field `%s`.\n", e.Name)
		sb.WriteString("Explain what it holds, who reads and writes it, and any valid range or default value.\n")
	default:
		fmt.Fprintf(&sb, "Document the method `%s`.\n", e.Name)
		sb.WriteString("Describe what it does, each parameter, the return value, errors or exceptions it raises, and side effects.\n")
	}
	sb.WriteString("\n")
	writeElement(&sb, e)
	return sb.String()
}

// UsageExamples builds the prompt asking for runnable usage examples of e.
func UsageExamples(e docgen.CodeElement) string {
	var sb strings.Builder

	switch e.Kind {
	case docgen.KindClass:
		fmt.Fprintf(&sb, "Write two or three short usage examples for the class `%s`.\n", e.Name)
		sb.WriteString("Show construction and the most common interactions.\n")
	case docgen.KindField:
		fmt.Fprintf(&sb, "Write a short example showing how the field `%s` is read or set.\n", e.Name)
	default:
		fmt.Fprintf(&sb, "Write two or three short usage examples for the method `%s`.\n", e.Name)
		sb.WriteString("Include a typical call and one edge case.\n")
	}
	sb.WriteString("Each example is a fenced code block preceded by a one-line description.\n\n")
	writeElement(&sb, e)
	return sb.String()
}

// UnitTests builds the prompt asking for unit tests covering e.
func UnitTests(e docgen.CodeElement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Write unit tests for the %s `%s`.\n", e.Kind, e.Name)
	sb.WriteString("Use the idiomatic test framework of the source language. Cover the normal path, boundary values and error handling.\n")
	sb.WriteString("Return only the test code in a single fenced code block.\n\n")
	writeElement(&sb, e)
	return sb.String()
}

func writeElement(sb *strings.Builder, e docgen.CodeElement) {
	sb.WriteString("<element>\n")
	fmt.Fprintf(sb, "Kind: %s\n", e.Kind)
	fmt.Fprintf(sb, "Qualified name: %s\n", e.QualifiedName)
	if e.FilePath != "" {
		if e.Line > 0 {
			fmt.Fprintf(sb, "Location: %s:%d\n", e.FilePath, e.Line)
		} else {
			fmt.Fprintf(sb, "Location: %s\n", e.FilePath)
		}
	}
	if e.Signature != "" {
		fmt.Fprintf(sb, "Signature: %s\n", e.Signature)
	}
	if len(e.Parameters) > 0 {
		sb.WriteString("Parameters:\n")
		for _, p := range e.Parameters {
			if p.Type != "" {
				fmt.Fprintf(sb, "- %s: %s\n", p.Name, p.Type)
			} else {
				fmt.Fprintf(sb, "- %s\n", p.Name)
			}
		}
	}
	if len(e.Annotations) > 0 {
		fmt.Fprintf(sb, "Annotations: %s\n", strings.Join(e.Annotations, ", "))
	}
	sb.WriteString("</element>\n")

	if ctx := strings.TrimSpace(e.Context); ctx != "" {
		sb.WriteString("\n<code_context>\n")
		sb.WriteString(ctx)
		sb.WriteString("\n</code_context>\n")
	}
}
