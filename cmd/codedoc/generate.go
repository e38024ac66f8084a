package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/specvital/codedoc/internal/app/bootstrap"
	"github.com/specvital/codedoc/internal/domain/docgen"
)

var generateFlags struct {
	dryRun        bool
	elements      string
	fieldExamples bool
	format        string
	mock          bool
	outputDir     string
	runTimeout    time.Duration
	unitTests     bool
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate documents for an element list",
	Long: `Generate one Markdown document per class cluster.

The element list is a JSON array of {kind, name, qualified_name, signature,
context, file_path, line, parameters, annotations} objects, or an object with an
"elements" array. Members whose class is not in the list are collected in
_fields_without_class.md and _methods_without_class.md.

Clusters that fail to render or write are reported in the summary; the exit
status is non-zero only for configuration and input errors or a cancelled run.

Examples:
  # Generate into the configured output directory
  codedoc generate --elements elements.json

  # Try the pipeline without calling any model
  codedoc generate --elements elements.json --mock --out /tmp/docs

  # List the documents a run would write
  codedoc generate --elements elements.json --dry-run`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateFlags.elements, "elements", "e", "", "element list (JSON)")
	generateCmd.Flags().StringVarP(&generateFlags.outputDir, "out", "o", "", "output directory (overrides config)")
	generateCmd.Flags().BoolVar(&generateFlags.dryRun, "dry-run", false, "list document paths without calling models")
	generateCmd.Flags().BoolVar(&generateFlags.unitTests, "unit-tests", false, "also generate unit tests for methods")
	generateCmd.Flags().BoolVar(&generateFlags.fieldExamples, "field-examples", false, "also generate usage examples for fields")
	generateCmd.Flags().BoolVar(&generateFlags.mock, "mock", false, "use the mock model caller")
	generateCmd.Flags().DurationVar(&generateFlags.runTimeout, "timeout", 0, "overall run timeout (overrides config)")
	generateCmd.Flags().StringVar(&generateFlags.format, "format", "text", "summary format: text, json")
	_ = generateCmd.MarkFlagRequired("elements")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if generateFlags.outputDir != "" {
		cfg.Output.Dir = generateFlags.outputDir
	}
	if generateFlags.unitTests {
		cfg.Generation.IncludeUnitTests = true
	}
	if generateFlags.fieldExamples {
		cfg.Generation.IncludeFieldExamples = true
	}
	if generateFlags.mock {
		cfg.MockMode = true
	}
	if generateFlags.runTimeout > 0 {
		cfg.Generation.RunTimeout = generateFlags.runTimeout
	}

	summary, runErr := bootstrap.RunGenerate(cmd.Context(), bootstrap.GenerateConfig{
		Config:       cfg,
		DryRun:       generateFlags.dryRun,
		ElementsPath: generateFlags.elements,
	})
	if summary != nil {
		if err := printSummary(cmd.OutOrStdout(), summary, generateFlags.format); err != nil {
			return err
		}
	}
	if runErr != nil {
		slog.Error("generation failed", "error", runErr)
		return runErr
	}
	if n := summary.FailedClusters(); n > 0 {
		slog.Warn("some clusters failed",
			"run_id", summary.RunID,
			"failed_clusters", n,
			"cluster_count", summary.ClusterCount,
		)
	}
	return nil
}

type summaryView struct {
	CachedClusters int            `json:"cached_clusters"`
	Calls          map[string]int `json:"calls"`
	ClusterCount   int            `json:"cluster_count"`
	Documents      []string       `json:"documents"`
	Duration       string         `json:"duration"`
	DurationMs     int64          `json:"duration_ms"`
	ElementCount   int            `json:"element_count"`
	FailedClusters int            `json:"failed_clusters"`
	Failures       []failureView  `json:"failures"`
	RunID          string         `json:"run_id"`
}

type failureView struct {
	ClusterKey string `json:"cluster_key"`
	Error      string `json:"error"`
	Stage      string `json:"stage"`
}

func newSummaryView(s *docgen.RunSummary) summaryView {
	v := summaryView{
		CachedClusters: s.CachedClusters,
		Calls:          make(map[string]int, len(s.Calls)),
		ClusterCount:   s.ClusterCount,
		Documents:      s.Documents,
		Duration:       s.Duration.Round(time.Millisecond).String(),
		DurationMs:     s.Duration.Milliseconds(),
		ElementCount:   s.ElementCount,
		FailedClusters: s.FailedClusters(),
		Failures:       make([]failureView, len(s.Failures)),
		RunID:          s.RunID,
	}
	if v.Documents == nil {
		v.Documents = []string{}
	}
	for p, n := range s.Calls {
		v.Calls[string(p)] = n
	}
	for i, f := range s.Failures {
		v.Failures[i] = failureView{ClusterKey: f.ClusterKey, Stage: f.Stage}
		if f.Err != nil {
			v.Failures[i].Error = f.Err.Error()
		}
	}
	return v
}

func printSummary(w io.Writer, s *docgen.RunSummary, format string) error {
	if format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(newSummaryView(s))
	}

	fmt.Fprintf(w, "Run %s\n", s.RunID)
	fmt.Fprintf(w, "  elements: %d, clusters: %d (cached %d, failed %d)\n",
		s.ElementCount, s.ClusterCount, s.CachedClusters, s.FailedClusters())
	fmt.Fprintf(w, "  calls: success %d, timed out %d, error %d\n",
		s.Calls[docgen.ProvenanceSuccess], s.Calls[docgen.ProvenanceTimedOut], s.Calls[docgen.ProvenanceError])
	fmt.Fprintf(w, "  duration: %s\n", s.Duration.Round(time.Millisecond))
	for _, doc := range s.Documents {
		fmt.Fprintf(w, "  %s\n", doc)
	}
	for _, f := range s.Failures {
		fmt.Fprintf(w, "  FAILED %s (%s): %v\n", f.ClusterKey, f.Stage, f.Err)
	}
	return nil
}
