package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

func TestVersionCommand(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	versionCmd.Run(versionCmd, nil)

	out := buf.String()
	for _, want := range []string{"codedoc " + Version, "Git Commit:", runtime.Version()} {
		if !strings.Contains(out, want) {
			t.Errorf("version output missing %q:\n%s", want, out)
		}
	}
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"generate", "classify", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("command %q not registered", name)
		}
	}
	if f := generateCmd.Flags().Lookup("elements"); f == nil {
		t.Fatal("generate has no --elements flag")
	}
}

func TestPrintSummary(t *testing.T) {
	s := &docgen.RunSummary{
		Calls:        map[docgen.Provenance]int{docgen.ProvenanceSuccess: 5, docgen.ProvenanceTimedOut: 1},
		ClusterCount: 2,
		Documents:    []string{"com/acme/Widget.md"},
		Duration:     1500 * time.Millisecond,
		ElementCount: 4,
		Failures:     []docgen.ClusterFailure{{ClusterKey: "com.acme.Gadget", Err: errors.New("disk full"), Stage: "write"}},
		RunID:        "run-1",
	}

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printSummary(&buf, s, "text"); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"Run run-1", "clusters: 2 (cached 0, failed 1)", "success 5, timed out 1, error 0", "com/acme/Widget.md", "FAILED com.acme.Gadget (write): disk full"} {
			if !strings.Contains(out, want) {
				t.Errorf("summary missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := printSummary(&buf, s, "json"); err != nil {
			t.Fatal(err)
		}
		var decoded struct {
			Calls          map[string]int `json:"calls"`
			DurationMs     int64          `json:"duration_ms"`
			FailedClusters int            `json:"failed_clusters"`
			Failures       []struct {
				ClusterKey string `json:"cluster_key"`
				Error      string `json:"error"`
				Stage      string `json:"stage"`
			} `json:"failures"`
			RunID string `json:"run_id"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.RunID != "run-1" {
			t.Errorf("run_id = %q", decoded.RunID)
		}
		if decoded.DurationMs != 1500 {
			t.Errorf("duration_ms = %d", decoded.DurationMs)
		}
		if decoded.Calls["success"] != 5 || decoded.Calls["timed_out"] != 1 {
			t.Errorf("calls = %v", decoded.Calls)
		}
		if decoded.FailedClusters != 1 || len(decoded.Failures) != 1 {
			t.Fatalf("failures = %+v", decoded.Failures)
		}
		f := decoded.Failures[0]
		if f.ClusterKey != "com.acme.Gadget" || f.Stage != "write" || f.Error != "disk full" {
			t.Errorf("failure = %+v", f)
		}
	})
}

func TestGenerateCommand_Mock(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "codedoc.yaml")
	elementsPath := filepath.Join(dir, "elements.json")
	outDir := filepath.Join(dir, "out")

	if err := os.WriteFile(cfgPath, []byte("models:\n  - name: mock-a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(elementsPath, []byte(`{"elements":[{"kind":"class","name":"Cart","qualified_name":"shop.Cart"}]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"generate", "-c", cfgPath, "--elements", elementsPath, "--out", outDir, "--mock", "--format", "text", "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, "shop", "Cart.md")); err != nil {
		t.Errorf("document not written: %v", err)
	}
	if !strings.Contains(buf.String(), "shop/Cart.md") {
		t.Errorf("summary does not list the document:\n%s", buf.String())
	}
}

func TestGenerateCommand_ClusterFailureExitsZero(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "codedoc.yaml")
	elementsPath := filepath.Join(dir, "elements.json")
	outDir := filepath.Join(dir, "out")

	if err := os.WriteFile(cfgPath, []byte("models:\n  - name: mock-a\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(elementsPath, []byte(`[{"kind":"class","name":"Cart","qualified_name":"shop.Cart"},{"kind":"class","name":"Order","qualified_name":"Order"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	// a regular file where the shop/ directory belongs makes that cluster's write fail
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(outDir, "shop"), []byte("blocked"), 0o644); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"generate", "-c", cfgPath, "--elements", elementsPath, "--out", outDir, "--mock", "--format", "text", "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("cluster failures must not fail the command: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "FAILED shop.Cart (write)") {
		t.Errorf("summary does not report the failed cluster:\n%s", out)
	}
	if !strings.Contains(out, "Order.md") {
		t.Errorf("summary does not list the written document:\n%s", out)
	}
}

func TestGenerateCommand_MissingElementsFails(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "codedoc.yaml")
	if err := os.WriteFile(cfgPath, []byte("models:\n  - name: mock-a\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"generate", "-c", cfgPath, "--elements", filepath.Join(dir, "missing.json"), "--out", filepath.Join(dir, "out"), "--mock", "--format", "text", "--log-level", "error"})
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	if err := rootCmd.Execute(); err == nil {
		t.Fatal("expected an error for a missing element list")
	}
}
