// Package filesystem writes rendered documents below an output directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

var ErrPathInvalid = errors.New("invalid document path")

const (
	defaultPermFile os.FileMode = 0o644
	defaultPermDir  os.FileMode = 0o755
)

type Options struct {
	OutputDir string
	PermFile  os.FileMode // 0 uses 0644
	PermDir   os.FileMode // 0 uses 0755
}

// Writer implements docgen.DocumentWriter. Each document is written to a temporary
// file in the target directory and renamed into place, so readers never observe a
// partially written document.
type Writer struct {
	permDir  os.FileMode
	permFile os.FileMode
	root     string
}

var _ docgen.DocumentWriter = (*Writer)(nil)

func New(opts Options) (*Writer, error) {
	if strings.TrimSpace(opts.OutputDir) == "" {
		return nil, fmt.Errorf("%w: output directory is required", docgen.ErrConfiguration)
	}
	w := &Writer{
		permDir:  opts.PermDir,
		permFile: opts.PermFile,
		root:     filepath.Clean(opts.OutputDir),
	}
	if w.permFile == 0 {
		w.permFile = defaultPermFile
	}
	if w.permDir == 0 {
		w.permDir = defaultPermDir
	}
	return w, nil
}

// Root returns the output directory.
func (w *Writer) Root() string {
	return w.root
}

func (w *Writer) Write(ctx context.Context, relPath string, content []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dest, err := w.resolve(relPath)
	if err != nil {
		return err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, w.permDir); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}

	if _, err := tmp.Write(content); err != nil {
		return cleanup(fmt.Errorf("write %s: %w", relPath, err))
	}
	if err := tmp.Sync(); err != nil {
		return cleanup(fmt.Errorf("sync %s: %w", relPath, err))
	}
	if err := tmp.Chmod(w.permFile); err != nil {
		return cleanup(fmt.Errorf("chmod %s: %w", relPath, err))
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close %s: %w", relPath, err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename %s: %w", relPath, err)
	}
	return nil
}

// resolve joins relPath onto the root, rejecting absolute paths, volume names and
// anything that escapes the root.
func (w *Writer) resolve(relPath string) (string, error) {
	rel := filepath.Clean(filepath.FromSlash(relPath))
	if relPath == "" || rel == "." {
		return "", fmt.Errorf("%w: empty path", ErrPathInvalid)
	}
	if filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" || strings.HasPrefix(relPath, "/") {
		return "", fmt.Errorf("%w: %q is absolute", ErrPathInvalid, relPath)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q escapes the output directory", ErrPathInvalid, relPath)
	}
	return filepath.Join(w.root, rel), nil
}
