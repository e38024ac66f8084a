package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/specvital/codedoc/internal/domain/docgen"
)

func newWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	root := t.TempDir()
	w, err := New(Options{OutputDir: root})
	require.NoError(t, err)
	return w, root
}

func TestNew_RequiresOutputDir(t *testing.T) {
	_, err := New(Options{OutputDir: "  "})
	assert.ErrorIs(t, err, docgen.ErrConfiguration)
}

func TestWriter_Write(t *testing.T) {
	w, root := newWriter(t)

	err := w.Write(context.Background(), "com/acme/Widget.md", []byte("# Widget\n"))
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(root, "com", "acme", "Widget.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Widget\n", string(got))

	info, err := os.Stat(filepath.Join(root, "com", "acme", "Widget.md"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o644), info.Mode().Perm())
}

func TestWriter_Write_Overwrites(t *testing.T) {
	w, root := newWriter(t)

	require.NoError(t, w.Write(context.Background(), "Foo.md", []byte("first version, longer")))
	require.NoError(t, w.Write(context.Background(), "Foo.md", []byte("second")))

	got, err := os.ReadFile(filepath.Join(root, "Foo.md"))
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
}

func TestWriter_Write_LeavesNoTempFiles(t *testing.T) {
	w, root := newWriter(t)

	require.NoError(t, w.Write(context.Background(), "a/b.md", []byte("x")))

	entries, err := os.ReadDir(filepath.Join(root, "a"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b.md", entries[0].Name())
}

func TestWriter_Write_RejectsInvalidPaths(t *testing.T) {
	w, root := newWriter(t)

	for _, p := range []string{"", ".", "/etc/passwd", "..", "../outside.md", "a/../../outside.md"} {
		t.Run(p, func(t *testing.T) {
			err := w.Write(context.Background(), p, []byte("x"))
			assert.ErrorIs(t, err, ErrPathInvalid)
		})
	}

	_, err := os.Stat(filepath.Join(filepath.Dir(root), "outside.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestWriter_Write_CleansInnerDotDot(t *testing.T) {
	w, root := newWriter(t)

	require.NoError(t, w.Write(context.Background(), "a/../b.md", []byte("x")))

	_, err := os.Stat(filepath.Join(root, "b.md"))
	assert.NoError(t, err)
}

func TestWriter_Write_CancelledContext(t *testing.T) {
	w, root := newWriter(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Write(ctx, "Foo.md", []byte("x"))

	assert.ErrorIs(t, err, context.Canceled)
	_, statErr := os.Stat(filepath.Join(root, "Foo.md"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriter_Write_Concurrent(t *testing.T) {
	w, root := newWriter(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Write(context.Background(), fmt.Sprintf("pkg/Class%d.md", i), []byte("doc")))
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(filepath.Join(root, "pkg"))
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}
