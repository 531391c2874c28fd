package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/value"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestIngestDirectory(t *testing.T) {
	// --- Arrange ---
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a_value"), []byte("record { n = 1 }\n"))
	writeFile(t, filepath.Join(root, "b_text"), []byte("just words"))
	writeFile(t, filepath.Join(root, "c_raw"), []byte{0xde, 0xad, 0xbe, 0xef})
	writeFile(t, filepath.Join(root, "d_dir", "inner"), []byte("true"))
	require.NoError(t, os.Mkdir(filepath.Join(root, "e_empty"), 0o755))

	// --- Act ---
	got, err := Ingest(context.Background(), root, Options{SortEntries: true})

	// --- Assert ---
	require.NoError(t, err)
	want := value.Directory{Entries: []value.NameFile{
		{Name: "a_value", File: value.ValueFile{Value: value.Record{{Label: value.NamedLabel("n"), Value: value.Number("1")}}}},
		{Name: "b_text", File: value.TextFile("just words")},
		{Name: "c_raw", File: value.BinaryFile{0xde, 0xad, 0xbe, 0xef}},
		{Name: "d_dir", File: value.Directory{Entries: []value.NameFile{
			{Name: "inner", File: value.ValueFile{Value: value.Bool(true)}},
		}}},
		{Name: "e_empty", File: value.Directory{}},
	}}
	assert.True(t, value.EqualFile(want, got), "got:\n%s", value.FormatFile(got))
}

func TestIngestUnsortedKeepsAllEntries(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"x", "y", "z"} {
		writeFile(t, filepath.Join(root, name), []byte(name))
	}

	got, err := Ingest(context.Background(), root, Options{})
	require.NoError(t, err)

	dir, ok := got.(value.Directory)
	require.True(t, ok)
	var names []string
	for _, e := range dir.Entries {
		names = append(names, e.Name)
	}
	assert.ElementsMatch(t, []string{"x", "y", "z"}, names)
}

func TestIngestSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v")
	writeFile(t, path, []byte("true"))

	got, err := Ingest(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.True(t, value.EqualFile(value.ValueFile{Value: value.Bool(true)}, got))
}

func TestIngestFilesystemErrors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		_, err := Ingest(context.Background(), filepath.Join(t.TempDir(), "nope"), Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrIO))
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("broken symlink aborts the subtree", func(t *testing.T) {
		root := t.TempDir()
		writeFile(t, filepath.Join(root, "ok"), []byte("1"))
		require.NoError(t, os.Symlink(filepath.Join(root, "gone"), filepath.Join(root, "dangling")))

		_, err := Ingest(context.Background(), root, Options{})
		require.Error(t, err)
		assert.Equal(t, errs.KindIO, errs.KindOf(err))
	})

	t.Run("symlink cycle", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(root, "sub"), 0o755))
		require.NoError(t, os.Symlink(root, filepath.Join(root, "sub", "loop")))

		_, err := Ingest(context.Background(), root, Options{})
		require.Error(t, err)
		assert.True(t, errors.Is(err, errs.ErrIO))
		assert.ErrorContains(t, err, "symlink cycle")
	})
}

func TestIngestAsync(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "v"), []byte("opt 1"))

	got, err := IngestAsync(context.Background(), root, Options{})
	require.NoError(t, err)
	want := value.Directory{Entries: []value.NameFile{
		{Name: "v", File: value.ValueFile{Value: value.Opt{Value: value.Number("1")}}},
	}}
	assert.True(t, value.EqualFile(want, got))
}

func TestRunAsyncWalkerDies(t *testing.T) {
	_, err := runAsync(context.Background(), func() (value.File, error) {
		panic("boom")
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errs.ErrChannel))
}

func TestRunAsyncCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	release := make(chan struct{})
	defer close(release)

	cancel()
	_, err := runAsync(ctx, func() (value.File, error) {
		<-release
		return value.TextFile(""), nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Ingest(ctx, t.TempDir(), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}
