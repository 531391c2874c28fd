package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadDirSorted(t *testing.T) {
	// --- Arrange ---
	dir := t.TempDir()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	// --- Act ---
	entries, err := ReadDir(dir, true)

	// --- Assert ---
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)
}

func TestReadDirMissing(t *testing.T) {
	_, err := ReadDir(filepath.Join(t.TempDir(), "nope"), false)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAncestors(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	rootInfo, err := os.Stat(dir)
	require.NoError(t, err)
	subInfo, err := os.Stat(sub)
	require.NoError(t, err)

	var chain Ancestors
	withRoot := chain.With(rootInfo)
	assert.Empty(t, chain)
	assert.True(t, withRoot.Contains(rootInfo))
	assert.False(t, withRoot.Contains(subInfo))

	again, err := os.Stat(dir + string(os.PathSeparator) + ".")
	require.NoError(t, err)
	assert.True(t, withRoot.Contains(again))
}
