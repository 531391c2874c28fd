// Package fsutil provides the file system primitives of the ingestion walk:
// directory listing in enumeration order and symlink-cycle detection.
package fsutil

import (
	"io/fs"
	"os"
	"sort"
)

// ReadDir lists the entries of the directory at path. Entries come back in
// the order the file system yields them unless sorted is set, in which case
// they are ordered by name.
func ReadDir(path string, sorted bool) ([]fs.DirEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, err
	}
	if sorted {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })
	}
	return entries, nil
}

// Ancestors is the chain of directories from the walk root down to the
// directory being visited.
type Ancestors []os.FileInfo

// Contains reports whether fi is the same file as one of the ancestors,
// meaning a symlink led the walk back into its own path.
func (a Ancestors) Contains(fi os.FileInfo) bool {
	for _, anc := range a {
		if os.SameFile(anc, fi) {
			return true
		}
	}
	return false
}

// With returns the chain extended by fi. The receiver is not modified.
func (a Ancestors) With(fi os.FileInfo) Ancestors {
	out := make(Ancestors, len(a), len(a)+1)
	copy(out, a)
	return append(out, fi)
}
