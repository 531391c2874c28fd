package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vk/caniput/internal/ctxlog"
	"github.com/vk/caniput/internal/errs"
	"github.com/vk/caniput/internal/fsutil"
	"github.com/vk/caniput/internal/value"
)

// Options tunes a walk.
type Options struct {
	// SortEntries orders directory entries by name instead of enumeration
	// order, for reproducible snapshots.
	SortEntries bool
}

// Ingest reads the tree rooted at path. Symlinks are followed. Any
// filesystem failure below path, including a broken symlink or a symlink
// cycle, aborts the whole walk with an errs.KindIO error.
func Ingest(ctx context.Context, path string, opts Options) (value.File, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Info("Reading path.", "path", path, "sorted", opts.SortEntries)
	return walk(ctx, path, opts, nil)
}

func walk(ctx context.Context, path string, opts Options, ancestors fsutil.Ancestors) (value.File, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	logger := ctxlog.FromContext(ctx)

	info, err := os.Stat(path)
	if err != nil {
		return nil, errs.IO("ingest", err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.IO("ingest", err)
		}
		f, source := Sniff(data)
		logger.Debug("Classified file.", "path", path, "kind", value.FileKind(f), "source", source)
		return f, nil
	}

	if ancestors.Contains(info) {
		return nil, errs.IO("ingest", &os.PathError{Op: "walk", Path: path, Err: errSymlinkCycle})
	}
	entries, err := fsutil.ReadDir(path, opts.SortEntries)
	if err != nil {
		return nil, errs.IO("ingest", err)
	}
	logger.Debug("Reading directory.", "path", path, "entries", len(entries))

	chain := ancestors.With(info)
	dir := value.Directory{Entries: make([]value.NameFile, 0, len(entries))}
	for _, e := range entries {
		child, err := walk(ctx, filepath.Join(path, e.Name()), opts, chain)
		if err != nil {
			return nil, err
		}
		dir.Entries = append(dir.Entries, value.NameFile{Name: e.Name(), File: child})
	}
	return dir, nil
}

var errSymlinkCycle = errors.New("symlink cycle")

type result struct {
	file value.File
	err  error
}

// IngestAsync runs Ingest on its own goroutine and waits for the result or
// for ctx to end. If the walker dies without handing back a result the
// error is of kind errs.KindChannel.
func IngestAsync(ctx context.Context, path string, opts Options) (value.File, error) {
	return runAsync(ctx, func() (value.File, error) {
		return Ingest(ctx, path, opts)
	})
}

func runAsync(ctx context.Context, fn func() (value.File, error)) (value.File, error) {
	logger := ctxlog.FromContext(ctx)
	ch := make(chan result, 1)

	go func() {
		defer close(ch)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Ingestion walker panicked.", "panic", r)
			}
		}()
		f, err := fn()
		ch <- result{file: f, err: err}
	}()

	select {
	case r, ok := <-ch:
		if !ok {
			return nil, errs.Channel("ingest", errors.New("walker exited without a result"))
		}
		return r.file, r.err
	case <-ctx.Done():
		return nil, fmt.Errorf("ingest: %w", ctx.Err())
	}
}
