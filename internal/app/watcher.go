package app

import (
	"context"
	"path/filepath"

	fsw "github.com/corey/codeindex/internal/adapters/fsnotify"
	"github.com/corey/codeindex/internal/domain/index"
	"github.com/corey/codeindex/internal/ports"
)

// ChangeFunc is told about every path the watcher re-indexed. fi is nil
// when the path was removed from the index or is not indexable; err is set
// when parsing failed.
type ChangeFunc func(rel string, fi *ports.FileIndex, err error)

// Watch re-indexes files as they change until ctx is cancelled. Run an
// initial Index first; Watch only applies changes seen after it starts.
func (a *App) Watch(ctx context.Context, notify ChangeFunc) error {
	w, err := fsw.NewWatcher(fsw.Options{
		Debounce: a.Config.WatchDebounce(),
		Ignore:   a.ignored,
		Logger:   a.log.With("component", "watch"),
	})
	if err != nil {
		return err
	}
	if err := w.Watch(a.Root, func(path string) {
		a.onFileChanged(ctx, path, notify)
	}); err != nil {
		w.Stop()
		return err
	}
	a.log.Info("watching", "root", a.Root, "debounce", a.Config.WatchDebounce())

	<-ctx.Done()
	return w.Stop()
}

// ignored applies the configured exclude globs to watcher paths.
func (a *App) ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(a.Root, path)
	if err != nil || rel == "." {
		return false
	}
	return index.Excluded(a.Config.IndexConfig(), filepath.ToSlash(rel), isDir)
}

// onFileChanged handles a create, modify or delete event from the watcher.
func (a *App) onFileChanged(ctx context.Context, absPath string, notify ChangeFunc) {
	if ctx.Err() != nil {
		return
	}
	rel, err := filepath.Rel(a.Root, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	fi, err := a.Manager.IndexFile(ctx, absPath)
	switch {
	case err != nil:
		a.log.Warn("re-index failed", "file", rel, "err", err)
	case fi != nil:
		a.log.Debug("re-indexed", "file", rel, "symbols", len(fi.Symbols))
	default:
		a.log.Debug("dropped from index", "file", rel)
	}
	if notify != nil {
		notify(rel, fi, err)
	}
}
