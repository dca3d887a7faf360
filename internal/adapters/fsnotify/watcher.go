// Package fsnotify implements the ports.Watcher interface using github.com/fsnotify/fsnotify.
// It recursively watches a project directory, filters out ignored files and directories,
// and debounces rapid events per path (editors often trigger several writes per save):
// onChange fires once the path has been quiet for the debounce interval.
package fsnotify

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/corey/codeindex/internal/ports"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 100 * time.Millisecond

// Directories never watched, whatever the filter says.
var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".codeindex":   true,
	"node_modules": true,
	"__pycache__":  true,
	".venv":        true,
	".idea":        true,
	".vscode":      true,
}

// Editor and build droppings that never trigger onChange.
var ignoreSuffixes = []string{".DS_Store", ".swp", ".swx", "~", ".tmp", ".pyc", ".o", ".so", ".dylib"}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet period before onChange fires for a path.
	Debounce time.Duration
	// Ignore reports whether a path (absolute) should be skipped. Directories
	// it rejects are not watched at all. May be nil.
	Ignore func(path string, isDir bool) bool
	Logger *slog.Logger
}

// Watcher implements ports.Watcher using fsnotify.
type Watcher struct {
	fw       *fsnotify.Watcher
	opts     Options
	log      *slog.Logger
	done     chan struct{}
	inflight sync.WaitGroup

	mu      sync.Mutex
	stopped bool
	pending map[string]*time.Timer
}

var _ ports.Watcher = (*Watcher)(nil)

// NewWatcher creates a new file system watcher.
func NewWatcher(opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Watcher{
		fw:      fw,
		opts:    opts,
		log:     log,
		done:    make(chan struct{}),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Watch starts monitoring projectPath recursively.
// onChange is called with the absolute path of each changed file. It must not
// call Stop.
func (w *Watcher) Watch(projectPath string, onChange func(filePath string)) error {
	absPath, err := filepath.Abs(projectPath)
	if err != nil {
		return err
	}
	if _, err := os.Stat(absPath); err != nil {
		return err
	}
	if err := w.addTree(absPath, true); err != nil {
		return err
	}

	go w.loop(onChange)
	return nil
}

// addTree walks root and watches every directory that is not ignored.
func (w *Watcher) addTree(root string, isRoot bool) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible paths
		}
		if !d.IsDir() {
			return nil
		}
		if path != root || !isRoot {
			if w.ignored(path, true) {
				return filepath.SkipDir
			}
		}
		return w.fw.Add(path)
	})
}

func (w *Watcher) loop(onChange func(string)) {
	for {
		select {
		case event, ok := <-w.fw.Events:
			if !ok {
				return
			}
			path := event.Name

			// New directories join the watch list; files created inside them
			// before the watch landed are reported by the walk below.
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(path); err == nil && info.IsDir() {
					if !w.ignored(path, true) {
						if err := w.addTree(path, false); err != nil {
							w.log.Debug("watch new dir", "dir", path, "err", err)
						}
						w.reportTree(path, onChange)
					}
					continue
				}
			}

			if w.ignored(path, false) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
				event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				w.schedule(path, onChange)
			}

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			// fsnotify recovers on its own; overflow means events were lost.
			w.log.Warn("watcher error", "err", err)

		case <-w.done:
			return
		}
	}
}

// reportTree schedules every file already present under a new directory.
func (w *Watcher) reportTree(root string, onChange func(string)) {
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != root && w.ignored(path, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !w.ignored(path, false) {
			w.schedule(path, onChange)
		}
		return nil
	})
}

// schedule (re)arms the per-path debounce timer.
func (w *Watcher) schedule(path string, onChange func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.opts.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		if w.stopped {
			w.mu.Unlock()
			return
		}
		delete(w.pending, path)
		w.inflight.Add(1)
		w.mu.Unlock()

		defer w.inflight.Done()
		onChange(path)
	})
}

// Stop ends monitoring and releases all resources. Pending debounced events
// are dropped and in-flight callbacks are waited for, so no onChange call
// happens after Stop returns. Safe to call multiple times.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	for p, t := range w.pending {
		t.Stop()
		delete(w.pending, p)
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fw.Close()
	w.inflight.Wait()
	return err
}

func (w *Watcher) ignored(path string, isDir bool) bool {
	if isDir && ignoreDirs[filepath.Base(path)] {
		return true
	}
	if !isDir && shouldIgnorePath(path) {
		return true
	}
	return w.opts.Ignore != nil && w.opts.Ignore(path, isDir)
}

// shouldIgnorePath returns true if the file path should not trigger onChange.
func shouldIgnorePath(path string) bool {
	base := filepath.Base(path)
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return true
		}
	}

	// Check if any path component is an ignored directory
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if ignoreDirs[part] {
			return true
		}
	}
	return false
}
