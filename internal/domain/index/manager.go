// Package index owns the in-memory ProjectIndex: incremental indexing by
// content hash, definition and reference lookup, scored search and call
// graph assembly. Parsing and persistence are reached through ports.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/corey/codeindex/internal/ports"
)

// ErrIndexBusy is returned when an index run is already in progress on the
// same Manager.
var ErrIndexBusy = errors.New("index operation already in progress")

// FileError records a file that could not be indexed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e FileError) Unwrap() error { return e.Err }

func (e FileError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Path  string `json:"path"`
		Error string `json:"error"`
	}{e.Path, e.Err.Error()})
}

// IndexResult summarizes one IndexProject run.
type IndexResult struct {
	Indexed  int           `json:"indexed"`
	Skipped  int           `json:"skipped"`
	Removed  int           `json:"removed"`
	Errors   []FileError   `json:"errors,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Options configures a Manager.
type Options struct {
	// Root is the project directory. Indexed paths are relative to it.
	Root string
	// ProjectID names the project in storage. Defaults to the base name of Root.
	ProjectID string
	Config    ports.IndexConfig
	// Workers bounds parse fan-out. 0 means runtime.NumCPU().
	Workers int
	Logger  *slog.Logger
}

// Manager is the single writer over a ProjectIndex. Readers may run
// concurrently with each other and with the parse phase of an index run.
type Manager struct {
	root      string
	projectID string
	cfg       ports.IndexConfig
	match     matcher
	workers   int
	parser    ports.Parser
	store     ports.Storage
	log       *slog.Logger

	writer sync.Mutex // held by IndexProject, IndexFile and RemoveFile

	mu  sync.RWMutex
	idx *ports.ProjectIndex
}

// NewManager creates a Manager with an empty index. store may be nil, in
// which case the index lives in memory only. Call Load to restore a
// persisted index.
func NewManager(parser ports.Parser, store ports.Storage, opts Options) *Manager {
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		root = opts.Root
	}
	id := opts.ProjectID
	if id == "" {
		id = filepath.Base(root)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		root:      root,
		projectID: id,
		cfg:       opts.Config,
		match:     newMatcher(opts.Config),
		workers:   workers,
		parser:    parser,
		store:     store,
		log:       log,
		idx:       ports.NewProjectIndex(root),
	}
}

// Root returns the absolute project root.
func (m *Manager) Root() string { return m.root }

// ProjectID returns the storage key of the project.
func (m *Manager) ProjectID() string { return m.projectID }

// Load restores the persisted index. A missing, outdated or unreadable
// index leaves the Manager empty; only the last case is logged.
func (m *Manager) Load() {
	if m.store == nil {
		return
	}
	idx, err := m.store.LoadIndex(m.projectID)
	if err != nil {
		m.log.Warn("stored index unreadable, starting empty", "project", m.projectID, "err", err)
		idx = nil
	}
	if idx == nil {
		idx = ports.NewProjectIndex(m.root)
	}
	idx.ProjectPath = m.root
	if idx.Files == nil {
		idx.Files = make(map[string]*ports.FileIndex)
	}
	idx.Stats = ports.ComputeStats(idx)

	m.mu.Lock()
	m.idx = idx
	m.mu.Unlock()
	m.log.Debug("index loaded", "project", m.projectID, "files", len(idx.Files))
}

// outcome is what a worker produced for one discovered file.
type outcome struct {
	done bool
	kept bool             // hash matched, previous entry reused
	fi   *ports.FileIndex // nil when unsupported or failed
	err  error
}

// IndexProject brings the index up to date with the files on disk. With
// incremental set, files whose content hash matches the stored entry are
// not re-parsed; a changed configuration forces a full run. Files that are
// gone from disk are removed.
//
// Cancelling ctx stops scheduling new files. Finished files are applied
// and persisted, unprocessed ones keep their previous entry, and the
// partial result is returned together with ctx.Err().
func (m *Manager) IndexProject(ctx context.Context, incremental bool) (*IndexResult, error) {
	if !m.writer.TryLock() {
		return nil, ErrIndexBusy
	}
	defer m.writer.Unlock()

	start := time.Now()
	m.mu.RLock()
	prev := m.idx.Files
	prevCfg := m.idx.Config
	m.mu.RUnlock()

	if incremental && len(prev) > 0 && !prevCfg.Equal(m.cfg) {
		m.log.Info("index configuration changed, re-indexing everything")
		incremental = false
	}

	files, err := discover(m.root, m.match, m.parser.SupportsFile)
	if err != nil {
		return nil, fmt.Errorf("discover %s: %w", m.root, err)
	}

	results := make([]outcome, len(files))
	g := new(errgroup.Group)
	g.SetLimit(m.workers)
	for i, f := range files {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			results[i] = m.indexOne(f, prev[f.rel], incremental)
			return nil
		})
	}
	_ = g.Wait()

	res := &IndexResult{}
	next := make(map[string]*ports.FileIndex, len(files))
	failed := make(map[string]bool)
	for i, f := range files {
		r := results[i]
		switch {
		case !r.done:
			if old, ok := prev[f.rel]; ok {
				next[f.rel] = old
			}
		case r.err != nil:
			res.Errors = append(res.Errors, FileError{Path: f.rel, Err: r.err})
			failed[f.rel] = true
			m.log.Warn("index file", "file", f.rel, "err", r.err)
		case r.kept:
			next[f.rel] = prev[f.rel]
			res.Skipped++
		case r.fi != nil:
			next[f.rel] = r.fi
			res.Indexed++
		}
	}
	for p := range prev {
		if _, ok := next[p]; !ok && !failed[p] {
			res.Removed++
		}
	}

	idx := &ports.ProjectIndex{
		Version:     ports.IndexVersion,
		ProjectPath: m.root,
		LastIndexed: time.Now(),
		Config:      m.cfg,
		Files:       next,
	}
	idx.Stats = ports.ComputeStats(idx)

	m.mu.Lock()
	m.idx = idx
	m.mu.Unlock()

	m.save(idx)
	res.Duration = time.Since(start)
	m.log.Info("index complete",
		"indexed", res.Indexed, "skipped", res.Skipped, "removed", res.Removed,
		"errors", len(res.Errors), "took", res.Duration.Round(time.Millisecond))
	return res, ctx.Err()
}

// indexOne hashes a file and parses it unless the stored entry is current.
func (m *Manager) indexOne(f candidate, old *ports.FileIndex, incremental bool) outcome {
	content, err := os.ReadFile(f.abs)
	if err != nil {
		return outcome{done: true, err: err}
	}
	hash := ports.ContentHash(content)
	if incremental && old != nil && old.Hash == hash {
		return outcome{done: true, kept: true}
	}
	fi, err := m.parse(f.rel, f.abs, content, hash)
	return outcome{done: true, fi: fi, err: err}
}

func (m *Manager) parse(rel, abs string, content []byte, hash string) (*ports.FileIndex, error) {
	fi, err := m.parser.ParseFile(rel, content)
	if err != nil || fi == nil {
		return nil, err
	}
	fi.File = rel
	fi.Hash = hash
	if info, err := os.Stat(abs); err == nil {
		fi.LastModified = info.ModTime().UTC()
	}
	return fi, nil
}

// IndexFile re-parses one file regardless of its hash, stores the result
// and persists it. path may be absolute or relative to the root. It returns
// nil, nil for unsupported or excluded files. A path that no longer exists
// is removed from the index together with anything below it.
func (m *Manager) IndexFile(ctx context.Context, path string) (*ports.FileIndex, error) {
	rel, abs, err := m.resolve(path)
	if err != nil {
		return nil, err
	}
	m.writer.Lock()
	defer m.writer.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(abs)
	if errors.Is(err, os.ErrNotExist) {
		m.removeLocked(rel)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, nil
	}
	if !m.match.includes(rel) || !m.parser.SupportsFile(rel) ||
		(m.cfg.MaxFileSize > 0 && info.Size() > m.cfg.MaxFileSize) {
		m.removeLocked(rel)
		return nil, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		return nil, err
	}
	fi, err := m.parse(rel, abs, content, ports.ContentHash(content))
	if err != nil {
		return nil, fmt.Errorf("index %s: %w", rel, err)
	}
	if fi == nil {
		m.removeLocked(rel)
		return nil, nil
	}

	m.mu.Lock()
	m.idx.Files[rel] = fi
	m.idx.LastIndexed = time.Now()
	m.idx.Stats = ports.ComputeStats(m.idx)
	m.mu.Unlock()

	m.saveFile(fi)
	m.log.Debug("file indexed", "file", rel, "symbols", len(fi.Symbols))
	return fi, nil
}

// RemoveFile drops path, and every entry below it when path was a
// directory, and returns how many entries were removed.
func (m *Manager) RemoveFile(path string) (int, error) {
	rel, _, err := m.resolve(path)
	if err != nil {
		return 0, err
	}
	m.writer.Lock()
	defer m.writer.Unlock()
	return m.removeLocked(rel), nil
}

func (m *Manager) removeLocked(rel string) int {
	m.mu.Lock()
	var gone []string
	for p := range m.idx.Files {
		if p == rel || strings.HasPrefix(p, rel+"/") {
			gone = append(gone, p)
		}
	}
	for _, p := range gone {
		delete(m.idx.Files, p)
	}
	if len(gone) > 0 {
		m.idx.Stats = ports.ComputeStats(m.idx)
	}
	idx := m.idx
	m.mu.Unlock()

	if len(gone) == 0 || m.store == nil {
		return len(gone)
	}
	if fs, ok := m.store.(ports.FileStorage); ok {
		for _, p := range gone {
			if err := fs.DeleteFile(m.projectID, p); err != nil {
				m.log.Warn("delete file entry", "file", p, "err", err)
				m.save(idx)
				break
			}
		}
	} else {
		m.save(idx)
	}
	m.log.Debug("files removed", "path", rel, "count", len(gone))
	return len(gone)
}

// Wipe clears the in-memory index and deletes the persisted one.
func (m *Manager) Wipe() error {
	m.writer.Lock()
	defer m.writer.Unlock()
	m.mu.Lock()
	m.idx = ports.NewProjectIndex(m.root)
	m.mu.Unlock()
	if m.store == nil {
		return nil
	}
	return m.store.DeleteProject(m.projectID)
}

// GetStats returns counters recomputed from the in-memory index.
func (m *Manager) GetStats() ports.IndexStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return ports.ComputeStats(m.idx)
}

// LastIndexed reports when the index was last written.
func (m *Manager) LastIndexed() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idx.LastIndexed
}

// Snapshot returns a shallow copy of the index. FileIndex values are shared
// and must not be modified.
func (m *Manager) Snapshot() *ports.ProjectIndex {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cp := *m.idx
	cp.Files = make(map[string]*ports.FileIndex, len(m.idx.Files))
	for k, v := range m.idx.Files {
		cp.Files[k] = v
	}
	cp.Stats = ports.ComputeStats(&cp)
	return &cp
}

// resolve maps a user or watcher path to its slash-relative form and
// absolute location.
func (m *Manager) resolve(path string) (rel, abs string, err error) {
	if filepath.IsAbs(path) {
		abs = filepath.Clean(path)
	} else {
		abs = filepath.Join(m.root, filepath.FromSlash(path))
	}
	r, err := filepath.Rel(m.root, abs)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", "", fmt.Errorf("%s is outside project %s", path, m.root)
	}
	return filepath.ToSlash(r), abs, nil
}

// save persists the whole index. Failures are logged; the index stays
// usable in memory.
func (m *Manager) save(idx *ports.ProjectIndex) {
	if m.store == nil {
		return
	}
	if err := m.store.SaveIndex(m.projectID, idx); err != nil {
		m.log.Warn("save index failed, continuing in memory", "project", m.projectID, "err", err)
	}
}

// saveFile persists a single entry, falling back to a full save when the
// store cannot update entries in place.
func (m *Manager) saveFile(fi *ports.FileIndex) {
	if m.store == nil {
		return
	}
	if fs, ok := m.store.(ports.FileStorage); ok {
		if err := fs.PutFile(m.projectID, fi); err == nil {
			return
		}
	}
	m.save(m.Snapshot())
}

// sortedPaths returns the indexed paths in order. Callers hold mu.
func (m *Manager) sortedPaths() []string {
	paths := make([]string, 0, len(m.idx.Files))
	for p := range m.idx.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
