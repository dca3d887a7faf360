package index

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/codeindex/internal/ports"
)

// =============================================================================
// Index manager: incremental indexing by content hash over a single writer.
// Expectation: unchanged files are never re-parsed, changed files always
// are, deleted files drop out, parse failures are recorded without aborting
// the run, and cancellation keeps completed work.
// =============================================================================

// lineParser indexes .fk files, one directive per line:
//
//	def Name   function starting here, closed by "end"
//	class Name single-line class
//	call name  call reference
//	fail       the whole file fails to parse
//
// Capitalized names are exported.
type lineParser struct {
	calls  atomic.Int64
	onCall func(path string)
}

func (p *lineParser) SupportsFile(path string) bool {
	return strings.HasSuffix(path, ".fk")
}

func (p *lineParser) ParseFile(path string, content []byte) (*ports.FileIndex, error) {
	p.calls.Add(1)
	if p.onCall != nil {
		p.onCall(path)
	}
	fi := &ports.FileIndex{
		File:       path,
		Language:   "fake",
		Symbols:    []ports.Symbol{},
		Imports:    []ports.Import{},
		Exports:    []ports.Export{},
		References: []ports.Reference{},
	}
	var open []int
	sc := bufio.NewScanner(bytes.NewReader(content))
	for line := 1; sc.Scan(); line++ {
		text := sc.Text()
		indent := len(text) - len(strings.TrimLeft(text, " \t"))
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		at := func(col int) ports.Position { return ports.Position{Line: line, Column: col} }
		switch fields[0] {
		case "fail":
			return nil, errors.New("syntax error")
		case "end":
			if n := len(open); n > 0 {
				fi.Symbols[open[n-1]].Range.End = at(indent + 3)
				open = open[:n-1]
			}
		case "def", "class":
			name := fields[1]
			nameCol := indent + len(fields[0]) + 1
			s := ports.Symbol{
				Name:           name,
				Kind:           ports.KindFunction,
				File:           path,
				Language:       "fake",
				Range:          ports.Range{Start: at(indent), End: at(len(text))},
				SelectionRange: ports.Range{Start: at(nameCol), End: at(nameCol + len(name))},
				Exported:       name[0] >= 'A' && name[0] <= 'Z',
			}
			if fields[0] == "class" {
				s.Kind = ports.KindClass
			} else {
				open = append(open, len(fi.Symbols))
			}
			fi.Symbols = append(fi.Symbols, s)
		case "call":
			col := indent + len("call ")
			fi.References = append(fi.References, ports.Reference{
				Symbol: fields[1],
				File:   path,
				Kind:   ports.RefCall,
				Range:  ports.Range{Start: at(col), End: at(col + len(fields[1]))},
			})
		}
	}
	return fi, nil
}

// memStore is an in-memory ports.Storage that can be told to fail.
type memStore struct {
	mu      sync.Mutex
	saved   map[string]*ports.ProjectIndex
	saves   int
	puts    int
	deletes int
	loadErr error
	saveErr error
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]*ports.ProjectIndex)}
}

func (s *memStore) SaveIndex(id string, idx *ports.ProjectIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saves++
	cp := *idx
	cp.Files = make(map[string]*ports.FileIndex, len(idx.Files))
	for k, v := range idx.Files {
		cp.Files[k] = v
	}
	s.saved[id] = &cp
	return nil
}

func (s *memStore) LoadIndex(id string) (*ports.ProjectIndex, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	idx, ok := s.saved[id]
	if !ok {
		return nil, nil
	}
	cp := *idx
	cp.Files = make(map[string]*ports.FileIndex, len(idx.Files))
	for k, v := range idx.Files {
		cp.Files[k] = v
	}
	return &cp, nil
}

func (s *memStore) DeleteProject(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, id)
	return nil
}

func (s *memStore) Close() error { return nil }

// fileStore adds per-entry updates to memStore.
type fileStore struct{ *memStore }

func (s fileStore) PutFile(id string, fi *ports.FileIndex) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.saved[id]
	if !ok {
		return errors.New("project not saved")
	}
	s.puts++
	idx.Files[fi.File] = fi
	return nil
}

func (s fileStore) DeleteFile(id, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.saved[id]
	if !ok {
		return errors.New("project not saved")
	}
	s.deletes++
	delete(idx.Files, path)
	return nil
}

func writeFile(t *testing.T, root, rel, body string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestManager(t *testing.T, root string, p ports.Parser, store ports.Storage, cfg ports.IndexConfig) *Manager {
	t.Helper()
	if len(cfg.Exclude) == 0 {
		cfg.Exclude = []string{"**/node_modules/**", "**/.git/**"}
	}
	return NewManager(p, store, Options{Root: root, ProjectID: "proj", Config: cfg, Workers: 4})
}

func TestIndexProject_IncrementalSkipsUnchanged(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	writeFile(t, root, "pkg/b.fk", "def beta\n  call Alpha\nend\n")

	p := &lineParser{}
	m := newTestManager(t, root, p, nil, ports.IndexConfig{})

	res, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, 0, res.Skipped)
	first := m.GetFile("pkg/b.fk")
	require.NotNil(t, first)
	callsAfterFirst := p.calls.Load()

	res, err = m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Indexed)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, callsAfterFirst, p.calls.Load(), "no parses for unchanged files")
	assert.Same(t, first, m.GetFile("pkg/b.fk"))
}

func TestIndexProject_FullReparsesEverything(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	p := &lineParser{}
	m := newTestManager(t, root, p, nil, ports.IndexConfig{})

	_, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)
	res, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, int64(2), p.calls.Load())
}

func TestIndexProject_HashSensitivity(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "a.fk", "def Alpha\nend\n")
	writeFile(t, root, "b.fk", "def beta\nend\n")
	m := newTestManager(t, root, &lineParser{}, nil, ports.IndexConfig{})

	_, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	before := m.GetFile("a.fk").Hash

	require.NoError(t, os.WriteFile(path, []byte("def Alphb\nend\n"), 0o644))
	res, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Skipped)
	after := m.GetFile("a.fk")
	assert.NotEqual(t, before, after.Hash)
	assert.Equal(t, "Alphb", after.Symbols[0].Name)
}

func TestIndexProject_DeletedFileRemoved(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "keep.fk", "def Keep\nend\n")
	gone := writeFile(t, root, "gone.fk", "def Gone\nend\nclass Extra\n")
	m := newTestManager(t, root, &lineParser{}, nil, ports.IndexConfig{})

	_, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, m.GetStats().TotalSymbols)

	require.NoError(t, os.Remove(gone))
	res, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)

	st := m.GetStats()
	assert.Equal(t, 1, st.TotalFiles)
	assert.Equal(t, 1, st.TotalSymbols)
	assert.Nil(t, m.GetFile("gone.fk"))
	assert.Empty(t, m.GetAllDefinitions("Gone"))
}

func TestIndexProject_ParseFailureDoesNotAbort(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	writeFile(t, root, "broken.fk", "def Half\nfail\n")
	writeFile(t, root, "c.fk", "class Gamma\n")
	m := newTestManager(t, root, &lineParser{}, nil, ports.IndexConfig{})

	res, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Indexed)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "broken.fk", res.Errors[0].Path)
	assert.ErrorContains(t, res.Errors[0], "syntax error")
	assert.Nil(t, m.GetFile("broken.fk"))
}

func TestIndexProject_FailedFileIsNotCountedRemoved(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	writeFile(t, root, "b.fk", "def Beta\nend\n")
	m := newTestManager(t, root, &lineParser{}, nil, ports.IndexConfig{})

	_, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	require.NotNil(t, m.GetFile("b.fk"))

	writeFile(t, root, "b.fk", "def Beta\nfail\n")
	res, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "b.fk", res.Errors[0].Path)
	assert.Equal(t, 0, res.Removed)
	assert.Equal(t, 1, res.Skipped)
	assert.Nil(t, m.GetFile("b.fk"))

	require.NoError(t, os.Remove(filepath.Join(root, "a.fk")))
	res, err = m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Removed)
	assert.Len(t, res.Errors, 1)
}

func TestIndexProject_GlobsAndSupport(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "src/app.fk", "def App\nend\n")
	writeFile(t, root, "src/gen/out.fk", "def Gen\nend\n")
	writeFile(t, root, "node_modules/lib/x.fk", "def Dep\nend\n")
	writeFile(t, root, "README.md", "# readme\n")
	writeFile(t, root, "big.fk", "def Big\nend\n"+strings.Repeat("# pad\n", 100))

	cfg := ports.IndexConfig{
		Include:     []string{"src/**", "*.fk"},
		Exclude:     []string{"**/node_modules/**", "src/gen/**"},
		MaxFileSize: 200,
	}
	m := newTestManager(t, root, &lineParser{}, nil, cfg)

	res, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.NotNil(t, m.GetFile("src/app.fk"))
	assert.Nil(t, m.GetFile("src/gen/out.fk"))
	assert.Nil(t, m.GetFile("node_modules/lib/x.fk"))
	assert.Nil(t, m.GetFile("big.fk"), "files over maxFileSize are skipped")
}

func TestIndexProject_ConfigChangeForcesFullRun(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	store := newMemStore()

	p := &lineParser{}
	m := newTestManager(t, root, p, store, ports.IndexConfig{MaxFileSize: 1000})
	_, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)

	m2 := newTestManager(t, root, p, store, ports.IndexConfig{MaxFileSize: 2000})
	m2.Load()
	res, err := m2.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed, "changed config re-parses unchanged files")
	assert.Equal(t, int64(2), p.calls.Load())
}

func TestIndexProject_Busy(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")

	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	p := &lineParser{onCall: func(string) {
		once.Do(func() { close(entered) })
		<-release
	}}
	m := newTestManager(t, root, p, nil, ports.IndexConfig{})

	done := make(chan error, 1)
	go func() {
		_, err := m.IndexProject(context.Background(), false)
		done <- err
	}()
	<-entered

	_, err := m.IndexProject(context.Background(), false)
	assert.ErrorIs(t, err, ErrIndexBusy)

	close(release)
	require.NoError(t, <-done)

	_, err = m.IndexProject(context.Background(), true)
	assert.NoError(t, err, "guard is released after the run")
}

func TestIndexProject_CancellationKeepsProgress(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.fk", "b.fk", "c.fk", "d.fk"} {
		writeFile(t, root, name, "def "+strings.ToUpper(name[:1])+"\nend\n")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &lineParser{onCall: func(string) { cancel() }}
	store := newMemStore()
	m := NewManager(p, store, Options{Root: root, ProjectID: "proj", Workers: 1})

	res, err := m.IndexProject(ctx, false)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, m.GetStats().TotalFiles)
	assert.NotNil(t, m.GetFile("a.fk"))

	saved, err := store.LoadIndex("proj")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Len(t, saved.Files, 1, "partial progress is persisted")

	res, err = m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Indexed)
	assert.Equal(t, 1, res.Skipped)
}

func TestLoad_RestoresPersistedIndex(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	store := newMemStore()

	m := newTestManager(t, root, &lineParser{}, store, ports.IndexConfig{})
	_, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)

	p := &lineParser{}
	m2 := newTestManager(t, root, p, store, ports.IndexConfig{})
	m2.Load()
	assert.Len(t, m2.GetAllDefinitions("Alpha"), 1)

	res, err := m2.IndexProject(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Skipped)
	assert.Zero(t, p.calls.Load())
}

func TestLoad_CorruptIndexStartsEmpty(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("decode: corrupt record")
	m := newTestManager(t, t.TempDir(), &lineParser{}, store, ports.IndexConfig{})

	assert.NotPanics(t, m.Load)
	assert.Zero(t, m.GetStats().TotalFiles)
	assert.Empty(t, m.GetAllSymbols())
}

func TestIndexProject_SaveFailureContinuesInMemory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	store := newMemStore()
	store.saveErr = errors.New("disk full")
	m := newTestManager(t, root, &lineParser{}, store, ports.IndexConfig{})

	res, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)
	assert.Len(t, m.GetAllDefinitions("Alpha"), 1)
}

func TestIndexFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	store := fileStore{newMemStore()}
	p := &lineParser{}
	m := newTestManager(t, root, p, store, ports.IndexConfig{})
	_, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)

	t.Run("always reparses", func(t *testing.T) {
		before := p.calls.Load()
		fi, err := m.IndexFile(context.Background(), "a.fk")
		require.NoError(t, err)
		require.NotNil(t, fi)
		assert.Equal(t, before+1, p.calls.Load())
		assert.Equal(t, 1, store.puts)
	})

	t.Run("new file by absolute path", func(t *testing.T) {
		path := writeFile(t, root, "lib/b.fk", "def Beta\nend\n")
		fi, err := m.IndexFile(context.Background(), path)
		require.NoError(t, err)
		require.NotNil(t, fi)
		assert.Equal(t, "lib/b.fk", fi.File)
		assert.Equal(t, 2, m.GetStats().TotalFiles)

		saved, _ := store.LoadIndex("proj")
		assert.Contains(t, saved.Files, "lib/b.fk")
	})

	t.Run("unsupported", func(t *testing.T) {
		path := writeFile(t, root, "notes.txt", "hello")
		fi, err := m.IndexFile(context.Background(), path)
		assert.NoError(t, err)
		assert.Nil(t, fi)
	})

	t.Run("deleted directory drops entries below it", func(t *testing.T) {
		writeFile(t, root, "lib/c.fk", "class Gamma\n")
		_, err := m.IndexFile(context.Background(), "lib/c.fk")
		require.NoError(t, err)

		require.NoError(t, os.RemoveAll(filepath.Join(root, "lib")))
		fi, err := m.IndexFile(context.Background(), filepath.Join(root, "lib"))
		assert.NoError(t, err)
		assert.Nil(t, fi)
		assert.Equal(t, 1, m.GetStats().TotalFiles)
		assert.Equal(t, 2, store.deletes)
	})

	t.Run("outside root", func(t *testing.T) {
		_, err := m.IndexFile(context.Background(), filepath.Join(filepath.Dir(root), "x.fk"))
		assert.Error(t, err)
	})

	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := m.IndexFile(ctx, "a.fk")
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRemoveFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	writeFile(t, root, "b.fk", "def Beta\nend\n")
	m := newTestManager(t, root, &lineParser{}, nil, ports.IndexConfig{})
	_, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)

	n, err := m.RemoveFile("a.fk")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = m.RemoveFile("a.fk")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 1, m.GetStats().TotalFiles)
}

func TestWipe(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.fk", "def Alpha\nend\n")
	store := newMemStore()
	m := newTestManager(t, root, &lineParser{}, store, ports.IndexConfig{})
	_, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, m.Wipe())
	assert.Zero(t, m.GetStats().TotalFiles)
	saved, err := store.LoadIndex("proj")
	require.NoError(t, err)
	assert.Nil(t, saved)
}

func TestIndexProject_ConcurrentReaders(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 50; i++ {
		writeFile(t, root, filepath.Join("pkg", string(rune('a'+i%26))+strings.Repeat("x", i/26)+".fk"),
			"def Fn\n  call Fn\nend\n")
	}
	m := newTestManager(t, root, &lineParser{}, nil, ports.IndexConfig{})

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					m.FindReferences("Fn")
					_, _ = m.Search(SearchOptions{Query: "F"})
					m.BuildCallGraph()
				}
			}
		}()
	}
	for i := 0; i < 3; i++ {
		_, err := m.IndexProject(context.Background(), i > 0)
		require.NoError(t, err)
	}
	close(stop)
	wg.Wait()
	assert.Equal(t, 50, m.GetStats().TotalFiles)
	assert.WithinDuration(t, time.Now(), m.LastIndexed(), time.Minute)
}

func TestExcluded(t *testing.T) {
	cfg := ports.IndexConfig{Exclude: []string{"**/node_modules/**", "src/*.gen.fk", "build/**"}}
	assert.True(t, Excluded(cfg, "web/node_modules", true))
	assert.True(t, Excluded(cfg, "build", true))
	assert.False(t, Excluded(cfg, "src", true), "only some files below src are excluded")
	assert.True(t, Excluded(cfg, "src/api.gen.fk", false))
	assert.False(t, Excluded(cfg, "src/api.fk", false))
}
