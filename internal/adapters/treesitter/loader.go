package treesitter

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

// StateDir is the per-project (and per-user) directory holding index state and
// optional grammar shared libraries.
const StateDir = ".codeindex"

// DynamicLoader loads tree-sitter grammars from shared libraries (.so on Linux,
// .dylib on macOS) using purego. Search paths are tried in order; first match wins.
type DynamicLoader struct {
	searchPaths []string
	mu          sync.Mutex
	handles     map[string]uintptr // so path -> dlopen handle
}

// NewDynamicLoader creates a loader that searches the given paths for grammar
// shared libraries.
func NewDynamicLoader(searchPaths []string) *DynamicLoader {
	return &DynamicLoader{
		searchPaths: searchPaths,
		handles:     make(map[string]uintptr),
	}
}

// DefaultGrammarPaths returns the default search paths for grammar shared libraries.
// Project-local (.codeindex/grammars/) is searched first, then global (~/.codeindex/grammars/).
func DefaultGrammarPaths(projectRoot string) []string {
	var paths []string
	if projectRoot != "" {
		paths = append(paths, filepath.Join(projectRoot, StateDir, "grammars"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, StateDir, "grammars"))
	}
	return paths
}

// LibExtension returns the shared library extension for the current platform.
func LibExtension() string {
	if runtime.GOOS == "darwin" {
		return ".dylib"
	}
	return ".so"
}

// CSymbolName returns the exported C function of a grammar library,
// tree_sitter_{name} with dashes folded to underscores.
func CSymbolName(lang string) string {
	return "tree_sitter_" + strings.ReplaceAll(lang, "-", "_")
}

// GrammarPath returns the path to the shared library for a language, or "" if not found.
func (dl *DynamicLoader) GrammarPath(lang string) string {
	ext := LibExtension()
	for _, dir := range dl.searchPaths {
		candidate := filepath.Join(dir, lang+ext)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// LoadGrammar opens the shared library for lang and resolves its language
// function. Callers cache the result; the loader only dedupes dlopen handles.
func (dl *DynamicLoader) LoadGrammar(lang string) (*tree_sitter.Language, error) {
	soPath := dl.GrammarPath(lang)
	if soPath == "" {
		return nil, fmt.Errorf("grammar %q: %w: no shared library in %s",
			lang, ErrGrammarNotFound, strings.Join(dl.searchPaths, ", "))
	}

	dl.mu.Lock()
	defer dl.mu.Unlock()

	handle, ok := dl.handles[soPath]
	if !ok {
		h, err := purego.Dlopen(soPath, purego.RTLD_LAZY)
		if err != nil {
			return nil, fmt.Errorf("grammar %q: dlopen %s: %w", lang, soPath, err)
		}
		dl.handles[soPath] = h
		handle = h
	}

	symName := CSymbolName(lang)
	var langFunc func() uintptr
	purego.RegisterLibFunc(&langFunc, handle, symName)

	ptr := langFunc()
	if ptr == 0 {
		return nil, fmt.Errorf("grammar %q: %s() returned null", lang, symName)
	}

	// ptr is a static TSLanguage* owned by the shared library, never moved by the GC.
	return tree_sitter.NewLanguage(*(*unsafe.Pointer)(unsafe.Pointer(&ptr))), nil
}

// InstalledGrammars returns language names found as shared libraries in the
// search paths, sorted.
func (dl *DynamicLoader) InstalledGrammars() []string {
	ext := LibExtension()
	seen := make(map[string]bool)
	var names []string
	for _, dir := range dl.searchPaths {
		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if e.IsDir() || !strings.HasSuffix(e.Name(), ext) {
				continue
			}
			lang := strings.TrimSuffix(e.Name(), ext)
			if !seen[lang] {
				seen[lang] = true
				names = append(names, lang)
			}
		}
	}
	sort.Strings(names)
	return names
}

// SearchPaths returns the configured search paths.
func (dl *DynamicLoader) SearchPaths() []string {
	return dl.searchPaths
}

// Close forgets all dlopen handles. Languages already handed out stay valid
// because the libraries are never unloaded.
func (dl *DynamicLoader) Close() {
	dl.mu.Lock()
	defer dl.mu.Unlock()
	dl.handles = make(map[string]uintptr)
}
