package treesitter

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"unsafe"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
)

var (
	// ErrGrammarNotFound is returned when neither a compiled-in grammar nor a
	// shared library exists for a language.
	ErrGrammarNotFound = errors.New("grammar not found")

	// ErrParseFailed is returned when tree-sitter produces no tree for a file.
	ErrParseFailed = errors.New("parse failed")
)

// grammarEntry memoizes one language load, successful or not.
type grammarEntry struct {
	once sync.Once
	lang *tree_sitter.Language
	err  error
}

// Registry maps file paths to language ids and loads grammars on first use.
// Loads are memoized for the registry lifetime and shared by all workers.
type Registry struct {
	builtin map[string]func() unsafe.Pointer
	loader  *DynamicLoader

	mu      sync.Mutex
	entries map[string]*grammarEntry
}

// NewRegistry creates a registry with the compiled-in grammars plus a dynamic
// loader over grammarPaths (may be empty).
func NewRegistry(grammarPaths []string) *Registry {
	r := &Registry{
		builtin: builtinGrammars(),
		entries: make(map[string]*grammarEntry),
	}
	if len(grammarPaths) > 0 {
		r.loader = NewDynamicLoader(grammarPaths)
	}
	return r
}

// LanguageForExtension returns the language id for path, or "" when unknown.
func (r *Registry) LanguageForExtension(path string) string {
	return ExtensionToLanguage(path)
}

// LoadLanguage returns the grammar for a language id. Failures wrap
// ErrGrammarNotFound and are remembered, so a missing grammar is probed once.
func (r *Registry) LoadLanguage(name string) (*tree_sitter.Language, error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = &grammarEntry{}
		r.entries[name] = e
	}
	r.mu.Unlock()

	e.once.Do(func() {
		e.lang, e.err = r.load(name)
	})
	return e.lang, e.err
}

func (r *Registry) load(name string) (*tree_sitter.Language, error) {
	if ctor, ok := r.builtin[name]; ok {
		ptr := ctor()
		if ptr == nil {
			return nil, fmt.Errorf("grammar %q: %w: constructor returned nil", name, ErrGrammarNotFound)
		}
		return tree_sitter.NewLanguage(ptr), nil
	}
	if r.loader != nil {
		return r.loader.LoadGrammar(name)
	}
	return nil, fmt.Errorf("grammar %q: %w", name, ErrGrammarNotFound)
}

// HasLanguage reports whether a grammar for name is compiled in or present on
// the search path. It does not load anything.
func (r *Registry) HasLanguage(name string) bool {
	if IsComposite(name) {
		return r.HasLanguage("javascript")
	}
	if _, ok := r.builtin[name]; ok {
		return true
	}
	return r.loader != nil && r.loader.GrammarPath(name) != ""
}

// GrammarInfo describes one available language.
type GrammarInfo struct {
	Name   string `json:"name"`
	Source string `json:"source"` // "builtin", "composite" or a shared library path
}

// Installed lists compiled-in, composite and dynamically discoverable languages, sorted by name.
func (r *Registry) Installed() []GrammarInfo {
	seen := make(map[string]bool)
	var out []GrammarInfo
	for name := range r.builtin {
		seen[name] = true
		out = append(out, GrammarInfo{Name: name, Source: "builtin"})
	}
	if r.loader != nil {
		for _, name := range r.loader.InstalledGrammars() {
			if !seen[name] {
				seen[name] = true
				out = append(out, GrammarInfo{Name: name, Source: r.loader.GrammarPath(name)})
			}
		}
	}
	for name := range compositeLanguages {
		if r.HasLanguage(name) {
			out = append(out, GrammarInfo{Name: name, Source: "composite"})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Loader returns the dynamic grammar loader, or nil if not configured.
func (r *Registry) Loader() *DynamicLoader {
	return r.loader
}

// Close releases dynamic loader handles.
func (r *Registry) Close() {
	if r.loader != nil {
		r.loader.Close()
	}
}
