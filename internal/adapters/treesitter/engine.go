// Package treesitter turns source files into ports.FileIndex values using
// tree-sitter grammars. Grammars are compiled in from go-sitter-forest or
// loaded at runtime from shared libraries; per-language visitors extract
// symbols, imports, exports and references from the parse tree.
package treesitter

import (
	"fmt"
	"log/slog"
	"os"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/adapters/ahocorasick"
	"github.com/corey/codeindex/internal/ports"
)

// visitors is the strategy table keyed by language id.
var visitors = map[string]visitor{
	"javascript": jsRules,
	"typescript": jsRules,
	"tsx":        jsRules,
	"python":     pythonRules,
	"go":         goRules,
	"rust":       rustRules,
	"java":       javaRules,
	"kotlin":     kotlinRules,
	"scala":      scalaRules,
	"c_sharp":    csharpRules,
	"php":        phpRules,
	"ruby":       rubyRules,
	"c":          cRules,
	"cpp":        cRules,
}

// Engine implements ports.Parser. It is safe for concurrent use: every call
// creates its own tree_sitter.Parser and the registry memoizes grammars.
type Engine struct {
	registry    *Registry
	maxFileSize int64
	log         *slog.Logger
	macros      *ahocorasick.Scanner
}

var _ ports.Parser = (*Engine)(nil)

// NewEngine creates an engine over reg. Files larger than maxFileSize bytes
// are skipped (0 disables the limit). A nil logger uses slog.Default().
func NewEngine(reg *Registry, maxFileSize int64, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		registry:    reg,
		maxFileSize: maxFileSize,
		log:         log,
		macros:      newMacroScanner(),
	}
}

// Registry returns the grammar registry backing the engine.
func (e *Engine) Registry() *Registry {
	return e.registry
}

// SupportsFile reports whether path maps to a language with both a visitor
// and an available grammar.
func (e *Engine) SupportsFile(path string) bool {
	lang := e.registry.LanguageForExtension(path)
	if lang == "" {
		return false
	}
	if _, ok := visitors[lang]; !ok && !IsComposite(lang) {
		return false
	}
	return e.registry.HasLanguage(lang)
}

// ParseFile extracts a FileIndex from content. A nil content reads path from
// disk. Unsupported input (unknown language, missing grammar, oversized
// file) yields nil, nil.
func (e *Engine) ParseFile(path string, content []byte) (*ports.FileIndex, error) {
	lang := e.registry.LanguageForExtension(path)
	if lang == "" {
		return nil, nil
	}

	if content == nil {
		info, err := os.Stat(path)
		if err != nil {
			return nil, err
		}
		if e.maxFileSize > 0 && info.Size() > e.maxFileSize {
			return nil, nil
		}
		if content, err = os.ReadFile(path); err != nil {
			return nil, err
		}
	}
	if e.maxFileSize > 0 && int64(len(content)) > e.maxFileSize {
		e.log.Debug("skipping large file", "file", path, "size", len(content))
		return nil, nil
	}

	if IsComposite(lang) {
		return e.parseComposite(path, lang, content)
	}

	v, ok := visitors[lang]
	if !ok {
		return nil, nil
	}
	grammar, err := e.registry.LoadLanguage(lang)
	if err != nil {
		e.log.Debug("grammar unavailable", "file", path, "lang", lang, "err", err)
		return nil, nil
	}

	c := &passContext{file: path, lang: lang, source: content}
	ex, err := e.extract(grammar, v, c)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &ports.FileIndex{
		File:       path,
		Language:   lang,
		Hash:       ports.ContentHash(content),
		Symbols:    ex.symbols,
		Imports:    ex.imports,
		Exports:    ex.exports,
		References: ex.references,
	}, nil
}

// extraction holds the output of the four passes over one tree.
type extraction struct {
	symbols    []ports.Symbol
	imports    []ports.Import
	exports    []ports.Export
	references []ports.Reference
}

// extract parses c.source with grammar and runs the passes. Trees with
// syntax errors are still extracted.
func (e *Engine) extract(grammar *tree_sitter.Language, v visitor, c *passContext) (*extraction, error) {
	parser := tree_sitter.NewParser()
	defer parser.Close()
	if err := parser.SetLanguage(grammar); err != nil {
		return nil, fmt.Errorf("set language %s: %w", c.lang, err)
	}

	tree := parser.Parse(c.source, nil)
	if tree == nil {
		return nil, ErrParseFailed
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, ErrParseFailed
	}
	if root.HasError() {
		e.log.Debug("syntax errors, extracting best-effort", "file", c.file, "lang", c.lang)
	}

	return &extraction{
		symbols:    symbolPass(root, v, c),
		imports:    importPass(root, v, c),
		exports:    exportPass(root, v, c),
		references: referencePass(root, v, c),
	}, nil
}

func symbolPass(root *tree_sitter.Node, v visitor, c *passContext) []ports.Symbol {
	out := []ports.Symbol{}
	walk(root, func(n *tree_sitter.Node) {
		if s, ok := v.symbol(n, c); ok {
			out = append(out, s)
		}
	})
	linkChildren(out)
	return out
}

func importPass(root *tree_sitter.Node, v visitor, c *passContext) []ports.Import {
	out := []ports.Import{}
	walk(root, func(n *tree_sitter.Node) {
		out = append(out, v.imports(n, c)...)
	})
	return out
}

func exportPass(root *tree_sitter.Node, v visitor, c *passContext) []ports.Export {
	out := []ports.Export{}
	walk(root, func(n *tree_sitter.Node) {
		out = append(out, v.exports(n, c)...)
	})
	return out
}

func referencePass(root *tree_sitter.Node, v visitor, c *passContext) []ports.Reference {
	out := []ports.Reference{}
	walk(root, func(n *tree_sitter.Node) {
		out = append(out, v.references(n, c)...)
	})
	return out
}
