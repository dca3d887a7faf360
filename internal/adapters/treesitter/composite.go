package treesitter

import (
	"bytes"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/corey/codeindex/internal/adapters/ahocorasick"
	"github.com/corey/codeindex/internal/ports"
)

var (
	scriptBlock = regexp.MustCompile(`(?is)<script\b([^>]*)>(.*?)</script\s*>`)
	styleBlock  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style\s*>`)
	langAttr    = regexp.MustCompile(`(?i)\blang\s*=\s*["']?([a-z]+)`)

	componentTag = regexp.MustCompile(`<([A-Z][A-Za-z0-9_]*(?:\.[A-Za-z0-9_]+)*)`)
	vueHandler   = regexp.MustCompile(`(?:@|v-on:)[A-Za-z][\w.:-]*\s*=\s*"\s*([A-Za-z_$][\w$]*)\s*"`)
	svelteHandle = regexp.MustCompile(`\bon:[A-Za-z][\w.|-]*\s*=\s*\{\s*([A-Za-z_$][\w$]*)\s*\}`)
)

// setupMacro maps a compiler macro to the synthetic symbol it declares.
type setupMacro struct {
	name string
	kind ports.SymbolKind
}

var setupMacros = map[string]setupMacro{
	"defineProps":           {"props", ports.KindProperty},
	"withDefaults":          {"props", ports.KindProperty},
	"defineEmits":           {"emits", ports.KindEvent},
	"defineExpose":          {"expose", ports.KindProperty},
	"defineModel":           {"model", ports.KindProperty},
	"defineSlots":           {"slots", ports.KindProperty},
	"createEventDispatcher": {"dispatch", ports.KindEvent},
}

func newMacroScanner() *ahocorasick.Scanner {
	patterns := make([]string, 0, len(setupMacros))
	for p := range setupMacros {
		patterns = append(patterns, p)
	}
	sort.Strings(patterns)
	return ahocorasick.New(patterns)
}

// scriptRegion is one <script> block of a composite document.
type scriptRegion struct {
	lang   string
	text   []byte
	offset int // byte offset of text in the document
}

func scriptRegions(doc []byte) []scriptRegion {
	var out []scriptRegion
	for _, m := range scriptBlock.FindAllSubmatchIndex(doc, -1) {
		attrs := doc[m[2]:m[3]]
		out = append(out, scriptRegion{
			lang:   scriptLanguage(attrs),
			text:   doc[m[4]:m[5]],
			offset: m[4],
		})
	}
	return out
}

// scriptLanguage maps a lang attribute to a grammar; default javascript.
func scriptLanguage(attrs []byte) string {
	m := langAttr.FindSubmatch(attrs)
	if m == nil {
		return "javascript"
	}
	switch strings.ToLower(string(m[1])) {
	case "ts", "typescript":
		return "typescript"
	case "tsx":
		return "tsx"
	default:
		return "javascript"
	}
}

// lineIndex converts byte offsets of one document into positions.
type lineIndex []int

func newLineIndex(doc []byte) lineIndex {
	idx := lineIndex{0}
	for i, b := range doc {
		if b == '\n' {
			idx = append(idx, i+1)
		}
	}
	return idx
}

func (l lineIndex) position(offset int) ports.Position {
	i := sort.Search(len(l), func(i int) bool { return l[i] > offset }) - 1
	return ports.Position{Line: i + 1, Column: offset - l[i], Offset: offset}
}

// shifter moves region-relative positions into document coordinates. Columns
// only shift on the region's first line.
type shifter struct {
	lines  int // lines before the region start
	column int // column of the region start
	offset int
}

func newShifter(doc lineIndex, offset int) shifter {
	p := doc.position(offset)
	return shifter{lines: p.Line - 1, column: p.Column, offset: offset}
}

func (s shifter) pos(p ports.Position) ports.Position {
	if p.Line == 1 {
		p.Column += s.column
	}
	p.Line += s.lines
	p.Offset += s.offset
	return p
}

func (s shifter) rng(r ports.Range) ports.Range {
	return ports.Range{Start: s.pos(r.Start), End: s.pos(r.End)}
}

func (s shifter) apply(ex *extraction) {
	for i := range ex.symbols {
		ex.symbols[i].Range = s.rng(ex.symbols[i].Range)
		ex.symbols[i].SelectionRange = s.rng(ex.symbols[i].SelectionRange)
	}
	for i := range ex.imports {
		ex.imports[i].Range = s.rng(ex.imports[i].Range)
	}
	for i := range ex.exports {
		ex.exports[i].Range = s.rng(ex.exports[i].Range)
	}
	for i := range ex.references {
		ex.references[i].Range = s.rng(ex.references[i].Range)
	}
}

// parseComposite splits a vue/svelte document into script regions, parses
// each with its script grammar and scans the markup for component usages
// and event handlers.
func (e *Engine) parseComposite(path, lang string, doc []byte) (*ports.FileIndex, error) {
	lines := newLineIndex(doc)
	fi := &ports.FileIndex{
		File:       path,
		Language:   lang,
		Hash:       ports.ContentHash(doc),
		Symbols:    []ports.Symbol{},
		Imports:    []ports.Import{},
		Exports:    []ports.Export{},
		References: []ports.Reference{},
	}

	for _, region := range scriptRegions(doc) {
		sh := newShifter(lines, region.offset)
		fi.Symbols = append(fi.Symbols, e.macroSymbols(path, lang, doc, lines, region)...)

		grammar, err := e.registry.LoadLanguage(region.lang)
		if err != nil {
			e.log.Debug("script grammar unavailable", "file", path, "lang", region.lang, "err", err)
			continue
		}
		c := &passContext{file: path, lang: lang, source: region.text, composite: true}
		ex, err := e.extract(grammar, visitors[region.lang], c)
		if err != nil {
			e.log.Debug("script region failed", "file", path, "offset", region.offset, "err", err)
			continue
		}
		sh.apply(ex)
		fi.Symbols = append(fi.Symbols, ex.symbols...)
		fi.Imports = append(fi.Imports, ex.imports...)
		fi.Exports = append(fi.Exports, ex.exports...)
		fi.References = append(fi.References, ex.references...)
	}

	fi.References = append(fi.References, markupReferences(path, doc, lines)...)

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	whole := ports.Range{Start: lines.position(0), End: lines.position(len(doc))}
	component := ports.Symbol{
		Name:           name,
		Kind:           ports.KindComponent,
		Range:          whole,
		SelectionRange: ports.Range{Start: whole.Start, End: whole.Start},
		File:           path,
		Language:       lang,
		Signature:      name,
		Exported:       true,
	}
	fi.Symbols = append([]ports.Symbol{component}, fi.Symbols...)
	fi.Exports = append(fi.Exports, ports.Export{Name: name, File: path, Range: whole, Kind: ports.ExportDefault})
	return fi, nil
}

// macroCall reports whether the macro name ending at end is called, either
// directly or with type arguments: defineProps(...) or defineProps<T>().
// Imports and bare mentions are not call sites.
func macroCall(text []byte, end int) bool {
	for i := end; i < len(text); i++ {
		switch text[i] {
		case ' ', '\t', '\r', '\n':
			continue
		case '(', '<':
			return true
		}
		return false
	}
	return false
}

// macroSymbols emits one synthetic symbol per setup macro call site,
// deduplicated by name and line.
func (e *Engine) macroSymbols(path, lang string, doc []byte, lines lineIndex, region scriptRegion) []ports.Symbol {
	type site struct {
		name string
		line int
	}
	var out []ports.Symbol
	seen := make(map[site]bool)
	for _, m := range e.macros.FindWords(region.text) {
		if !macroCall(region.text, m.End) {
			continue
		}
		def := setupMacros[m.Keyword]
		start := lines.position(region.offset + m.Start)
		key := site{def.name, start.Line}
		if seen[key] {
			continue
		}
		seen[key] = true
		r := ports.Range{Start: start, End: lines.position(region.offset + m.End)}
		out = append(out, ports.Symbol{
			Name:           def.name,
			Kind:           def.kind,
			Range:          r,
			SelectionRange: r,
			File:           path,
			Language:       lang,
			Signature:      lineContext(doc, start.Offset),
		})
	}
	return out
}

// maskBlocks blanks script and style blocks, keeping newlines so offsets and
// lines still line up with the document.
func maskBlocks(doc []byte) []byte {
	masked := bytes.Clone(doc)
	blank := func(loc []int) {
		for i := loc[0]; i < loc[1]; i++ {
			if masked[i] != '\n' {
				masked[i] = ' '
			}
		}
	}
	for _, loc := range scriptBlock.FindAllIndex(doc, -1) {
		blank(loc)
	}
	for _, loc := range styleBlock.FindAllIndex(doc, -1) {
		blank(loc)
	}
	return masked
}

// markupReferences finds PascalCase component tags and bare-identifier event
// handlers in the template.
func markupReferences(path string, doc []byte, lines lineIndex) []ports.Reference {
	markup := maskBlocks(doc)
	var out []ports.Reference
	add := func(start, end int, kind ports.ReferenceKind) {
		out = append(out, ports.Reference{
			Symbol:  string(doc[start:end]),
			File:    path,
			Range:   ports.Range{Start: lines.position(start), End: lines.position(end)},
			Context: lineContext(doc, start),
			Kind:    kind,
		})
	}
	for _, m := range componentTag.FindAllSubmatchIndex(markup, -1) {
		add(m[2], m[3], ports.RefComponentUsage)
	}
	for _, re := range []*regexp.Regexp{vueHandler, svelteHandle} {
		for _, m := range re.FindAllSubmatchIndex(markup, -1) {
			add(m[2], m[3], ports.RefCall)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Range.Start.Offset < out[j].Range.Start.Offset })
	return out
}
