package ports

import (
	"fmt"
	"time"

	"github.com/zeebo/xxh3"
)

// IndexVersion is bumped whenever the persisted layout of ProjectIndex changes.
// A stored index with a different version is discarded on load.
const IndexVersion = 1

// Position is a point in a source file.
// Line is 1-based, Column and Offset are 0-based byte counts.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Offset int `json:"offset"`
}

// Before reports whether p sorts strictly before q.
func (p Position) Before(q Position) bool {
	if p.Line != q.Line {
		return p.Line < q.Line
	}
	return p.Column < q.Column
}

// Range is a span of source text. End is never before Start.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Contains reports whether inner lies entirely within r.
func (r Range) Contains(inner Range) bool {
	return !inner.Start.Before(r.Start) && !r.End.Before(inner.End)
}

// ContainsPosition reports whether p lies within r.
func (r Range) ContainsPosition(p Position) bool {
	return !p.Before(r.Start) && !r.End.Before(p)
}

// SymbolKind classifies a declaration. The set is closed.
type SymbolKind string

const (
	KindFunction    SymbolKind = "function"
	KindMethod      SymbolKind = "method"
	KindClass       SymbolKind = "class"
	KindInterface   SymbolKind = "interface"
	KindType        SymbolKind = "type"
	KindEnum        SymbolKind = "enum"
	KindVariable    SymbolKind = "variable"
	KindConstant    SymbolKind = "constant"
	KindProperty    SymbolKind = "property"
	KindConstructor SymbolKind = "constructor"
	KindModule      SymbolKind = "module"
	KindNamespace   SymbolKind = "namespace"
	KindComponent   SymbolKind = "component"
	KindHook        SymbolKind = "hook"
	KindDecorator   SymbolKind = "decorator"
	KindEvent       SymbolKind = "event"
	KindUnknown     SymbolKind = "unknown"
)

// SymbolKinds lists every SymbolKind in display order.
var SymbolKinds = []SymbolKind{
	KindFunction, KindMethod, KindClass, KindInterface, KindType, KindEnum,
	KindVariable, KindConstant, KindProperty, KindConstructor, KindModule,
	KindNamespace, KindComponent, KindHook, KindDecorator, KindEvent, KindUnknown,
}

// ParseSymbolKind maps a user-supplied string to a SymbolKind.
func ParseSymbolKind(s string) (SymbolKind, error) {
	for _, k := range SymbolKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown symbol kind %q", s)
}

// Callable reports whether symbols of this kind can contain call sites.
func (k SymbolKind) Callable() bool {
	switch k {
	case KindFunction, KindMethod, KindConstructor, KindHook:
		return true
	}
	return false
}

// Symbol is a named declaration extracted from a file.
type Symbol struct {
	Name           string     `json:"name"`
	Kind           SymbolKind `json:"kind"`
	Range          Range      `json:"range"`
	SelectionRange Range      `json:"selectionRange"`
	File           string     `json:"file"`
	Language       string     `json:"language"`
	Signature      string     `json:"signature,omitempty"`
	Documentation  string     `json:"documentation,omitempty"`
	Exported       bool       `json:"exported,omitempty"`
	Async          bool       `json:"async,omitempty"`
	Static         bool       `json:"static,omitempty"`
	Visibility     string     `json:"visibility,omitempty"`
	Parameters     []string   `json:"parameters,omitempty"`
	ReturnType     string     `json:"returnType,omitempty"`
	Extends        string     `json:"extends,omitempty"`
	Implements     []string   `json:"implements,omitempty"`
	Parent         string     `json:"parent,omitempty"`
	Children       []string   `json:"children,omitempty"`
}

// ReferenceKind classifies a use site.
type ReferenceKind string

const (
	RefCall           ReferenceKind = "call"
	RefRead           ReferenceKind = "read"
	RefWrite          ReferenceKind = "write"
	RefImport         ReferenceKind = "import"
	RefExport         ReferenceKind = "export"
	RefType           ReferenceKind = "type"
	RefExtends        ReferenceKind = "extends"
	RefImplements     ReferenceKind = "implements"
	RefInstantiate    ReferenceKind = "instantiate"
	RefDecorator      ReferenceKind = "decorator"
	RefComponentUsage ReferenceKind = "component-usage"
	RefUnknown        ReferenceKind = "unknown"
)

// Reference is a use of a name. Resolution to definitions happens at query time.
type Reference struct {
	Symbol  string        `json:"symbol"`
	File    string        `json:"file"`
	Range   Range         `json:"range"`
	Context string        `json:"context,omitempty"`
	Kind    ReferenceKind `json:"kind"`
}

// ImportKind classifies an import statement.
type ImportKind string

const (
	ImportNamed      ImportKind = "named"
	ImportDefault    ImportKind = "default"
	ImportNamespace  ImportKind = "namespace"
	ImportSideEffect ImportKind = "side-effect"
)

// Import is a module dependency declared by a file.
type Import struct {
	Source     string     `json:"source"`
	File       string     `json:"file"`
	Range      Range      `json:"range"`
	Specifiers []string   `json:"specifiers,omitempty"`
	Kind       ImportKind `json:"kind"`
}

// ExportKind classifies an export.
type ExportKind string

const (
	ExportNamed    ExportKind = "named"
	ExportDefault  ExportKind = "default"
	ExportReExport ExportKind = "re-export"
)

// Export is a name a file makes visible to other modules.
type Export struct {
	Name   string     `json:"name"`
	File   string     `json:"file"`
	Range  Range      `json:"range"`
	Kind   ExportKind `json:"kind"`
	Source string     `json:"source,omitempty"`
}

// FileIndex is everything extracted from one file. It is replaced wholesale
// when the file is re-indexed.
type FileIndex struct {
	File         string      `json:"file"`
	Language     string      `json:"language"`
	Hash         string      `json:"hash"`
	LastModified time.Time   `json:"lastModified"`
	Symbols      []Symbol    `json:"symbols"`
	Imports      []Import    `json:"imports"`
	Exports      []Export    `json:"exports"`
	References   []Reference `json:"references"`
}

// IndexConfig is the part of the configuration that shapes index contents.
// It is stored with the index so that a changed configuration can be detected.
type IndexConfig struct {
	Include     []string `json:"include"`
	Exclude     []string `json:"exclude"`
	MaxFileSize int64    `json:"maxFileSize"`
	Concurrency int      `json:"concurrency"`
}

// Equal reports whether two configurations produce the same index.
// Concurrency does not affect contents and is ignored.
func (c IndexConfig) Equal(o IndexConfig) bool {
	return c.MaxFileSize == o.MaxFileSize &&
		equalStrings(c.Include, o.Include) &&
		equalStrings(c.Exclude, o.Exclude)
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// IndexStats summarizes a ProjectIndex.
type IndexStats struct {
	TotalFiles      int                `json:"totalFiles"`
	TotalSymbols    int                `json:"totalSymbols"`
	TotalReferences int                `json:"totalReferences"`
	TotalImports    int                `json:"totalImports"`
	TotalExports    int                `json:"totalExports"`
	ByLanguage      map[string]int     `json:"byLanguage"`
	ByKind          map[SymbolKind]int `json:"byKind"`
}

// ProjectIndex is the sole persisted artifact: every FileIndex keyed by
// project-relative slash path.
type ProjectIndex struct {
	Version     int                   `json:"version"`
	ProjectPath string                `json:"projectPath"`
	LastIndexed time.Time             `json:"lastIndexed"`
	Config      IndexConfig           `json:"config"`
	Stats       IndexStats            `json:"stats"`
	Files       map[string]*FileIndex `json:"files"`
}

// NewProjectIndex returns an empty index for a project.
func NewProjectIndex(projectPath string) *ProjectIndex {
	return &ProjectIndex{
		Version:     IndexVersion,
		ProjectPath: projectPath,
		Files:       make(map[string]*FileIndex),
	}
}

// ComputeStats recomputes the aggregate counters of idx.
func ComputeStats(idx *ProjectIndex) IndexStats {
	st := IndexStats{
		ByLanguage: make(map[string]int),
		ByKind:     make(map[SymbolKind]int),
	}
	for _, fi := range idx.Files {
		st.TotalFiles++
		st.TotalSymbols += len(fi.Symbols)
		st.TotalReferences += len(fi.References)
		st.TotalImports += len(fi.Imports)
		st.TotalExports += len(fi.Exports)
		st.ByLanguage[fi.Language]++
		for i := range fi.Symbols {
			st.ByKind[fi.Symbols[i].Kind]++
		}
	}
	return st
}

// ContentHash returns the content fingerprint used to decide whether a file
// must be re-parsed (xxh3-64, hex).
func ContentHash(content []byte) string {
	return fmt.Sprintf("%016x", xxh3.Hash(content))
}
