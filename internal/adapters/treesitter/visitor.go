package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

// visitor extracts one kind of fact from a single node. The four methods are
// independent: each pass calls exactly one of them for every node.
type visitor interface {
	symbol(n *tree_sitter.Node, c *passContext) (ports.Symbol, bool)
	imports(n *tree_sitter.Node, c *passContext) []ports.Import
	exports(n *tree_sitter.Node, c *passContext) []ports.Export
	references(n *tree_sitter.Node, c *passContext) []ports.Reference
}

// passContext carries the read-only inputs of one extraction.
type passContext struct {
	file      string
	lang      string // language tag recorded on symbols
	source    []byte
	composite bool // script region of a composite document
}

func (c *passContext) text(n *tree_sitter.Node) string {
	return nodeText(n, c.source)
}

func (c *passContext) ref(name string, at *tree_sitter.Node, kind ports.ReferenceKind) ports.Reference {
	return ports.Reference{
		Symbol:  name,
		File:    c.file,
		Range:   rangeOf(at),
		Context: lineContext(c.source, int(at.StartByte())),
		Kind:    kind,
	}
}

func (c *passContext) imp(source string, at *tree_sitter.Node, kind ports.ImportKind, specifiers ...string) ports.Import {
	return ports.Import{
		Source:     source,
		File:       c.file,
		Range:      rangeOf(at),
		Specifiers: specifiers,
		Kind:       kind,
	}
}

// ruleSet is a per-language table of node kinds plus optional hooks. One
// generic implementation of visitor interprets it, so adding a language is
// mostly data.
type ruleSet struct {
	// decls maps declaration node kinds to the symbol kind they produce.
	decls map[string]ports.SymbolKind
	// containers are class-like node kinds; callables nested directly in
	// them become methods and record the container name as Parent.
	containers map[string]bool
	// anchors are wrapper kinds around a declaration (export statements,
	// decorated definitions, declaration lists). Comments and export markers
	// are looked up on the outermost anchor.
	anchors map[string]bool
	// exportWrappers are anchor kinds that make their content exported.
	exportWrappers map[string]bool
	// exportKeywords mark a declaration exported when its text starts with one.
	exportKeywords []string
	// constructors are method names classified as constructors.
	constructors map[string]bool

	// calls maps call-site kinds to the field holding the callee ("" means
	// first named child).
	calls map[string]string
	// instantiations maps object-creation kinds to the field holding the type.
	instantiations map[string]string
	// decorators are decorator/annotation/attribute node kinds.
	decorators map[string]bool
	// heritage maps inheritance clause kinds to extends/implements.
	heritage map[string]ports.ReferenceKind
	// typeIdents are identifier kinds that count as type references when
	// they do not name a declaration.
	typeIdents map[string]bool

	name       func(n *tree_sitter.Node, c *passContext) *tree_sitter.Node
	classify   func(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool
	visibility func(n *tree_sitter.Node, c *passContext) string
	exported   func(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool
	docstring  func(n *tree_sitter.Node, c *passContext) string
	importsFn  func(n *tree_sitter.Node, c *passContext) []ports.Import
	exportsFn  func(n *tree_sitter.Node, c *passContext) []ports.Export
	extraRefs  func(n *tree_sitter.Node, c *passContext) []ports.Reference
}

func (r *ruleSet) nameOf(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	if r.name != nil {
		if nm := r.name(n, c); nm != nil {
			return nm
		}
	}
	return defaultName(n)
}

// anchor climbs through wrapper nodes around a declaration.
func (r *ruleSet) anchor(n *tree_sitter.Node) *tree_sitter.Node {
	a := n
	for p := a.Parent(); p != nil && r.anchors[p.Kind()]; p = p.Parent() {
		a = p
	}
	return a
}

// enclosing returns the nearest container around n and its name. Walking
// stops at an intervening callable, so locals of a method are not members.
func (r *ruleSet) enclosing(n *tree_sitter.Node, c *passContext) (*tree_sitter.Node, string) {
	for p := n.Parent(); p != nil; p = p.Parent() {
		k := p.Kind()
		if r.containers[k] {
			if nm := r.nameOf(p, c); nm != nil {
				return p, c.text(nm)
			}
			if gp := p.Parent(); gp != nil && gp.Kind() == "variable_declarator" {
				if nm := gp.ChildByFieldName("name"); nm != nil {
					return p, c.text(nm)
				}
			}
			return p, ""
		}
		if sk, ok := r.decls[k]; ok && sk.Callable() {
			return nil, ""
		}
	}
	return nil, ""
}

func (r *ruleSet) symbol(n *tree_sitter.Node, c *passContext) (ports.Symbol, bool) {
	kind, ok := r.decls[n.Kind()]
	if !ok {
		return ports.Symbol{}, false
	}
	nm := r.nameOf(n, c)
	if nm == nil {
		return ports.Symbol{}, false
	}
	name := c.text(nm)
	if name == "" {
		return ports.Symbol{}, false
	}

	s := ports.Symbol{
		Name:           name,
		Kind:           kind,
		Range:          rangeOf(n),
		SelectionRange: rangeOf(nm),
		File:           c.file,
		Language:       c.lang,
		Signature:      signatureOf(c.text(n)),
		Async:          hasModifier(n, c.source, "async"),
		Static:         hasModifier(n, c.source, "static"),
	}

	if _, parent := r.enclosing(n, c); parent != "" {
		s.Parent = parent
		if s.Kind == ports.KindFunction {
			s.Kind = ports.KindMethod
		}
	}
	if s.Kind == ports.KindMethod && r.constructors[name] {
		s.Kind = ports.KindConstructor
	}
	if s.Kind.Callable() {
		s.Parameters = parameterList(n, c.source)
		s.ReturnType = returnTypeOf(n, c.source)
	}
	s.Extends, s.Implements = r.heritageOf(n, c)

	if r.visibility != nil {
		s.Visibility = r.visibility(n, c)
	}
	if r.classify != nil && !r.classify(n, c, &s) {
		return ports.Symbol{}, false
	}
	if !s.Range.Contains(s.SelectionRange) {
		s.SelectionRange = ports.Range{Start: s.Range.Start, End: s.Range.Start}
	}

	s.Exported = r.isExported(n, c, &s)
	if r.docstring != nil {
		s.Documentation = r.docstring(n, c)
	}
	if s.Documentation == "" {
		s.Documentation = precedingComments(r.anchor(n), c.source)
	}
	return s, true
}

// isExported applies the structural rule (wrapped by an export node), then
// the textual rule (export keyword prefix), then the language convention.
func (r *ruleSet) isExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	for p := n.Parent(); p != nil && r.anchors[p.Kind()]; p = p.Parent() {
		if r.exportWrappers[p.Kind()] {
			return true
		}
	}
	text := c.text(n)
	for _, kw := range r.exportKeywords {
		if strings.HasPrefix(text, kw) {
			return true
		}
	}
	if r.exported != nil {
		return r.exported(n, c, s)
	}
	return false
}

// heritageOf collects the names listed in n's inheritance clauses.
func (r *ruleSet) heritageOf(n *tree_sitter.Node, c *passContext) (string, []string) {
	if len(r.heritage) == 0 {
		return "", nil
	}
	var extends string
	var implements []string
	var visit func(x *tree_sitter.Node, depth int)
	visit = func(x *tree_sitter.Node, depth int) {
		for i := uint(0); i < uint(x.NamedChildCount()); i++ {
			ch := x.NamedChild(i)
			if kind, ok := r.heritage[ch.Kind()]; ok {
				for _, nm := range heritageNames(ch) {
					if kind == ports.RefExtends && extends == "" {
						extends = c.text(nm)
					} else {
						implements = append(implements, c.text(nm))
					}
				}
			}
			if depth < 2 && !isBody(ch.Kind()) {
				visit(ch, depth+1)
			}
		}
	}
	visit(n, 0)
	return extends, implements
}

func isBody(kind string) bool {
	return strings.Contains(kind, "body") || strings.Contains(kind, "block") ||
		strings.HasSuffix(kind, "declaration_list") || strings.HasSuffix(kind, "_list") && kind != "base_list"
}

// heritageNames returns the name nodes listed directly in a heritage clause.
func heritageNames(clause *tree_sitter.Node) []*tree_sitter.Node {
	var out []*tree_sitter.Node
	for i := uint(0); i < uint(clause.NamedChildCount()); i++ {
		ch := clause.NamedChild(i)
		switch ch.Kind() {
		case "type_list", "interface_type_list", "delegation_specifiers":
			out = append(out, heritageNames(ch)...)
			continue
		case "type_arguments", "arguments", "argument_list", "extends_clause", "implements_clause":
			continue
		}
		if strings.Contains(ch.Kind(), "comment") {
			continue
		}
		if nm := leadingName(ch); nm != nil {
			out = append(out, nm)
		}
	}
	return out
}

func (r *ruleSet) imports(n *tree_sitter.Node, c *passContext) []ports.Import {
	if r.importsFn == nil {
		return nil
	}
	return r.importsFn(n, c)
}

// exports defaults to one named export per exported top-level declaration.
func (r *ruleSet) exports(n *tree_sitter.Node, c *passContext) []ports.Export {
	if r.exportsFn != nil {
		return r.exportsFn(n, c)
	}
	if _, ok := r.decls[n.Kind()]; !ok {
		return nil
	}
	s, ok := r.symbol(n, c)
	if !ok || !s.Exported || s.Parent != "" {
		return nil
	}
	return []ports.Export{{Name: s.Name, File: c.file, Range: s.Range, Kind: ports.ExportNamed}}
}

func (r *ruleSet) references(n *tree_sitter.Node, c *passContext) []ports.Reference {
	k := n.Kind()
	var out []ports.Reference

	if field, ok := r.calls[k]; ok {
		if callee := fieldOrFirst(n, field); callee != nil {
			if nm := calleeName(callee); nm != nil {
				out = append(out, c.ref(c.text(nm), nm, ports.RefCall))
			}
		}
	}
	if field, ok := r.instantiations[k]; ok {
		if t := fieldOrFirst(n, field); t != nil {
			if nm := calleeName(t); nm != nil {
				out = append(out, c.ref(c.text(nm), nm, ports.RefInstantiate))
			}
		}
	}
	if r.decorators[k] {
		if nm := leadingName(n); nm != nil {
			out = append(out, c.ref(c.text(nm), nm, ports.RefDecorator))
		}
	}
	if kind, ok := r.heritage[k]; ok {
		for _, nm := range heritageNames(n) {
			out = append(out, c.ref(c.text(nm), nm, kind))
		}
	}
	if r.typeIdents[k] && r.isTypePosition(n, c) {
		out = append(out, c.ref(c.text(n), n, ports.RefType))
	}
	if r.extraRefs != nil {
		out = append(out, r.extraRefs(n, c)...)
	}
	return out
}

func fieldOrFirst(n *tree_sitter.Node, field string) *tree_sitter.Node {
	if field == "" {
		if n.NamedChildCount() == 0 {
			return nil
		}
		return n.NamedChild(0)
	}
	return n.ChildByFieldName(field)
}

// isTypePosition rejects type identifiers that name a declaration or that are
// already reported as heritage or instantiation references.
func (r *ruleSet) isTypePosition(n *tree_sitter.Node, c *passContext) bool {
	p := n.Parent()
	if p == nil {
		return false
	}
	if p.Kind() != "generic_type" && sameNode(p.ChildByFieldName("name"), n) {
		return false
	}
	if sameNode(p.ChildByFieldName("trait"), n) {
		return false
	}
	if _, ok := r.decls[p.Kind()]; ok && sameNode(r.nameOf(p, c), n) {
		return false
	}
	for a, depth := p, 0; a != nil && depth < 4; a, depth = a.Parent(), depth+1 {
		if _, ok := r.heritage[a.Kind()]; ok {
			return false
		}
		if _, ok := r.instantiations[a.Kind()]; ok && depth < 2 {
			return false
		}
	}
	return true
}

// atTopLevel reports whether a declaration sits directly in the file scope,
// looking through wrapper anchors.
func atTopLevel(n *tree_sitter.Node, anchors map[string]bool, rootKinds ...string) bool {
	a := n
	for p := a.Parent(); p != nil && anchors[p.Kind()]; p = p.Parent() {
		a = p
	}
	p := a.Parent()
	if p == nil {
		return true
	}
	for _, k := range rootKinds {
		if p.Kind() == k {
			return true
		}
	}
	return false
}

// linkChildren fills Symbol.Children from Parent links. A parent is the
// symbol of that name whose range contains the child, falling back to any
// class-like symbol of that name in the file (e.g. Go receiver methods).
func linkChildren(syms []ports.Symbol) {
	byName := make(map[string][]int)
	for i := range syms {
		byName[syms[i].Name] = append(byName[syms[i].Name], i)
	}
	for i := range syms {
		if syms[i].Parent == "" {
			continue
		}
		cands := byName[syms[i].Parent]
		target := -1
		for _, j := range cands {
			if j != i && syms[j].Range.Contains(syms[i].Range) {
				target = j
			}
		}
		if target < 0 {
			for _, j := range cands {
				if j != i && !syms[j].Kind.Callable() {
					target = j
					break
				}
			}
		}
		if target >= 0 {
			syms[target].Children = append(syms[target].Children, syms[i].Name)
		}
	}
}
