package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

var pythonAnchors = map[string]bool{
	"decorated_definition": true,
	"expression_statement": true,
}

var pythonRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"function_definition": ports.KindFunction,
		"class_definition":    ports.KindClass,
		"assignment":          ports.KindVariable,
	},
	containers:   map[string]bool{"class_definition": true},
	anchors:      pythonAnchors,
	constructors: map[string]bool{"__init__": true},

	decorators: map[string]bool{"decorator": true},

	name:       pythonName,
	classify:   pythonClassify,
	visibility: pythonVisibility,
	exported:   pythonExported,
	docstring:  pythonDocstring,
	importsFn:  pythonImports,
	extraRefs:  pythonExtraRefs,
}

func pythonName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	if n.Kind() == "assignment" {
		left := n.ChildByFieldName("left")
		if left == nil || left.Kind() != "identifier" {
			return nil
		}
		return left
	}
	return nil
}

func pythonClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "assignment":
		// Only module-level bindings; locals and attributes are not declarations.
		if !atTopLevel(n, pythonAnchors, "module") {
			return false
		}
		if isConstantName(s.Name) {
			s.Kind = ports.KindConstant
		}
		if st := n.Parent(); st != nil {
			s.Range = rangeOf(st)
		}
	case "class_definition":
		s.Extends, s.Implements = "", nil
		for i, nm := range pythonSuperclasses(n) {
			if i == 0 {
				s.Extends = c.text(nm)
			} else {
				s.Implements = append(s.Implements, c.text(nm))
			}
		}
	case "function_definition":
		if dd := n.Parent(); dd != nil && dd.Kind() == "decorated_definition" {
			for i := uint(0); i < uint(dd.NamedChildCount()); i++ {
				d := dd.NamedChild(i)
				if d.Kind() != "decorator" {
					continue
				}
				switch strings.TrimSpace(strings.TrimPrefix(c.text(d), "@")) {
				case "staticmethod", "classmethod":
					s.Static = true
				case "property":
					if s.Kind == ports.KindMethod {
						s.Kind = ports.KindProperty
					}
				}
			}
		}
	}
	return true
}

// pythonSuperclasses returns the base class names of a class definition.
func pythonSuperclasses(n *tree_sitter.Node) []*tree_sitter.Node {
	args := n.ChildByFieldName("superclasses")
	if args == nil {
		return nil
	}
	var out []*tree_sitter.Node
	for i := uint(0); i < uint(args.NamedChildCount()); i++ {
		a := args.NamedChild(i)
		if a.Kind() == "keyword_argument" {
			continue // metaclass=...
		}
		if nm := calleeName(a); nm != nil {
			out = append(out, nm)
		}
	}
	return out
}

// pythonVisibility follows the underscore naming convention.
func pythonVisibility(n *tree_sitter.Node, c *passContext) string {
	nm := pythonNameText(n, c)
	switch {
	case strings.HasPrefix(nm, "__") && strings.HasSuffix(nm, "__"):
		return "public"
	case strings.HasPrefix(nm, "__"):
		return "private"
	case strings.HasPrefix(nm, "_"):
		return "protected"
	}
	return "public"
}

func pythonNameText(n *tree_sitter.Node, c *passContext) string {
	if nm := pythonName(n, c); nm != nil {
		return c.text(nm)
	}
	if nm := defaultName(n); nm != nil {
		return c.text(nm)
	}
	return ""
}

// pythonExported: top-level names without a leading underscore.
func pythonExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	return s.Parent == "" && !strings.HasPrefix(s.Name, "_") && atTopLevel(n, pythonAnchors, "module")
}

// pythonDocstring returns the string literal opening a def or class body.
func pythonDocstring(n *tree_sitter.Node, c *passContext) string {
	body := n.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Kind() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Kind() != "string" {
		return ""
	}
	text := c.text(str)
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if strings.HasPrefix(text, q) && strings.HasSuffix(text, q) && len(text) >= 2*len(q) {
			text = text[len(q) : len(text)-len(q)]
			break
		}
	}
	return strings.TrimSpace(text)
}

func pythonImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	switch n.Kind() {
	case "import_statement":
		var out []ports.Import
		for i := uint(0); i < uint(n.NamedChildCount()); i++ {
			ch := n.NamedChild(i)
			switch ch.Kind() {
			case "dotted_name":
				out = append(out, c.imp(c.text(ch), n, ports.ImportNamespace, c.text(ch)))
			case "aliased_import":
				name := ch.ChildByFieldName("name")
				alias := ch.ChildByFieldName("alias")
				if name == nil {
					continue
				}
				spec := c.text(name)
				if alias != nil {
					spec = c.text(alias)
				}
				out = append(out, c.imp(c.text(name), n, ports.ImportNamespace, spec))
			}
		}
		return out

	case "import_from_statement":
		mod := n.ChildByFieldName("module_name")
		if mod == nil {
			return nil
		}
		var specs []string
		kind := ports.ImportNamed
		for i := uint(0); i < uint(n.NamedChildCount()); i++ {
			ch := n.NamedChild(i)
			if sameNode(ch, mod) {
				continue
			}
			switch ch.Kind() {
			case "dotted_name":
				specs = append(specs, c.text(ch))
			case "aliased_import":
				if name := ch.ChildByFieldName("name"); name != nil {
					specs = append(specs, c.text(name))
				}
			case "wildcard_import":
				kind = ports.ImportNamespace
				specs = append(specs, "*")
			}
		}
		return []ports.Import{c.imp(c.text(mod), n, kind, specs...)}
	}
	return nil
}

// pythonExtraRefs reports calls (a call to a capitalized name counts as an
// instantiation), base classes and annotation types.
func pythonExtraRefs(n *tree_sitter.Node, c *passContext) []ports.Reference {
	switch n.Kind() {
	case "call":
		fn := n.ChildByFieldName("function")
		if fn == nil {
			return nil
		}
		nm := calleeName(fn)
		if nm == nil {
			return nil
		}
		name := c.text(nm)
		if isUpperName(name) && !isConstantName(name) {
			return []ports.Reference{c.ref(name, nm, ports.RefInstantiate)}
		}
		return []ports.Reference{c.ref(name, nm, ports.RefCall)}
	case "class_definition":
		var out []ports.Reference
		for _, nm := range pythonSuperclasses(n) {
			out = append(out, c.ref(c.text(nm), nm, ports.RefExtends))
		}
		return out
	case "type":
		var out []ports.Reference
		walk(n, func(x *tree_sitter.Node) {
			if x.Kind() == "identifier" {
				out = append(out, c.ref(c.text(x), x, ports.RefType))
			}
		})
		return out
	}
	return nil
}
