package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

// C and C++ share one rule set; C simply never produces the C++-only nodes.

var cAnchors = map[string]bool{"template_declaration": true}

// cScopes are the parents a file-scope declaration can sit under.
var cScopes = []string{
	"translation_unit", "declaration_list",
	"preproc_ifdef", "preproc_if", "preproc_else", "preproc_elif",
}

var cRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"function_definition":  ports.KindFunction,
		"declaration":          ports.KindFunction,
		"field_declaration":    ports.KindProperty,
		"struct_specifier":     ports.KindClass,
		"class_specifier":      ports.KindClass,
		"union_specifier":      ports.KindClass,
		"enum_specifier":       ports.KindEnum,
		"type_definition":      ports.KindType,
		"alias_declaration":    ports.KindType,
		"namespace_definition": ports.KindNamespace,
		"preproc_def":          ports.KindConstant,
		"preproc_function_def": ports.KindFunction,
	},
	containers: map[string]bool{
		"struct_specifier": true,
		"class_specifier":  true,
		"union_specifier":  true,
	},
	anchors: cAnchors,

	calls:          map[string]string{"call_expression": "function"},
	instantiations: map[string]string{"new_expression": "type"},
	heritage:       map[string]ports.ReferenceKind{"base_class_clause": ports.RefExtends},
	typeIdents:     map[string]bool{"type_identifier": true},

	name:       cName,
	classify:   cClassify,
	visibility: cVisibility,
	exported:   cExported,
	importsFn:  cImports,
}

// cDeclarator follows a declarator chain (pointer, reference, function,
// init) down to the node that names the declaration.
func cDeclarator(n *tree_sitter.Node) *tree_sitter.Node {
	d := n.ChildByFieldName("declarator")
	for depth := 0; d != nil && depth < 8; depth++ {
		switch d.Kind() {
		case "function_declarator", "pointer_declarator", "array_declarator",
			"parenthesized_declarator", "init_declarator", "attributed_declarator":
			next := d.ChildByFieldName("declarator")
			if next == nil && d.NamedChildCount() > 0 {
				next = d.NamedChild(0)
			}
			d = next
		case "reference_declarator":
			if d.NamedChildCount() == 0 {
				return nil
			}
			d = d.NamedChild(d.NamedChildCount() - 1)
		default:
			return d
		}
	}
	return nil
}

// hasFunctionDeclarator reports whether n declares a function.
func hasFunctionDeclarator(n *tree_sitter.Node) bool {
	d := n.ChildByFieldName("declarator")
	for depth := 0; d != nil && depth < 8; depth++ {
		if d.Kind() == "function_declarator" {
			return true
		}
		if d.Kind() == "init_declarator" {
			return false
		}
		next := d.ChildByFieldName("declarator")
		if next == nil && d.NamedChildCount() > 0 {
			next = d.NamedChild(d.NamedChildCount() - 1)
		}
		d = next
	}
	return false
}

// splitQualified separates Outer::Inner::name into ("Outer::Inner", name node).
func splitQualified(d *tree_sitter.Node, source []byte) (string, *tree_sitter.Node) {
	var scope []string
	for depth := 0; d != nil && d.Kind() == "qualified_identifier" && depth < 8; depth++ {
		if s := d.ChildByFieldName("scope"); s != nil {
			scope = append(scope, nodeText(s, source))
		}
		d = d.ChildByFieldName("name")
	}
	return strings.Join(scope, "::"), d
}

func cName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	switch n.Kind() {
	case "function_definition", "declaration", "field_declaration", "type_definition":
		d := cDeclarator(n)
		if d != nil && d.Kind() == "qualified_identifier" {
			_, d = splitQualified(d, c.source)
		}
		return d
	}
	return nil
}

func cClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "struct_specifier", "class_specifier", "union_specifier", "enum_specifier":
		// Forward declarations and elaborated type uses have no body.
		if n.ChildByFieldName("body") == nil {
			return false
		}
	case "declaration":
		// Class bodies hold constructor and member declarations; elsewhere
		// only file-scope declarations count.
		member := s.Parent != ""
		if !member && !atTopLevel(n, cAnchors, cScopes...) {
			return false
		}
		if !hasFunctionDeclarator(n) {
			tq := childByKind(n, "type_qualifier")
			switch {
			case member:
				s.Kind = ports.KindProperty
			case tq != nil && c.text(tq) == "const":
				s.Kind = ports.KindConstant
			default:
				s.Kind = ports.KindVariable
			}
		}
	case "field_declaration":
		if hasFunctionDeclarator(n) {
			s.Kind = ports.KindMethod
		}
	}

	if n.Kind() == "function_definition" || n.Kind() == "declaration" || n.Kind() == "field_declaration" {
		if d := cDeclarator(n); d != nil && d.Kind() == "qualified_identifier" {
			scope, _ := splitQualified(d, c.source)
			s.Parent = lastSegment(scope, "::")
			if s.Kind == ports.KindFunction {
				s.Kind = ports.KindMethod
			}
		}
		if s.Kind.Callable() {
			if t := n.ChildByFieldName("type"); t != nil {
				s.ReturnType = c.text(t)
			}
			s.Parameters = parameterList(n, c.source)
		}
	}
	if s.Kind == ports.KindMethod && s.Parent != "" && s.Name == s.Parent {
		s.Kind = ports.KindConstructor
	}
	if n.Kind() == "preproc_function_def" {
		if p := n.ChildByFieldName("parameters"); p != nil {
			s.Parameters = strings.Split(strings.Trim(c.text(p), "()"), ",")
			for i := range s.Parameters {
				s.Parameters[i] = strings.TrimSpace(s.Parameters[i])
			}
		}
	}
	return true
}

// cVisibility reads the nearest access specifier above a class member,
// falling back to the class/struct default.
func cVisibility(n *tree_sitter.Node, c *passContext) string {
	a := n
	for p := a.Parent(); p != nil && cAnchors[p.Kind()]; p = p.Parent() {
		a = p
	}
	list := a.Parent()
	if list == nil || list.Kind() != "field_declaration_list" {
		return ""
	}
	for p := a.PrevSibling(); p != nil; p = p.PrevSibling() {
		if p.Kind() == "access_specifier" {
			return strings.TrimSpace(c.text(p))
		}
	}
	if owner := list.Parent(); owner != nil && owner.Kind() == "class_specifier" {
		return "private"
	}
	return "public"
}

func cExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	if s.Visibility != "" {
		return s.Visibility == "public"
	}
	if s.Static {
		return false
	}
	switch n.Kind() {
	case "preproc_def", "preproc_function_def", "namespace_definition":
		return true
	}
	return atTopLevel(n, cAnchors, cScopes...)
}

func cImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	switch n.Kind() {
	case "preproc_include":
		p := n.ChildByFieldName("path")
		if p == nil {
			return nil
		}
		return []ports.Import{c.imp(unquote(c.text(p)), n, ports.ImportSideEffect)}
	case "using_declaration":
		text := strings.TrimSuffix(strings.TrimSpace(c.text(n)), ";")
		if rest, ok := strings.CutPrefix(text, "using namespace"); ok {
			ns := strings.TrimSpace(rest)
			return []ports.Import{c.imp(ns, n, ports.ImportNamespace, "*")}
		}
		target := strings.TrimSpace(strings.TrimPrefix(text, "using"))
		return []ports.Import{c.imp(target, n, ports.ImportNamed, lastSegment(target, "::"))}
	}
	return nil
}
