package treesitter

import (
	"path"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

var goAnchors = map[string]bool{
	"type_declaration":  true,
	"const_declaration": true,
	"var_declaration":   true,
}

var goRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"function_declaration": ports.KindFunction,
		"method_declaration":   ports.KindMethod,
		"type_spec":            ports.KindType,
		"type_alias":           ports.KindType,
		"const_spec":           ports.KindConstant,
		"var_spec":             ports.KindVariable,
		"field_declaration":    ports.KindProperty,
		"method_elem":          ports.KindMethod,
		"method_spec":          ports.KindMethod,
	},
	containers: map[string]bool{"type_spec": true},
	anchors:    goAnchors,

	calls:          map[string]string{"call_expression": "function"},
	instantiations: map[string]string{"composite_literal": "type"},
	typeIdents:     map[string]bool{"type_identifier": true},

	classify:  goClassify,
	exported:  goExported,
	importsFn: goImports,
}

func goClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "type_spec":
		if t := n.ChildByFieldName("type"); t != nil {
			switch t.Kind() {
			case "struct_type":
				s.Kind = ports.KindClass
			case "interface_type":
				s.Kind = ports.KindInterface
			}
		}
	case "method_declaration":
		s.Parent = goReceiverType(n, c)
	case "var_spec":
		if !atTopLevel(n, goAnchors, "source_file") {
			return false
		}
	case "field_declaration":
		// Embedded fields have a type but no name.
		if n.ChildByFieldName("name") == nil {
			return false
		}
	}
	return true
}

// goReceiverType returns the base type name of a method receiver, with
// pointer and type parameters stripped.
func goReceiverType(n *tree_sitter.Node, c *passContext) string {
	recv := n.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	var name string
	walk(recv, func(x *tree_sitter.Node) {
		if name == "" && x.Kind() == "type_identifier" {
			name = c.text(x)
		}
	})
	return name
}

// goExported: capitalized identifiers are exported; members inherit nothing
// from their container.
func goExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	return isUpperName(s.Name)
}

func goImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	if n.Kind() != "import_spec" {
		return nil
	}
	p := n.ChildByFieldName("path")
	if p == nil {
		return nil
	}
	source := unquote(c.text(p))
	alias := n.ChildByFieldName("name")
	if alias == nil {
		return []ports.Import{c.imp(source, n, ports.ImportNamespace, path.Base(source))}
	}
	switch alias.Kind() {
	case "blank_identifier":
		return []ports.Import{c.imp(source, n, ports.ImportSideEffect)}
	case "dot":
		return []ports.Import{c.imp(source, n, ports.ImportNamespace, ".")}
	}
	return []ports.Import{c.imp(source, n, ports.ImportNamespace, c.text(alias))}
}
