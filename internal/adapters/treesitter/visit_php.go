package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

var phpRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"function_definition":   ports.KindFunction,
		"class_declaration":     ports.KindClass,
		"interface_declaration": ports.KindInterface,
		"trait_declaration":     ports.KindInterface,
		"enum_declaration":      ports.KindEnum,
		"method_declaration":    ports.KindMethod,
		"property_declaration":  ports.KindProperty,
		"const_declaration":     ports.KindConstant,
		"namespace_definition":  ports.KindNamespace,
	},
	containers: map[string]bool{
		"class_declaration":     true,
		"interface_declaration": true,
		"trait_declaration":     true,
		"enum_declaration":      true,
	},
	constructors: map[string]bool{"__construct": true},

	calls: map[string]string{
		"function_call_expression":        "function",
		"member_call_expression":          "name",
		"nullsafe_member_call_expression": "name",
		"scoped_call_expression":          "name",
	},
	instantiations: map[string]string{"object_creation_expression": ""},
	decorators:     map[string]bool{"attribute": true},
	heritage: map[string]ports.ReferenceKind{
		"base_clause":            ports.RefExtends,
		"class_interface_clause": ports.RefImplements,
	},

	name:       phpName,
	classify:   phpClassify,
	visibility: phpVisibility,
	exported:   phpExported,
	importsFn:  phpImports,
}

func phpName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	switch n.Kind() {
	case "property_declaration":
		if el := childByKind(n, "property_element"); el != nil {
			if v := childByKind(el, "variable_name"); v != nil {
				return childByKind(v, "name")
			}
		}
	case "const_declaration":
		if el := childByKind(n, "const_element"); el != nil {
			return childByKind(el, "name")
		}
	}
	return nil
}

func phpClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	if n.Kind() == "method_declaration" && s.Visibility == "" {
		s.Visibility = "public"
	}
	return true
}

func phpVisibility(n *tree_sitter.Node, c *passContext) string {
	if vm := childByKind(n, "visibility_modifier"); vm != nil {
		return c.text(vm)
	}
	return ""
}

func phpExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	return s.Visibility == "" || s.Visibility == "public"
}

func phpImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	switch n.Kind() {
	case "namespace_use_declaration":
		var out []ports.Import
		for i := uint(0); i < uint(n.NamedChildCount()); i++ {
			clause := n.NamedChild(i)
			if clause.Kind() != "namespace_use_clause" {
				continue
			}
			var target, alias string
			for j := uint(0); j < uint(clause.NamedChildCount()); j++ {
				ch := clause.NamedChild(j)
				switch ch.Kind() {
				case "qualified_name", "name":
					if target == "" {
						target = c.text(ch)
					} else {
						alias = c.text(ch)
					}
				case "namespace_aliasing_clause":
					if nm := childByKind(ch, "name"); nm != nil {
						alias = c.text(nm)
					}
				}
			}
			if target == "" {
				continue
			}
			if alias == "" {
				alias = lastSegment(target, `\`)
			}
			out = append(out, c.imp(target, clause, ports.ImportNamed, alias))
		}
		return out
	case "include_expression", "include_once_expression", "require_expression", "require_once_expression":
		if src := stringContent(n, c.source); src != "" {
			return []ports.Import{c.imp(src, n, ports.ImportSideEffect)}
		}
	}
	return nil
}
