package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

var rustRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"function_item":           ports.KindFunction,
		"function_signature_item": ports.KindMethod,
		"struct_item":             ports.KindClass,
		"union_item":              ports.KindClass,
		"enum_item":               ports.KindEnum,
		"trait_item":              ports.KindInterface,
		"impl_item":               ports.KindClass,
		"type_item":               ports.KindType,
		"const_item":              ports.KindConstant,
		"static_item":             ports.KindConstant,
		"mod_item":                ports.KindModule,
		"macro_definition":        ports.KindFunction,
		"field_declaration":       ports.KindProperty,
	},
	containers: map[string]bool{
		"impl_item":   true,
		"trait_item":  true,
		"struct_item": true,
	},
	exportKeywords: []string{"pub "},

	calls: map[string]string{
		"call_expression":  "function",
		"macro_invocation": "macro",
	},
	instantiations: map[string]string{"struct_expression": "name"},
	decorators:     map[string]bool{"attribute_item": true},
	typeIdents:     map[string]bool{"type_identifier": true},

	name:       rustName,
	classify:   rustClassify,
	visibility: rustVisibility,
	importsFn:  rustImports,
	extraRefs:  rustExtraRefs,
}

// rustName names an impl block after the implemented type.
func rustName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	if n.Kind() == "impl_item" {
		if t := n.ChildByFieldName("type"); t != nil {
			return calleeName(t)
		}
	}
	return nil
}

func rustClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "function_item":
		if s.Kind == ports.KindMethod {
			// Associated functions without a self receiver are static.
			params := n.ChildByFieldName("parameters")
			s.Static = params == nil || childByKind(params, "self_parameter") == nil
		}
	case "impl_item":
		if tr := n.ChildByFieldName("trait"); tr != nil {
			if nm := calleeName(tr); nm != nil {
				s.Implements = []string{c.text(nm)}
			}
		}
	case "field_declaration":
		if n.ChildByFieldName("name") == nil {
			return false
		}
	}
	return true
}

// rustVisibility maps a visibility_modifier to public/crate/private.
func rustVisibility(n *tree_sitter.Node, c *passContext) string {
	vm := childByKind(n, "visibility_modifier")
	if vm == nil {
		return "private"
	}
	if t := c.text(vm); t == "pub" {
		return "public"
	}
	return "internal"
}

func rustImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	switch n.Kind() {
	case "use_declaration":
		arg := n.ChildByFieldName("argument")
		if arg == nil {
			return nil
		}
		return []ports.Import{rustUse(arg, n, c)}
	case "extern_crate_declaration":
		if nm := n.ChildByFieldName("name"); nm != nil {
			return []ports.Import{c.imp(c.text(nm), n, ports.ImportNamespace, c.text(nm))}
		}
	}
	return nil
}

func rustUse(arg, stmt *tree_sitter.Node, c *passContext) ports.Import {
	switch arg.Kind() {
	case "use_as_clause":
		p := arg.ChildByFieldName("path")
		alias := arg.ChildByFieldName("alias")
		if p != nil && alias != nil {
			return c.imp(c.text(p), stmt, ports.ImportNamed, c.text(alias))
		}
	case "use_wildcard":
		return c.imp(strings.TrimSuffix(c.text(arg), "::*"), stmt, ports.ImportNamespace, "*")
	case "scoped_use_list":
		source := ""
		if p := arg.ChildByFieldName("path"); p != nil {
			source = c.text(p)
		}
		var specs []string
		if list := arg.ChildByFieldName("list"); list != nil {
			for i := uint(0); i < uint(list.NamedChildCount()); i++ {
				specs = append(specs, c.text(list.NamedChild(i)))
			}
		}
		return c.imp(source, stmt, ports.ImportNamed, specs...)
	case "use_list":
		var specs []string
		for i := uint(0); i < uint(arg.NamedChildCount()); i++ {
			specs = append(specs, c.text(arg.NamedChild(i)))
		}
		return c.imp("", stmt, ports.ImportNamed, specs...)
	}
	text := c.text(arg)
	last := text
	if i := strings.LastIndex(text, "::"); i >= 0 {
		last = text[i+2:]
	}
	return c.imp(text, stmt, ports.ImportNamed, last)
}

// rustExtraRefs reports the trait of an impl block.
func rustExtraRefs(n *tree_sitter.Node, c *passContext) []ports.Reference {
	if n.Kind() != "impl_item" {
		return nil
	}
	tr := n.ChildByFieldName("trait")
	if tr == nil {
		return nil
	}
	if nm := calleeName(tr); nm != nil {
		return []ports.Reference{c.ref(c.text(nm), nm, ports.RefImplements)}
	}
	return nil
}
