package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

var csharpRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"class_declaration":                 ports.KindClass,
		"struct_declaration":                ports.KindClass,
		"record_declaration":                ports.KindClass,
		"record_struct_declaration":         ports.KindClass,
		"interface_declaration":             ports.KindInterface,
		"enum_declaration":                  ports.KindEnum,
		"method_declaration":                ports.KindMethod,
		"constructor_declaration":           ports.KindConstructor,
		"property_declaration":              ports.KindProperty,
		"field_declaration":                 ports.KindProperty,
		"event_field_declaration":           ports.KindEvent,
		"event_declaration":                 ports.KindEvent,
		"delegate_declaration":              ports.KindType,
		"namespace_declaration":             ports.KindNamespace,
		"file_scoped_namespace_declaration": ports.KindNamespace,
		"local_function_statement":          ports.KindFunction,
	},
	containers: map[string]bool{
		"class_declaration":         true,
		"struct_declaration":        true,
		"record_declaration":        true,
		"record_struct_declaration": true,
		"interface_declaration":     true,
	},

	calls:          map[string]string{"invocation_expression": "function"},
	instantiations: map[string]string{"object_creation_expression": "type"},
	decorators:     map[string]bool{"attribute": true},

	name:       csharpName,
	classify:   csharpClassify,
	visibility: csharpVisibility,
	exported:   csharpExported,
	importsFn:  csharpImports,
	extraRefs:  csharpExtraRefs,
}

func csharpName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	switch n.Kind() {
	case "field_declaration", "event_field_declaration":
		vd := childByKind(n, "variable_declaration")
		if vd == nil {
			return nil
		}
		if d := childByKind(vd, "variable_declarator"); d != nil {
			return defaultName(d)
		}
	}
	return nil
}

func csharpClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "field_declaration":
		if hasModifier(n, c.source, "const") {
			s.Kind = ports.KindConstant
		}
	case "class_declaration", "struct_declaration", "record_declaration", "interface_declaration":
		s.Extends, s.Implements = "", nil
		for i, nm := range csharpBases(n) {
			name := c.text(nm)
			if i == 0 && n.Kind() == "class_declaration" && !isInterfaceName(name) {
				s.Extends = name
			} else {
				s.Implements = append(s.Implements, name)
			}
		}
	case "method_declaration":
		if t := n.ChildByFieldName("returns"); t != nil {
			s.ReturnType = c.text(t)
		} else if t := n.ChildByFieldName("type"); t != nil {
			s.ReturnType = c.text(t)
		}
	}
	return true
}

// isInterfaceName follows the IFoo naming convention.
func isInterfaceName(name string) bool {
	return len(name) > 1 && name[0] == 'I' && name[1] >= 'A' && name[1] <= 'Z'
}

// csharpBases lists the names in a type's base_list.
func csharpBases(n *tree_sitter.Node) []*tree_sitter.Node {
	bl := childByKind(n, "base_list")
	if bl == nil {
		return nil
	}
	var out []*tree_sitter.Node
	for i := uint(0); i < uint(bl.NamedChildCount()); i++ {
		if nm := leadingName(bl.NamedChild(i)); nm != nil {
			out = append(out, nm)
		}
	}
	return out
}

func csharpVisibility(n *tree_sitter.Node, c *passContext) string {
	return textualVisibility(modifierText(n, c.source))
}

func csharpExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	return s.Visibility == "public" || s.Kind == ports.KindNamespace
}

func csharpImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	if n.Kind() != "using_directive" {
		return nil
	}
	var target, alias string
	aliasNode := n.ChildByFieldName("name")
	if aliasNode != nil {
		alias = c.text(aliasNode)
	}
	for i := uint(0); i < uint(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if sameNode(ch, aliasNode) {
			continue
		}
		switch ch.Kind() {
		case "name_equals":
			if id := defaultName(ch); id != nil {
				alias = c.text(id)
			}
		case "qualified_name", "identifier", "generic_name", "alias_qualified_name":
			target = c.text(ch)
		}
	}
	if target == "" {
		return nil
	}
	if alias != "" {
		return []ports.Import{c.imp(target, n, ports.ImportNamed, alias)}
	}
	return []ports.Import{c.imp(target, n, ports.ImportNamespace, lastSegment(target, "."))}
}

// csharpExtraRefs classifies base_list entries: the first entry of a class is
// its base class unless it looks like an interface.
func csharpExtraRefs(n *tree_sitter.Node, c *passContext) []ports.Reference {
	switch n.Kind() {
	case "class_declaration", "struct_declaration", "record_declaration", "interface_declaration":
	default:
		return nil
	}
	var out []ports.Reference
	for i, nm := range csharpBases(n) {
		kind := ports.RefImplements
		if i == 0 && n.Kind() == "class_declaration" && !isInterfaceName(c.text(nm)) {
			kind = ports.RefExtends
		}
		out = append(out, c.ref(c.text(nm), nm, kind))
	}
	return out
}
