package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

// JVM family: java, kotlin, scala. The grammars differ in node names but
// share the modifier-based visibility model.

var javaRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"class_declaration":           ports.KindClass,
		"record_declaration":          ports.KindClass,
		"interface_declaration":       ports.KindInterface,
		"annotation_type_declaration": ports.KindInterface,
		"enum_declaration":            ports.KindEnum,
		"method_declaration":          ports.KindMethod,
		"constructor_declaration":     ports.KindConstructor,
		"field_declaration":           ports.KindProperty,
		"constant_declaration":        ports.KindConstant,
		"enum_constant":               ports.KindConstant,
		"package_declaration":         ports.KindNamespace,
	},
	containers: map[string]bool{
		"class_declaration":     true,
		"record_declaration":    true,
		"interface_declaration": true,
		"enum_declaration":      true,
	},

	calls:          map[string]string{"method_invocation": "name"},
	instantiations: map[string]string{"object_creation_expression": "type"},
	decorators:     map[string]bool{"annotation": true, "marker_annotation": true},
	heritage: map[string]ports.ReferenceKind{
		"superclass":         ports.RefExtends,
		"super_interfaces":   ports.RefImplements,
		"extends_interfaces": ports.RefExtends,
	},
	typeIdents: map[string]bool{"type_identifier": true},

	name:       javaName,
	classify:   javaClassify,
	visibility: jvmVisibility,
	exported:   jvmExported,
	importsFn:  javaImports,
}

func javaName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	switch n.Kind() {
	case "field_declaration", "constant_declaration":
		if d := n.ChildByFieldName("declarator"); d != nil {
			return d.ChildByFieldName("name")
		}
	case "package_declaration":
		for i := uint(0); i < uint(n.NamedChildCount()); i++ {
			ch := n.NamedChild(i)
			if ch.Kind() == "scoped_identifier" || ch.Kind() == "identifier" {
				return ch
			}
		}
	}
	return nil
}

func javaClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	if n.Kind() == "field_declaration" {
		mods := modifierText(n, c.source)
		if strings.Contains(mods, "static") && strings.Contains(mods, "final") {
			s.Kind = ports.KindConstant
		}
	}
	if n.Kind() == "method_declaration" {
		if t := n.ChildByFieldName("type"); t != nil {
			s.ReturnType = c.text(t)
		}
	}
	return true
}

// jvmVisibility reads private/protected/public/internal from the modifier list.
func jvmVisibility(n *tree_sitter.Node, c *passContext) string {
	return textualVisibility(modifierText(n, c.source))
}

// jvmExported: Java members are exported when public; Kotlin and Scala
// default to public unless marked otherwise.
func jvmExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch c.lang {
	case "java":
		return s.Visibility == "public" || s.Kind == ports.KindNamespace
	default:
		return s.Visibility == "" || s.Visibility == "public"
	}
}

func javaImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	if n.Kind() != "import_declaration" {
		return nil
	}
	var path string
	for i := uint(0); i < uint(n.NamedChildCount()); i++ {
		ch := n.NamedChild(i)
		if ch.Kind() == "scoped_identifier" || ch.Kind() == "identifier" {
			path = c.text(ch)
		}
	}
	if path == "" {
		return nil
	}
	if hasChildKind(n, "asterisk") {
		return []ports.Import{c.imp(path, n, ports.ImportNamespace, "*")}
	}
	return []ports.Import{c.imp(path, n, ports.ImportNamed, lastSegment(path, "."))}
}

func lastSegment(s, sep string) string {
	if i := strings.LastIndex(s, sep); i >= 0 {
		return s[i+len(sep):]
	}
	return s
}

var kotlinRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"class_declaration":     ports.KindClass,
		"object_declaration":    ports.KindClass,
		"function_declaration":  ports.KindFunction,
		"property_declaration":  ports.KindProperty,
		"type_alias":            ports.KindType,
		"secondary_constructor": ports.KindConstructor,
	},
	containers: map[string]bool{
		"class_declaration":  true,
		"object_declaration": true,
	},

	calls:      map[string]string{"call_expression": ""},
	decorators: map[string]bool{"annotation": true},
	heritage:   map[string]ports.ReferenceKind{"delegation_specifier": ports.RefExtends},
	typeIdents: map[string]bool{"type_identifier": true},

	name:       kotlinName,
	classify:   kotlinClassify,
	visibility: jvmVisibility,
	exported:   jvmExported,
	importsFn:  kotlinImports,
}

func kotlinName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	switch n.Kind() {
	case "property_declaration":
		if vd := childByKind(n, "variable_declaration"); vd != nil {
			return childByKind(vd, "simple_identifier")
		}
	case "secondary_constructor":
		return childByKind(n, "constructor")
	case "class_declaration", "object_declaration", "type_alias":
		return childByKind(n, "type_identifier")
	case "function_declaration":
		return childByKind(n, "simple_identifier")
	}
	return nil
}

func kotlinClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "class_declaration":
		if hasChildKind(n, "interface") {
			s.Kind = ports.KindInterface
		} else if strings.Contains(modifierText(n, c.source), "enum") {
			s.Kind = ports.KindEnum
		}
	case "property_declaration":
		if s.Parent == "" {
			s.Kind = ports.KindVariable
			if strings.Contains(modifierText(n, c.source), "const") {
				s.Kind = ports.KindConstant
			}
		}
	case "secondary_constructor":
		s.Name = "constructor"
	}
	if hasModifier(n, c.source, "suspend") {
		s.Async = true
	}
	return true
}

func kotlinImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	if n.Kind() != "import_header" {
		return nil
	}
	id := childByKind(n, "identifier")
	if id == nil {
		return nil
	}
	path := c.text(id)
	if hasChildKind(n, "wildcard_import") {
		return []ports.Import{c.imp(path, n, ports.ImportNamespace, "*")}
	}
	spec := lastSegment(path, ".")
	if alias := childByKind(n, "import_alias"); alias != nil {
		if t := childByKind(alias, "type_identifier"); t != nil {
			spec = c.text(t)
		}
	}
	return []ports.Import{c.imp(path, n, ports.ImportNamed, spec)}
}

var scalaRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"class_definition":     ports.KindClass,
		"object_definition":    ports.KindClass,
		"trait_definition":     ports.KindInterface,
		"enum_definition":      ports.KindEnum,
		"function_definition":  ports.KindFunction,
		"function_declaration": ports.KindFunction,
		"val_definition":       ports.KindConstant,
		"var_definition":       ports.KindVariable,
		"type_definition":      ports.KindType,
	},
	containers: map[string]bool{
		"class_definition":  true,
		"object_definition": true,
		"trait_definition":  true,
	},

	calls:          map[string]string{"call_expression": "function"},
	instantiations: map[string]string{"instance_expression": ""},
	decorators:     map[string]bool{"annotation": true},
	heritage:       map[string]ports.ReferenceKind{"extends_clause": ports.RefExtends},
	typeIdents:     map[string]bool{"type_identifier": true},

	name:       scalaName,
	classify:   scalaClassify,
	visibility: jvmVisibility,
	exported:   jvmExported,
	importsFn:  scalaImports,
}

func scalaName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	switch n.Kind() {
	case "val_definition", "var_definition":
		if p := n.ChildByFieldName("pattern"); p != nil && p.Kind() == "identifier" {
			return p
		}
	}
	return nil
}

func scalaClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "val_definition", "var_definition":
		if s.Parent != "" {
			s.Kind = ports.KindProperty
		}
	}
	return true
}

func scalaImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	if n.Kind() != "import_declaration" {
		return nil
	}
	text := strings.TrimSpace(strings.TrimPrefix(c.text(n), "import"))
	switch {
	case strings.HasSuffix(text, "._") || strings.HasSuffix(text, ".*"):
		return []ports.Import{c.imp(text[:len(text)-2], n, ports.ImportNamespace, "*")}
	case strings.Contains(text, "{"):
		i := strings.Index(text, "{")
		source := strings.TrimSuffix(strings.TrimSpace(text[:i]), ".")
		var specs []string
		for _, part := range strings.Split(strings.Trim(text[i:], "{} "), ",") {
			if part = strings.TrimSpace(part); part != "" {
				specs = append(specs, part)
			}
		}
		return []ports.Import{c.imp(source, n, ports.ImportNamed, specs...)}
	}
	return []ports.Import{c.imp(text, n, ports.ImportNamed, lastSegment(text, "."))}
}
