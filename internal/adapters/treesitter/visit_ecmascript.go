package treesitter

import (
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

// jsRules covers javascript, typescript and tsx. The TypeScript grammars are
// supersets of the JavaScript one, so a single table serves all three.
var jsRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"function_declaration":           ports.KindFunction,
		"generator_function_declaration": ports.KindFunction,
		"class_declaration":              ports.KindClass,
		"abstract_class_declaration":     ports.KindClass,
		"method_definition":              ports.KindMethod,
		"method_signature":               ports.KindMethod,
		"abstract_method_signature":      ports.KindMethod,
		"field_definition":               ports.KindProperty,
		"public_field_definition":        ports.KindProperty,
		"property_signature":             ports.KindProperty,
		"interface_declaration":          ports.KindInterface,
		"type_alias_declaration":         ports.KindType,
		"enum_declaration":               ports.KindEnum,
		"internal_module":                ports.KindNamespace,
		"module":                         ports.KindModule,
		"variable_declarator":            ports.KindVariable,
	},
	containers: map[string]bool{
		"class_declaration":          true,
		"abstract_class_declaration": true,
		"class":                      true,
		"interface_declaration":      true,
	},
	anchors:        jsAnchors,
	exportWrappers: map[string]bool{"export_statement": true},
	exportKeywords: []string{"export "},
	constructors:   map[string]bool{"constructor": true},

	calls:          map[string]string{"call_expression": "function"},
	instantiations: map[string]string{"new_expression": "constructor"},
	decorators:     map[string]bool{"decorator": true},
	heritage: map[string]ports.ReferenceKind{
		"class_heritage":      ports.RefExtends,
		"extends_clause":      ports.RefExtends,
		"extends_type_clause": ports.RefExtends,
		"implements_clause":   ports.RefImplements,
	},
	typeIdents: map[string]bool{"type_identifier": true},

	name:       jsName,
	classify:   jsClassify,
	visibility: jsVisibility,
	importsFn:  jsImports,
	exportsFn:  jsExports,
	extraRefs:  jsExtraRefs,
}

var jsAnchors = map[string]bool{
	"export_statement":     true,
	"lexical_declaration":  true,
	"variable_declaration": true,
}

// jsFunctionValues are expression kinds that make a variable a function.
var jsFunctionValues = map[string]bool{
	"arrow_function":      true,
	"function_expression": true,
	"function":            true,
	"generator_function":  true,
}

func jsName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	if n.Kind() == "variable_declarator" {
		nm := n.ChildByFieldName("name")
		if nm == nil || nm.Kind() != "identifier" {
			return nil // destructuring patterns declare no single name
		}
		return nm
	}
	return nil
}

func jsClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "variable_declarator":
		if nm := n.ChildByFieldName("name"); nm == nil || nm.Kind() != "identifier" {
			return false
		}
		decl := n.Parent()
		value := n.ChildByFieldName("value")
		switch {
		case value != nil && jsFunctionValues[value.Kind()]:
			s.Kind = ports.KindFunction
			s.Async = hasModifier(value, c.source, "async")
			s.Parameters = parameterList(value, c.source)
			s.ReturnType = returnTypeOf(value, c.source)
		case value != nil && value.Kind() == "class":
			s.Kind = ports.KindClass
		default:
			if !atTopLevel(n, jsAnchors, "program") {
				return false
			}
			if decl != nil && strings.HasPrefix(c.text(decl), "const") {
				s.Kind = ports.KindConstant
			} else {
				s.Kind = ports.KindVariable
			}
		}
		s.Parent = ""
		if decl != nil {
			s.Range = rangeOf(decl)
			s.Signature = signatureOf(c.text(decl))
		}
	}
	if c.composite && s.Kind == ports.KindFunction && isHookName(s.Name) {
		s.Kind = ports.KindHook
	}
	return true
}

// isHookName matches use[A-Z]... composition functions.
func isHookName(name string) bool {
	return len(name) > 3 && strings.HasPrefix(name, "use") && name[3] >= 'A' && name[3] <= 'Z'
}

func jsVisibility(n *tree_sitter.Node, c *passContext) string {
	if acc := childByKind(n, "accessibility_modifier"); acc != nil {
		return c.text(acc)
	}
	if nm := n.ChildByFieldName("name"); nm != nil && nm.Kind() == "private_property_identifier" {
		return "private"
	}
	return ""
}

func jsImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	switch n.Kind() {
	case "import_statement":
		src := n.ChildByFieldName("source")
		if src == nil {
			return nil
		}
		source := unquote(c.text(src))
		clause := childByKind(n, "import_clause")
		if clause == nil {
			return []ports.Import{c.imp(source, n, ports.ImportSideEffect)}
		}
		kind := ports.ImportNamed
		var specs []string
		hasDefault, hasNamed := false, false
		for i := uint(0); i < uint(clause.NamedChildCount()); i++ {
			ch := clause.NamedChild(i)
			switch ch.Kind() {
			case "identifier":
				hasDefault = true
				specs = append(specs, c.text(ch))
			case "namespace_import":
				kind = ports.ImportNamespace
				if id := childByKind(ch, "identifier"); id != nil {
					specs = append(specs, c.text(id))
				}
			case "named_imports":
				hasNamed = true
				for j := uint(0); j < uint(ch.NamedChildCount()); j++ {
					spec := ch.NamedChild(j)
					if spec.Kind() != "import_specifier" {
						continue
					}
					if nm := spec.ChildByFieldName("name"); nm != nil {
						specs = append(specs, c.text(nm))
					}
				}
			}
		}
		if kind != ports.ImportNamespace && hasDefault && !hasNamed {
			kind = ports.ImportDefault
		}
		return []ports.Import{c.imp(source, n, kind, specs...)}

	case "export_statement":
		src := n.ChildByFieldName("source")
		if src == nil {
			return nil
		}
		kind := ports.ImportNamed
		var specs []string
		if clause := childByKind(n, "export_clause"); clause != nil {
			for _, spec := range exportSpecifiers(clause, c) {
				specs = append(specs, spec.local)
			}
		} else {
			kind = ports.ImportNamespace
		}
		return []ports.Import{c.imp(unquote(c.text(src)), n, kind, specs...)}

	case "call_expression":
		fn := n.ChildByFieldName("function")
		args := n.ChildByFieldName("arguments")
		if fn == nil || args == nil || args.NamedChildCount() == 0 {
			return nil
		}
		first := args.NamedChild(0)
		if first.Kind() != "string" && first.Kind() != "template_string" {
			return nil
		}
		source := unquote(c.text(first))
		switch {
		case fn.Kind() == "import":
			return []ports.Import{c.imp(source, n, ports.ImportNamespace)}
		case fn.Kind() == "identifier" && c.text(fn) == "require":
			return []ports.Import{jsRequire(n, source, c)}
		}
	}
	return nil
}

// jsRequire classifies require() by what the result is bound to.
func jsRequire(call *tree_sitter.Node, source string, c *passContext) ports.Import {
	p := call.Parent()
	if p == nil || p.Kind() != "variable_declarator" {
		return c.imp(source, call, ports.ImportSideEffect)
	}
	nm := p.ChildByFieldName("name")
	if nm == nil {
		return c.imp(source, call, ports.ImportDefault)
	}
	if nm.Kind() == "object_pattern" {
		var specs []string
		walk(nm, func(x *tree_sitter.Node) {
			if x.Kind() == "shorthand_property_identifier_pattern" {
				specs = append(specs, c.text(x))
			} else if x.Kind() == "pair_pattern" {
				if key := x.ChildByFieldName("key"); key != nil {
					specs = append(specs, c.text(key))
				}
			}
		})
		return c.imp(source, call, ports.ImportNamed, specs...)
	}
	return c.imp(source, call, ports.ImportDefault, c.text(nm))
}

type exportSpec struct {
	local    string
	exported string
	node     *tree_sitter.Node
}

func exportSpecifiers(clause *tree_sitter.Node, c *passContext) []exportSpec {
	var out []exportSpec
	for i := uint(0); i < uint(clause.NamedChildCount()); i++ {
		spec := clause.NamedChild(i)
		if spec.Kind() != "export_specifier" {
			continue
		}
		nm := spec.ChildByFieldName("name")
		if nm == nil {
			continue
		}
		es := exportSpec{local: c.text(nm), exported: c.text(nm), node: spec}
		if alias := spec.ChildByFieldName("alias"); alias != nil {
			es.exported = c.text(alias)
		}
		out = append(out, es)
	}
	return out
}

func jsExports(n *tree_sitter.Node, c *passContext) []ports.Export {
	switch n.Kind() {
	case "export_statement":
		return jsExportStatement(n, c)
	case "assignment_expression":
		return jsCommonJSExport(n, c)
	}
	return nil
}

func jsExportStatement(n *tree_sitter.Node, c *passContext) []ports.Export {
	exp := func(name string, at *tree_sitter.Node, kind ports.ExportKind, source string) ports.Export {
		return ports.Export{Name: name, File: c.file, Range: rangeOf(at), Kind: kind, Source: source}
	}

	if src := n.ChildByFieldName("source"); src != nil {
		source := unquote(c.text(src))
		clause := childByKind(n, "export_clause")
		if clause == nil {
			name := "*"
			if ns := childByKind(n, "namespace_export"); ns != nil {
				if id := defaultName(ns); id != nil {
					name = c.text(id)
				}
			}
			return []ports.Export{exp(name, n, ports.ExportReExport, source)}
		}
		var out []ports.Export
		for _, spec := range exportSpecifiers(clause, c) {
			out = append(out, exp(spec.exported, spec.node, ports.ExportReExport, source))
		}
		return out
	}

	isDefault := hasChildKind(n, "default")
	kind := ports.ExportNamed
	if isDefault {
		kind = ports.ExportDefault
	}

	if decl := n.ChildByFieldName("declaration"); decl != nil {
		var out []ports.Export
		for _, nm := range declaredNames(decl) {
			out = append(out, exp(c.text(nm), decl, kind, ""))
		}
		if len(out) == 0 && isDefault {
			out = append(out, exp("default", decl, kind, ""))
		}
		return out
	}
	if value := n.ChildByFieldName("value"); value != nil {
		name := "default"
		if value.Kind() == "identifier" {
			name = c.text(value)
		} else if nm := value.ChildByFieldName("name"); nm != nil {
			name = c.text(nm)
		}
		return []ports.Export{exp(name, n, ports.ExportDefault, "")}
	}
	if clause := childByKind(n, "export_clause"); clause != nil {
		var out []ports.Export
		for _, spec := range exportSpecifiers(clause, c) {
			k := ports.ExportNamed
			if spec.exported == "default" {
				k = ports.ExportDefault
			}
			out = append(out, exp(spec.exported, spec.node, k, ""))
		}
		return out
	}
	return nil
}

// declaredNames lists the names bound by an exported declaration.
func declaredNames(decl *tree_sitter.Node) []*tree_sitter.Node {
	switch decl.Kind() {
	case "lexical_declaration", "variable_declaration":
		var out []*tree_sitter.Node
		for i := uint(0); i < uint(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if d.Kind() != "variable_declarator" {
				continue
			}
			if nm := d.ChildByFieldName("name"); nm != nil && nm.Kind() == "identifier" {
				out = append(out, nm)
			}
		}
		return out
	}
	if nm := decl.ChildByFieldName("name"); nm != nil {
		return []*tree_sitter.Node{nm}
	}
	return nil
}

// jsCommonJSExport handles module.exports = x and exports.name = x.
func jsCommonJSExport(n *tree_sitter.Node, c *passContext) []ports.Export {
	left := n.ChildByFieldName("left")
	if left == nil || left.Kind() != "member_expression" {
		return nil
	}
	obj := left.ChildByFieldName("object")
	prop := left.ChildByFieldName("property")
	if obj == nil || prop == nil {
		return nil
	}
	target := c.text(obj)
	switch {
	case target == "module" && c.text(prop) == "exports":
		return []ports.Export{{Name: "default", File: c.file, Range: rangeOf(n), Kind: ports.ExportDefault}}
	case target == "exports" || target == "module.exports":
		return []ports.Export{{Name: c.text(prop), File: c.file, Range: rangeOf(n), Kind: ports.ExportNamed}}
	}
	return nil
}

// jsExtraRefs reports JSX elements whose tag starts with an uppercase letter.
func jsExtraRefs(n *tree_sitter.Node, c *passContext) []ports.Reference {
	switch n.Kind() {
	case "jsx_opening_element", "jsx_self_closing_element":
		nm := n.ChildByFieldName("name")
		if nm == nil {
			return nil
		}
		id := calleeName(nm)
		if id == nil {
			id = nm
		}
		if name := c.text(id); isUpperName(name) {
			return []ports.Reference{c.ref(name, id, ports.RefComponentUsage)}
		}
	}
	return nil
}
