package treesitter

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

var rubyRules = &ruleSet{
	decls: map[string]ports.SymbolKind{
		"method":           ports.KindFunction,
		"singleton_method": ports.KindMethod,
		"class":            ports.KindClass,
		"module":           ports.KindModule,
		"assignment":       ports.KindConstant,
	},
	containers: map[string]bool{
		"class":           true,
		"module":          true,
		"singleton_class": true,
	},
	constructors: map[string]bool{"initialize": true},

	heritage: map[string]ports.ReferenceKind{"superclass": ports.RefExtends},

	name:       rubyName,
	classify:   rubyClassify,
	visibility: rubyVisibility,
	exported:   rubyExported,
	importsFn:  rubyImports,
	extraRefs:  rubyExtraRefs,
}

var rubyRequires = map[string]bool{
	"require":          true,
	"require_relative": true,
	"load":             true,
	"autoload":         true,
}

var rubyMixins = map[string]bool{
	"include": true,
	"extend":  true,
	"prepend": true,
}

func rubyName(n *tree_sitter.Node, c *passContext) *tree_sitter.Node {
	switch n.Kind() {
	case "assignment":
		left := n.ChildByFieldName("left")
		if left == nil || left.Kind() != "constant" {
			return nil
		}
		return left
	case "class", "module":
		if nm := n.ChildByFieldName("name"); nm != nil {
			return calleeName(nm)
		}
	}
	return nil
}

func rubyClassify(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	switch n.Kind() {
	case "assignment":
		if left := n.ChildByFieldName("left"); left == nil || left.Kind() != "constant" {
			return false
		}
	case "singleton_method":
		s.Static = true
	}
	return true
}

// rubyVisibility looks for a bare private/protected/public call earlier in
// the same body.
func rubyVisibility(n *tree_sitter.Node, c *passContext) string {
	if n.Kind() != "method" {
		return ""
	}
	for p := n.PrevSibling(); p != nil; p = p.PrevSibling() {
		if p.Kind() != "identifier" {
			continue
		}
		switch t := c.text(p); t {
		case "private", "protected", "public":
			return t
		}
	}
	return "public"
}

func rubyExported(n *tree_sitter.Node, c *passContext, s *ports.Symbol) bool {
	return s.Visibility != "private" && s.Visibility != "protected"
}

// rubyCall splits a call node into method name and first argument.
func rubyCall(n *tree_sitter.Node) (method, firstArg *tree_sitter.Node) {
	method = n.ChildByFieldName("method")
	if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		firstArg = args.NamedChild(0)
	}
	return method, firstArg
}

func rubyImports(n *tree_sitter.Node, c *passContext) []ports.Import {
	if n.Kind() != "call" || n.ChildByFieldName("receiver") != nil {
		return nil
	}
	method, arg := rubyCall(n)
	if method == nil || arg == nil || !rubyRequires[c.text(method)] {
		return nil
	}
	if src := stringContent(arg, c.source); src != "" {
		return []ports.Import{c.imp(src, n, ports.ImportSideEffect)}
	}
	return nil
}

// rubyExtraRefs reports method calls, X.new instantiation and mixins.
func rubyExtraRefs(n *tree_sitter.Node, c *passContext) []ports.Reference {
	if n.Kind() != "call" {
		return nil
	}
	method, arg := rubyCall(n)
	if method == nil {
		return nil
	}
	name := c.text(method)
	recv := n.ChildByFieldName("receiver")
	switch {
	case name == "new" && recv != nil:
		if nm := calleeName(recv); nm != nil {
			return []ports.Reference{c.ref(c.text(nm), nm, ports.RefInstantiate)}
		}
	case recv == nil && rubyMixins[name] && arg != nil:
		if nm := calleeName(arg); nm != nil {
			return []ports.Reference{c.ref(c.text(nm), nm, ports.RefImplements)}
		}
	case recv == nil && rubyRequires[name]:
		return nil
	}
	return []ports.Reference{c.ref(name, method, ports.RefCall)}
}
