package treesitter

import (
	"strings"
	"unicode"
	"unicode/utf8"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/corey/codeindex/internal/ports"
)

const maxSignature = 100

// identKinds are leaf node kinds that carry a bare name across grammars.
var identKinds = map[string]bool{
	"identifier":                    true,
	"type_identifier":               true,
	"property_identifier":           true,
	"private_property_identifier":   true,
	"shorthand_property_identifier": true,
	"field_identifier":              true,
	"simple_identifier":             true,
	"namespace_identifier":          true,
	"package_identifier":            true,
	"constant":                      true,
	"name":                          true,
}

// nameKinds is the fallback search order for a declaration's name when the
// grammar has no "name" field.
var nameKinds = []string{
	"identifier", "type_identifier", "simple_identifier", "property_identifier",
	"private_property_identifier", "field_identifier", "constant", "name",
}

// walk visits every node under root in pre-order.
func walk(root *tree_sitter.Node, fn func(n *tree_sitter.Node)) {
	cur := root.Walk()
	defer cur.Close()
	for {
		fn(cur.Node())
		if cur.GotoFirstChild() {
			continue
		}
		for !cur.GotoNextSibling() {
			if !cur.GotoParent() {
				return
			}
		}
	}
}

// nodeText returns the source text for a node.
func nodeText(n *tree_sitter.Node, source []byte) string {
	return string(source[n.StartByte():n.EndByte()])
}

// childByKind finds the first child with the given kind.
func childByKind(n *tree_sitter.Node, kind string) *tree_sitter.Node {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// hasChildKind reports whether n has a direct child of the given kind
// (including anonymous tokens such as "async" or "default").
func hasChildKind(n *tree_sitter.Node, kind string) bool {
	return childByKind(n, kind) != nil
}

// firstField returns the first present field among names.
func firstField(n *tree_sitter.Node, names ...string) *tree_sitter.Node {
	for _, f := range names {
		if c := n.ChildByFieldName(f); c != nil {
			return c
		}
	}
	return nil
}

// sameNode compares two nodes by span and kind.
func sameNode(a, b *tree_sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Kind() == b.Kind()
}

// defaultName finds the identifier naming a declaration.
func defaultName(n *tree_sitter.Node) *tree_sitter.Node {
	if c := n.ChildByFieldName("name"); c != nil {
		return c
	}
	for _, kind := range nameKinds {
		if c := childByKind(n, kind); c != nil {
			return c
		}
	}
	return nil
}

var calleeFields = []string{"property", "field", "name", "attribute", "method", "function", "constructor", "type"}

// calleeName reduces a call target, constructor or type expression to its
// rightmost identifier: a.b.c() -> c, new ns.Foo<T>() -> Foo.
func calleeName(n *tree_sitter.Node) *tree_sitter.Node {
	for depth := 0; n != nil && depth < 8; depth++ {
		k := n.Kind()
		if identKinds[k] {
			return n
		}
		switch k {
		case "generic_type", "generic_name", "user_type", "parameterized_type", "template_function":
			if c := firstField(n, "name", "type"); c != nil {
				n = c
			} else if n.NamedChildCount() > 0 {
				n = n.NamedChild(0)
			} else {
				return nil
			}
			continue
		}
		if c := firstField(n, calleeFields...); c != nil {
			n = c
			continue
		}
		if descendsToLast(k) && n.NamedChildCount() > 0 {
			n = n.NamedChild(n.NamedChildCount() - 1)
			continue
		}
		return nil
	}
	return nil
}

func descendsToLast(kind string) bool {
	for _, part := range []string{"expression", "navigation", "suffix", "scoped", "qualified", "member", "scope_resolution"} {
		if strings.Contains(kind, part) {
			return true
		}
	}
	return false
}

// leadingName descends through first named children until it reaches an
// identifier. Used for decorator and annotation nodes.
func leadingName(n *tree_sitter.Node) *tree_sitter.Node {
	if c := calleeName(n); c != nil {
		return c
	}
	for depth := 0; n != nil && depth < 6; depth++ {
		if n.NamedChildCount() == 0 {
			return nil
		}
		n = n.NamedChild(0)
		if c := calleeName(n); c != nil {
			return c
		}
	}
	return nil
}

// rangeOf converts a node span into a ports.Range.
func rangeOf(n *tree_sitter.Node) ports.Range {
	s, e := n.StartPosition(), n.EndPosition()
	return ports.Range{
		Start: ports.Position{Line: int(s.Row) + 1, Column: int(s.Column), Offset: int(n.StartByte())},
		End:   ports.Position{Line: int(e.Row) + 1, Column: int(e.Column), Offset: int(n.EndByte())},
	}
}

// signatureOf returns the first line of a declaration, truncated.
func signatureOf(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	text = strings.TrimSpace(text)
	if len(text) <= maxSignature {
		return text
	}
	cut := maxSignature
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut] + "..."
}

// lineContext returns the trimmed source line containing offset.
func lineContext(source []byte, offset int) string {
	if offset < 0 || offset > len(source) {
		return ""
	}
	start := offset
	for start > 0 && source[start-1] != '\n' {
		start--
	}
	end := offset
	for end < len(source) && source[end] != '\n' {
		end++
	}
	line := strings.TrimSpace(string(source[start:end]))
	if len(line) > 200 {
		line = signatureOf(line[:200])
	}
	return line
}

// unquote strips string delimiters from a literal.
func unquote(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "@")
	return strings.Trim(s, "\"'`<>")
}

// stringContent returns the unquoted text of the first string-like
// descendant of n, or "".
func stringContent(n *tree_sitter.Node, source []byte) string {
	var found *tree_sitter.Node
	walk(n, func(c *tree_sitter.Node) {
		if found != nil {
			return
		}
		k := c.Kind()
		if k == "string" || k == "string_literal" || k == "interpreted_string_literal" ||
			k == "raw_string_literal" || k == "encapsed_string" || k == "system_lib_string" {
			found = c
		}
	})
	if found == nil {
		return ""
	}
	return unquote(nodeText(found, source))
}

// modifierKinds are child node kinds whose text lists declaration modifiers.
var modifierKinds = map[string]bool{
	"modifiers":               true,
	"modifier":                true,
	"function_modifiers":      true,
	"visibility_modifier":     true,
	"static_modifier":         true,
	"abstract_modifier":       true,
	"final_modifier":          true,
	"accessibility_modifier":  true,
	"storage_class_specifier": true,
	"member_modifier":         true,
	"access_modifier":         true,
}

// hasModifier reports whether n carries the given keyword, either as an
// anonymous token child or inside a modifier list.
func hasModifier(n *tree_sitter.Node, source []byte, word string) bool {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		k := c.Kind()
		if k == word {
			return true
		}
		if modifierKinds[k] {
			for _, f := range strings.Fields(nodeText(c, source)) {
				if f == word {
					return true
				}
			}
		}
	}
	return false
}

// modifierText returns the concatenated text of n's modifier children.
func modifierText(n *tree_sitter.Node, source []byte) string {
	var parts []string
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		c := n.Child(i)
		if modifierKinds[c.Kind()] {
			parts = append(parts, nodeText(c, source))
		}
	}
	return strings.Join(parts, " ")
}

// textualVisibility maps the first private/protected/public/internal keyword
// in text to a visibility.
func textualVisibility(text string) string {
	for _, f := range strings.Fields(text) {
		switch f {
		case "private", "protected", "public", "internal":
			return f
		}
	}
	return ""
}

// parameterList returns the text of each named parameter of a callable.
func parameterList(n *tree_sitter.Node, source []byte) []string {
	params := firstField(n, "parameters")
	if params == nil {
		for _, kind := range []string{"formal_parameters", "parameters", "parameter_list", "function_value_parameters", "formal_parameter_list"} {
			if params = childByKind(n, kind); params != nil {
				break
			}
		}
	}
	if params == nil {
		if d := n.ChildByFieldName("declarator"); d != nil {
			return parameterList(d, source)
		}
		return nil
	}
	var out []string
	for i := uint(0); i < uint(params.NamedChildCount()); i++ {
		p := params.NamedChild(i)
		if strings.Contains(p.Kind(), "comment") {
			continue
		}
		out = append(out, strings.Join(strings.Fields(nodeText(p, source)), " "))
	}
	return out
}

// returnTypeOf returns the declared return type text of a callable, if any.
func returnTypeOf(n *tree_sitter.Node, source []byte) string {
	rt := firstField(n, "return_type", "result")
	if rt == nil {
		return ""
	}
	t := strings.TrimSpace(nodeText(rt, source))
	t = strings.TrimPrefix(t, ":")
	t = strings.TrimPrefix(t, "->")
	return strings.TrimSpace(t)
}

// precedingComments collects the comment siblings directly above n (no blank
// line in between) and strips comment markers.
func precedingComments(n *tree_sitter.Node, source []byte) string {
	var blocks []string
	top := n.StartPosition().Row
	for p := n.PrevSibling(); p != nil; p = p.PrevSibling() {
		if !strings.Contains(p.Kind(), "comment") {
			break
		}
		if p.EndPosition().Row+1 < top {
			break
		}
		blocks = append(blocks, nodeText(p, source))
		top = p.StartPosition().Row
	}
	if len(blocks) == 0 {
		return ""
	}
	var lines []string
	for i := len(blocks) - 1; i >= 0; i-- {
		lines = append(lines, stripCommentMarkers(blocks[i])...)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func stripCommentMarkers(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"///", "//!", "//", "/**", "/*", "#", "*/", "*"} {
			if strings.HasPrefix(line, prefix) {
				line = strings.TrimPrefix(line, prefix)
				break
			}
		}
		line = strings.TrimSpace(strings.TrimSuffix(line, "*/"))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// isUpperName reports whether name starts with an uppercase letter.
func isUpperName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// isConstantName reports SCREAMING_CASE names.
func isConstantName(name string) bool {
	hasLetter := false
	for _, r := range name {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
