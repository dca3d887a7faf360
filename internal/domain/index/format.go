package index

import (
	"fmt"
	"strings"

	"github.com/corey/codeindex/internal/ports"
)

// FormatSymbol renders the display scope of a symbol:
//   - member: Parent.name(params), e.g. "AuthHandler.login(user, password)"
//   - callable: name(params), e.g. "createApp(config)"
//   - class with a base: name(base), e.g. "TestAuth(TestCase)"
//   - anything else: the name
func FormatSymbol(s ports.Symbol) string {
	scope := s.Name
	switch {
	case s.Kind.Callable():
		scope += "(" + strings.Join(s.Parameters, ", ") + ")"
	case s.Kind == ports.KindClass && s.Extends != "":
		scope += "(" + s.Extends + ")"
	}
	if s.Parent != "" {
		scope = s.Parent + "." + scope
	}
	return scope
}

// FormatHit renders one result line: file:scope[start-end]:line kind.
//
//	services/auth/handler.py:login(user)[10-45]:10 function
func FormatHit(s ports.Symbol) string {
	return fmt.Sprintf("%s:%s[%d-%d]:%d %s",
		s.File, FormatSymbol(s), s.Range.Start.Line, s.Range.End.Line, s.SelectionRange.Start.Line, s.Kind)
}
