//go:build !lean

package treesitter

// This file registers all compiled-in grammars. It is included in the default
// build but excluded when building with -tags lean, which produces a binary
// that loads grammars dynamically from .so/.dylib files.

import (
	"unsafe"

	forest_c "github.com/alexaandru/go-sitter-forest/c"
	forest_csharp "github.com/alexaandru/go-sitter-forest/c_sharp"
	forest_cpp "github.com/alexaandru/go-sitter-forest/cpp"
	forest_go "github.com/alexaandru/go-sitter-forest/go"
	forest_java "github.com/alexaandru/go-sitter-forest/java"
	forest_javascript "github.com/alexaandru/go-sitter-forest/javascript"
	forest_kotlin "github.com/alexaandru/go-sitter-forest/kotlin"
	forest_php "github.com/alexaandru/go-sitter-forest/php"
	forest_python "github.com/alexaandru/go-sitter-forest/python"
	forest_ruby "github.com/alexaandru/go-sitter-forest/ruby"
	forest_rust "github.com/alexaandru/go-sitter-forest/rust"
	forest_scala "github.com/alexaandru/go-sitter-forest/scala"
	forest_tsx "github.com/alexaandru/go-sitter-forest/tsx"
	forest_typescript "github.com/alexaandru/go-sitter-forest/typescript"
)

// builtinGrammars returns the language pointer constructors linked into
// this binary. Constructors are only invoked on first use of a language.
func builtinGrammars() map[string]func() unsafe.Pointer {
	return map[string]func() unsafe.Pointer{
		// JS family
		"javascript": forest_javascript.GetLanguage,
		"typescript": forest_typescript.GetLanguage,
		"tsx":        forest_tsx.GetLanguage,

		// Systems
		"go":   forest_go.GetLanguage,
		"rust": forest_rust.GetLanguage,
		"c":    forest_c.GetLanguage,
		"cpp":  forest_cpp.GetLanguage,

		// JVM and .NET
		"java":    forest_java.GetLanguage,
		"kotlin":  forest_kotlin.GetLanguage,
		"scala":   forest_scala.GetLanguage,
		"c_sharp": forest_csharp.GetLanguage,

		// Scripting
		"python": forest_python.GetLanguage,
		"ruby":   forest_ruby.GetLanguage,
		"php":    forest_php.GetLanguage,
	}
}
