package treesitter

import (
	"path/filepath"
	"strings"
)

// extensionMap maps lower-cased file extensions (and a few special base names)
// to language ids. It is immutable after package init.
var extensionMap = buildExtensionMap()

// compositeLanguages embed script regions inside markup and are handled by
// the splitter instead of a single grammar.
var compositeLanguages = map[string]bool{
	"vue":    true,
	"svelte": true,
}

func buildExtensionMap() map[string]string {
	m := make(map[string]string, 64)
	add := func(lang string, exts ...string) {
		for _, ext := range exts {
			m[ext] = lang
		}
	}

	// JS family
	add("javascript", ".js", ".jsx", ".mjs", ".cjs")
	add("typescript", ".ts", ".mts", ".cts")
	add("tsx", ".tsx")

	// Systems
	add("go", ".go")
	add("rust", ".rs")
	add("c", ".c", ".h")
	add("cpp", ".cpp", ".hpp", ".cc", ".cxx", ".hxx", ".hh")

	// JVM and .NET
	add("java", ".java")
	add("kotlin", ".kt", ".kts")
	add("scala", ".scala", ".sc")
	add("c_sharp", ".cs")

	// Scripting
	add("python", ".py", ".pyw", ".pyi")
	add("ruby", ".rb", ".rake", ".gemspec")
	add("php", ".php")

	// Composite documents
	add("vue", ".vue")
	add("svelte", ".svelte")

	// Special file names without a usable extension
	add("ruby", "Rakefile", "Gemfile", "Guardfile")
	add("python", "SConstruct", "SConscript")

	return m
}

// ExtensionToLanguage returns the language id for a file path, looked up by
// base name first and then by extension. Returns "" for unknown files.
func ExtensionToLanguage(path string) string {
	base := filepath.Base(path)
	if lang, ok := extensionMap[base]; ok {
		return lang
	}
	return extensionMap[strings.ToLower(filepath.Ext(base))]
}

// IsComposite reports whether lang is a composite document language.
func IsComposite(lang string) bool {
	return compositeLanguages[lang]
}

// KnownExtensions returns the extension table keys that start with a dot.
func KnownExtensions() []string {
	exts := make([]string, 0, len(extensionMap))
	for ext := range extensionMap {
		if strings.HasPrefix(ext, ".") {
			exts = append(exts, ext)
		}
	}
	return exts
}
