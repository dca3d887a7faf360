package ports

// Parser turns one source file into a FileIndex.
// The concrete implementation (tree-sitter) lives in internal/adapters/treesitter.
type Parser interface {
	// ParseFile extracts symbols, imports, exports and references from a file.
	// content may be nil, in which case the file is read from path.
	// Returns nil, nil for unsupported languages or unavailable grammars (not an error).
	ParseFile(path string, content []byte) (*FileIndex, error)

	// SupportsFile returns true if a language is registered for this path
	// (by extension or special file name).
	SupportsFile(path string) bool
}
