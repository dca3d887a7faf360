//go:build lean

package treesitter

// This file is included only when building with -tags lean.
// No grammar packages are linked; every grammar is loaded dynamically from
// .so/.dylib files via the DynamicLoader (purego).
//
// Build with: go build -tags lean ./cmd/codeindex/

import "unsafe"

func builtinGrammars() map[string]func() unsafe.Pointer {
	return nil
}
