package index

import (
	"github.com/corey/codeindex/internal/ports"
)

// ReferenceResult is the answer to FindReferences.
type ReferenceResult struct {
	Definitions []ports.Symbol    `json:"definitions"`
	References  []ports.Reference `json:"references"`
	Total       int               `json:"total"`
}

// GetAllDefinitions returns every symbol named exactly name, in path order.
// A name may be defined in several files or overloaded within one.
func (m *Manager) GetAllDefinitions(name string) []ports.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.definitionsLocked(name)
}

func (m *Manager) definitionsLocked(name string) []ports.Symbol {
	defs := []ports.Symbol{}
	for _, p := range m.sortedPaths() {
		for _, s := range m.idx.Files[p].Symbols {
			if s.Name == name {
				defs = append(defs, s)
			}
		}
	}
	return defs
}

// FindReferences returns the definitions of name and every reference whose
// symbol is exactly name. Resolution is by name only.
func (m *Manager) FindReferences(name string) ReferenceResult {
	m.mu.RLock()
	defer m.mu.RUnlock()

	res := ReferenceResult{
		Definitions: m.definitionsLocked(name),
		References:  []ports.Reference{},
	}
	for _, p := range m.sortedPaths() {
		for _, r := range m.idx.Files[p].References {
			if r.Symbol == name {
				res.References = append(res.References, r)
			}
		}
	}
	res.Total = len(res.Definitions) + len(res.References)
	return res
}

// GetSymbolsInFile returns the symbols of one indexed file in source order,
// or nil when the file is not indexed. path may be absolute.
func (m *Manager) GetSymbolsInFile(path string) []ports.Symbol {
	rel, _, err := m.resolve(path)
	if err != nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	fi, ok := m.idx.Files[rel]
	if !ok {
		return nil
	}
	return append([]ports.Symbol{}, fi.Symbols...)
}

// GetFile returns the stored entry for path, or nil.
func (m *Manager) GetFile(path string) *ports.FileIndex {
	rel, _, err := m.resolve(path)
	if err != nil {
		return nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.idx.Files[rel]
}

// GetAllSymbols returns every symbol in the index, in path order.
func (m *Manager) GetAllSymbols() []ports.Symbol {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var all []ports.Symbol
	for _, p := range m.sortedPaths() {
		all = append(all, m.idx.Files[p].Symbols...)
	}
	return all
}
