package index

import (
	"fmt"
	"sort"

	"github.com/corey/codeindex/internal/ports"
)

// moduleCaller names the pseudo-symbol that owns top-level call sites.
const moduleCaller = "<module>"

// CallNode is one symbol in the call graph.
type CallNode struct {
	ID   string           `json:"id"`
	Name string           `json:"name"`
	Kind ports.SymbolKind `json:"kind"`
	File string           `json:"file"`
	Line int              `json:"line"`
}

// CallLocation is one call site.
type CallLocation struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// CallEdge aggregates every call from one caller to one callee definition.
type CallEdge struct {
	From      string         `json:"from"`
	To        string         `json:"to"`
	Locations []CallLocation `json:"locations"`
	Count     int            `json:"count"`
}

// CallGraph is the result of BuildCallGraph.
type CallGraph struct {
	Nodes []CallNode `json:"nodes"`
	Edges []CallEdge `json:"edges"`
}

// NodeID is the call graph identifier of a symbol: file#name@line.
func NodeID(s ports.Symbol) string {
	return fmt.Sprintf("%s#%s@%d", s.File, s.Name, s.Range.Start.Line)
}

func moduleID(file string) string {
	return file + "#" + moduleCaller
}

// BuildCallGraph links each call reference to every definition of the
// called name. The caller is the innermost function-like symbol whose range
// holds the call, or the file's <module> node for top-level calls.
// Calls to names with no definition are dropped.
func (m *Manager) BuildCallGraph() CallGraph {
	m.mu.RLock()
	defer m.mu.RUnlock()

	byName := make(map[string][]string)
	g := CallGraph{Nodes: []CallNode{}, Edges: []CallEdge{}}
	paths := m.sortedPaths()
	for _, p := range paths {
		for _, s := range m.idx.Files[p].Symbols {
			id := NodeID(s)
			g.Nodes = append(g.Nodes, CallNode{
				ID: id, Name: s.Name, Kind: s.Kind, File: s.File, Line: s.Range.Start.Line,
			})
			byName[s.Name] = append(byName[s.Name], id)
		}
	}

	type key struct{ from, to string }
	edges := make(map[key]*CallEdge)
	modules := make(map[string]bool)
	for _, p := range paths {
		fi := m.idx.Files[p]
		for _, r := range fi.References {
			if r.Kind != ports.RefCall {
				continue
			}
			targets := byName[r.Symbol]
			if len(targets) == 0 {
				continue
			}
			from := enclosingCaller(fi, r.Range)
			if from == "" {
				from = moduleID(fi.File)
				if !modules[from] {
					modules[from] = true
					g.Nodes = append(g.Nodes, CallNode{ID: from, Name: moduleCaller, Kind: ports.KindModule, File: fi.File})
				}
			}
			loc := CallLocation{File: r.File, Line: r.Range.Start.Line, Column: r.Range.Start.Column}
			for _, to := range targets {
				k := key{from, to}
				e, ok := edges[k]
				if !ok {
					e = &CallEdge{From: from, To: to}
					edges[k] = e
				}
				e.Locations = append(e.Locations, loc)
				e.Count++
			}
		}
	}

	for _, e := range edges {
		g.Edges = append(g.Edges, *e)
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		if g.Edges[i].From != g.Edges[j].From {
			return g.Edges[i].From < g.Edges[j].From
		}
		return g.Edges[i].To < g.Edges[j].To
	})
	return g
}

// ownsCalls reports whether call sites inside a symbol of kind k are
// attributed to it. Components own their template and script calls.
func ownsCalls(k ports.SymbolKind) bool {
	return k.Callable() || k == ports.KindComponent
}

// enclosingCaller returns the node id of the smallest call-owning symbol in
// fi containing at, or "".
func enclosingCaller(fi *ports.FileIndex, at ports.Range) string {
	var best *ports.Symbol
	for i := range fi.Symbols {
		s := &fi.Symbols[i]
		if !ownsCalls(s.Kind) || !s.Range.Contains(at) {
			continue
		}
		if best == nil || best.Range.Contains(s.Range) {
			best = s
		}
	}
	if best == nil {
		return ""
	}
	return NodeID(*best)
}
