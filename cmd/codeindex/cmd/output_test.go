package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/codeindex/internal/domain/index"
	"github.com/corey/codeindex/internal/ports"
)

func init() {
	useColor = false
}

func sym(name string, kind ports.SymbolKind, file string, start, end int) ports.Symbol {
	r := ports.Range{Start: ports.Position{Line: start}, End: ports.Position{Line: end}}
	return ports.Symbol{Name: name, Kind: kind, File: file, Range: r, SelectionRange: r}
}

func TestFormatIndexResult(t *testing.T) {
	out := formatIndexResult(&index.IndexResult{
		Indexed:  2,
		Skipped:  3,
		Removed:  1,
		Errors:   []index.FileError{{Path: "a.py", Err: errors.New("boom")}},
		Duration: 1500 * time.Millisecond,
	})
	assert.Contains(t, out, "⚡ indexed 2 │ unchanged 3 │ removed 1 │ 1.5s")
	assert.Contains(t, out, "✗ a.py: boom")
}

func TestFormatHits(t *testing.T) {
	login := sym("login", ports.KindMethod, "src/auth.py", 10, 20)
	login.Parent = "Auth"
	login.Parameters = []string{"user"}
	other := sym("Login", ports.KindClass, "src/views.py", 3, 9)

	out := formatHits([]index.ScoredSymbol{
		{Symbol: login, Score: 100},
		{Symbol: other, Score: 90},
	}, 2*time.Millisecond, false)

	assert.Contains(t, out, "⚡ 2 hits │ 2 files │ 2ms")
	assert.Contains(t, out, "  src/auth.py:Auth.login(user)[10-20]:10 method\n")
	assert.Contains(t, out, "  src/views.py:Login[3-9]:3 class\n")
	assert.NotContains(t, out, "(100)")

	withScore := formatHits([]index.ScoredSymbol{{Symbol: login, Score: 100}}, 0, true)
	assert.Contains(t, withScore, "method  (100)")
}

func TestFormatRefs(t *testing.T) {
	def := sym("parse", ports.KindFunction, "lib/p.ts", 1, 4)
	out := formatRefs("parse", index.ReferenceResult{
		Definitions: []ports.Symbol{def},
		References: []ports.Reference{{
			Symbol:  "parse",
			File:    "app.ts",
			Range:   ports.Range{Start: ports.Position{Line: 7, Column: 2}},
			Kind:    ports.RefCall,
			Context: "parse(input)",
		}},
		Total: 1,
	}, time.Millisecond)

	assert.Contains(t, out, "⚡ 1 references to parse │ 1 definitions")
	assert.Contains(t, out, "def lib/p.ts:parse()[1-4]:1 function")
	assert.Contains(t, out, "app.ts:7:2 call  parse(input)")
}

func TestFormatCallGraph(t *testing.T) {
	out := formatCallGraph(index.CallGraph{
		Nodes: make([]index.CallNode, 3),
		Edges: []index.CallEdge{
			{From: "a.py#main@1", To: "a.py#run@5", Count: 2},
			{From: "a.py#run@5", To: "b.py#helper@1", Count: 1},
		},
	})
	assert.Contains(t, out, "⚡ 3 nodes │ 2 edges")
	assert.Contains(t, out, "a.py#main@1 → a.py#run@5 ×2\n")
	assert.Contains(t, out, "a.py#run@5 → b.py#helper@1\n")
}

func TestSortedCounts(t *testing.T) {
	assert.Equal(t, "python 3, ts 3, go 1",
		sortedCounts(map[string]int{"go": 1, "python": 3, "ts": 3}))
	assert.Equal(t, "", sortedCounts(map[ports.SymbolKind]int{}))
}

func TestElapsed(t *testing.T) {
	assert.Equal(t, "250µs", elapsed(250*time.Microsecond))
	assert.Equal(t, "12ms", elapsed(12345*time.Microsecond))
}

func TestSearchOptions(t *testing.T) {
	t.Cleanup(func() {
		searchKind = ""
		searchExported = false
		searchCmd.Flags().Lookup("exported").Changed = false
	})

	opts, err := searchOptions(searchCmd, "get")
	require.NoError(t, err)
	assert.Nil(t, opts.Exported, "unset --exported does not filter")
	assert.Equal(t, index.DefaultSearchLimit, opts.Limit)

	require.NoError(t, searchCmd.Flags().Set("exported", "false"))
	searchKind = "method"
	opts, err = searchOptions(searchCmd, "get")
	require.NoError(t, err)
	require.NotNil(t, opts.Exported)
	assert.False(t, *opts.Exported)
	assert.Equal(t, ports.KindMethod, opts.Kind)

	searchKind = "lambda"
	_, err = searchOptions(searchCmd, "get")
	assert.Error(t, err)
}
