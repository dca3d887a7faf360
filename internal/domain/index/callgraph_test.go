package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func edgeBetween(g CallGraph, from, to string) *CallEdge {
	for i := range g.Edges {
		if g.Edges[i].From == from && g.Edges[i].To == to {
			return &g.Edges[i]
		}
	}
	return nil
}

func TestBuildCallGraph(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"app.fk": "call setup\n" +
			"def main\n" +
			"  call helper\n" +
			"  call helper\n" +
			"  call print\n" +
			"end\n",
		"lib.fk": "def helper\n" +
			"  def inner\n" +
			"    call setup\n" +
			"  end\n" +
			"end\n" +
			"def setup\n" +
			"end\n",
	})

	g := m.BuildCallGraph()

	ids := map[string]bool{}
	for _, n := range g.Nodes {
		ids[n.ID] = true
	}
	for _, id := range []string{"app.fk#main@2", "lib.fk#helper@1", "lib.fk#inner@2", "lib.fk#setup@6", "app.fk#<module>"} {
		assert.True(t, ids[id], "missing node %s", id)
	}

	e := edgeBetween(g, "app.fk#main@2", "lib.fk#helper@1")
	require.NotNil(t, e)
	assert.Equal(t, 2, e.Count)
	require.Len(t, e.Locations, 2)
	assert.Equal(t, 3, e.Locations[0].Line)
	assert.Equal(t, 4, e.Locations[1].Line)
	assert.Equal(t, 7, e.Locations[0].Column)

	mod := edgeBetween(g, "app.fk#<module>", "lib.fk#setup@6")
	require.NotNil(t, mod, "top-level calls come from the module node")
	assert.Equal(t, 1, mod.Count)

	nested := edgeBetween(g, "lib.fk#inner@2", "lib.fk#setup@6")
	require.NotNil(t, nested, "innermost enclosing function is the caller")
	assert.Nil(t, edgeBetween(g, "lib.fk#helper@1", "lib.fk#setup@6"))

	assert.Len(t, g.Edges, 3, "calls to undefined names are dropped")
}

func TestBuildCallGraph_OverloadsFanOut(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"a.fk": "def run\nend\n",
		"b.fk": "def run\nend\ndef go\n  call run\nend\n",
	})
	g := m.BuildCallGraph()
	assert.NotNil(t, edgeBetween(g, "b.fk#go@3", "a.fk#run@1"))
	assert.NotNil(t, edgeBetween(g, "b.fk#go@3", "b.fk#run@1"))
}

func TestBuildCallGraph_Empty(t *testing.T) {
	m := indexedManager(t, map[string]string{})
	g := m.BuildCallGraph()
	assert.NotNil(t, g.Nodes)
	assert.NotNil(t, g.Edges)
	assert.Empty(t, g.Edges)
}
