package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/codeindex/internal/ports"
)

func indexedManager(t *testing.T, files map[string]string) *Manager {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		writeFile(t, root, rel, body)
	}
	m := newTestManager(t, root, &lineParser{}, nil, ports.IndexConfig{})
	_, err := m.IndexProject(context.Background(), false)
	require.NoError(t, err)
	return m
}

func names(hits []ScoredSymbol) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Name
	}
	return out
}

func TestFindReferences_CrossFile(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"a.fk": "def bar\nend\n",
		"b.fk": "def main\n  call bar\nend\n",
	})

	res := m.FindReferences("bar")
	require.Len(t, res.Definitions, 1)
	assert.Equal(t, "a.fk", res.Definitions[0].File)
	require.Len(t, res.References, 1)
	assert.Equal(t, "b.fk", res.References[0].File)
	assert.Equal(t, 2, res.References[0].Range.Start.Line)
	assert.Equal(t, 2, res.Total)

	none := m.FindReferences("missing")
	assert.Empty(t, none.Definitions)
	assert.Empty(t, none.References)
	assert.Zero(t, none.Total)
}

func TestGetAllDefinitions_MultipleFiles(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"a.fk": "def init\nend\n",
		"b.fk": "def init\nend\ndef init\nend\n",
	})
	defs := m.GetAllDefinitions("init")
	require.Len(t, defs, 3)
	assert.Equal(t, "a.fk", defs[0].File)
	assert.Equal(t, 3, defs[2].Range.Start.Line)
	assert.Empty(t, m.GetAllDefinitions("Init"), "names match exactly")
}

func TestSymbolsInFileAndAll(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"a.fk":     "def one\nend\nclass Two\n",
		"sub/b.fk": "def three\nend\n",
	})
	syms := m.GetSymbolsInFile("a.fk")
	assert.Equal(t, []string{"one", "Two"}, []string{syms[0].Name, syms[1].Name})
	assert.Len(t, m.GetSymbolsInFile(m.Root()+"/sub/b.fk"), 1)
	assert.Nil(t, m.GetSymbolsInFile("nope.fk"))
	assert.Len(t, m.GetAllSymbols(), 3)
}

func TestSearch_FuzzyOrdering(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"a.fk": "def handleSubmit\nend\ndef handler\nend\ndef otherThing\nend\n",
		"b.fk": "def hand\nend\n",
	})

	hits, err := m.Search(SearchOptions{Query: "hand", Fuzzy: true})
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "hand", hits[0].Name, "exact match ranks first")
	assert.Equal(t, 100, hits[0].Score)
	assert.ElementsMatch(t, []string{"handler", "handleSubmit"}, names(hits[1:]))
	assert.Equal(t, "handler", hits[1].Name, "shorter name wins a tie")
}

func TestSearch_Tiers(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"a.fk": "def getUserToken\nend\ndef Token\nend\ndef token\nend\ndef tokenize\nend\ndef retoken\nend\ndef tkn\nend\n",
	})

	hits, err := m.Search(SearchOptions{Query: "token", Fuzzy: true})
	require.NoError(t, err)
	got := map[string]int{}
	for _, h := range hits {
		got[h.Name] = h.Score
	}
	assert.Equal(t, 100, got["token"])
	assert.Equal(t, 90, got["Token"])
	assert.Equal(t, 80, got["tokenize"])
	assert.Equal(t, 55, got["getUserToken"])
	assert.Equal(t, 60, got["retoken"])
	assert.NotContains(t, got, "tkn")
	assert.Equal(t, []string{"token", "Token", "tokenize", "retoken", "getUserToken"}, names(hits))

	hits, err = m.Search(SearchOptions{Query: "user tok"})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "getUserToken", hits[0].Name)
	assert.Equal(t, 50, hits[0].Score)
}

func TestSearch_FuzzyOnlyWhenEnabled(t *testing.T) {
	m := indexedManager(t, map[string]string{"a.fk": "def handler\nend\n"})

	hits, err := m.Search(SearchOptions{Query: "hdlr"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = m.Search(SearchOptions{Query: "hdlr", Fuzzy: true})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Greater(t, hits[0].Score, 10)
	assert.LessOrEqual(t, hits[0].Score, 40)
}

func TestSearch_Filters(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"src/a.fk":  "def Render\nend\nclass Renderer\n",
		"test/b.fk": "def render\nend\n",
	})
	yes, no := true, false

	hits, err := m.Search(SearchOptions{Query: "render", Kind: ports.KindClass})
	require.NoError(t, err)
	assert.Equal(t, []string{"Renderer"}, names(hits))

	hits, err = m.Search(SearchOptions{Query: "render", Exported: &no})
	require.NoError(t, err)
	assert.Equal(t, []string{"render"}, names(hits))

	hits, err = m.Search(SearchOptions{Query: "render", Exported: &yes, File: "src"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Render", "Renderer"}, names(hits))

	hits, err = m.Search(SearchOptions{Query: "render", File: "**/b.fk"})
	require.NoError(t, err)
	assert.Equal(t, []string{"render"}, names(hits))

	hits, err = m.Search(SearchOptions{Query: "render", Language: "python"})
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = m.Search(SearchOptions{Query: "render", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearch_Regex(t *testing.T) {
	m := indexedManager(t, map[string]string{
		"a.fk": "def useState\nend\ndef useEffect\nend\ndef reuse\nend\n",
	})

	hits, err := m.Search(SearchOptions{Query: "^use[A-Z]", Regex: true})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"useState", "useEffect"}, names(hits))
	for _, h := range hits {
		assert.Equal(t, 1, h.Score)
	}

	_, err = m.Search(SearchOptions{Query: "(", Regex: true})
	assert.Error(t, err)
}

func TestSearch_EmptyQueryListsFiltered(t *testing.T) {
	m := indexedManager(t, map[string]string{"a.fk": "def b\nend\nclass Ab\n"})
	hits, err := m.Search(SearchOptions{Kind: ports.KindFunction})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, names(hits))
}

func TestScoreName(t *testing.T) {
	tests := []struct {
		query, name string
		fuzzy       bool
		want        int
	}{
		{"login", "login", false, 100},
		{"login", "Login", false, 90},
		{"log", "logger", false, 80},
		{"Log", "logger", false, 75},
		{"gin", "login", false, 60},
		{"GIN", "login", false, 55},
		{"xyz", "login", false, 0},
		{"lgn", "login", false, 0},
		{"lgn", "login", true, 28},
	}
	for _, tt := range tests {
		t.Run(tt.query+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scoreName(tt.query, Tokenize(tt.query), tt.name, tt.fuzzy))
		})
	}
}
