//go:build !lean

package index

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/codeindex/internal/adapters/treesitter"
	"github.com/corey/codeindex/internal/ports"
)

// Indexing through the real tree-sitter engine.

func engineManager(t *testing.T, files map[string]string) *Manager {
	t.Helper()
	root := t.TempDir()
	for rel, body := range files {
		writeFile(t, root, rel, body)
	}
	reg := treesitter.NewRegistry(nil)
	t.Cleanup(reg.Close)
	m := NewManager(treesitter.NewEngine(reg, 0, nil), nil, Options{Root: root})
	_, err := m.IndexProject(context.Background(), true)
	require.NoError(t, err)
	return m
}

func TestEngine_CrossReferenceAcrossLanguages(t *testing.T) {
	m := engineManager(t, map[string]string{
		"src/a.ts":  "export function bar() {}\n",
		"src/b.ts":  "import { bar } from \"./a\";\n\nbar();\n",
		"README.md": "# not code\n",
	})

	res := m.FindReferences("bar")
	require.Len(t, res.Definitions, 1)
	assert.Equal(t, "src/a.ts", res.Definitions[0].File)
	assert.True(t, res.Definitions[0].Exported)

	var calls []ports.Reference
	for _, r := range res.References {
		if r.Kind == ports.RefCall {
			calls = append(calls, r)
		}
	}
	require.Len(t, calls, 1)
	assert.Equal(t, "src/b.ts", calls[0].File)
	assert.Equal(t, 3, calls[0].Range.Start.Line)

	st := m.GetStats()
	assert.Equal(t, 2, st.TotalFiles)
	assert.Equal(t, 2, st.ByLanguage["typescript"])
}

func TestEngine_CrossReferenceTotal(t *testing.T) {
	m := engineManager(t, map[string]string{
		"a.js": "function bar(){}\n",
		"b.js": "bar()\n",
	})

	res := m.FindReferences("bar")
	require.Len(t, res.Definitions, 1)
	assert.Equal(t, "a.js", res.Definitions[0].File)
	assert.False(t, res.Definitions[0].Exported)
	require.Len(t, res.References, 1)
	assert.Equal(t, "b.js", res.References[0].File)
	assert.Equal(t, ports.RefCall, res.References[0].Kind)
	assert.Equal(t, 2, res.Total)
}

func TestEngine_CompositeDocumentLines(t *testing.T) {
	m := engineManager(t, map[string]string{
		"ui/Counter.vue": "<template>\n" +
			"  <div>\n" +
			"    <MyButton @click=\"handleClick\" />\n" +
			"  </div>\n" +
			"</template>\n" +
			"<script>\n" +
			"const a = 1;\n" +
			"function handleClick() {}\n" +
			"</script>\n",
	})

	defs := m.GetAllDefinitions("handleClick")
	require.Len(t, defs, 1)
	assert.Equal(t, 8, defs[0].Range.Start.Line)

	comp := m.GetAllDefinitions("Counter")
	require.Len(t, comp, 1)
	assert.Equal(t, ports.KindComponent, comp[0].Kind)

	g := m.BuildCallGraph()
	assert.NotNil(t, edgeBetween(g, "ui/Counter.vue#Counter@1", "ui/Counter.vue#handleClick@8"),
		"template handlers are called from the component")
}

func TestEngine_PythonCallGraph(t *testing.T) {
	m := engineManager(t, map[string]string{
		"pkg/util.py": "def helper():\n    return 1\n",
		"pkg/main.py": "from pkg.util import helper\n\ndef run():\n    helper()\n    helper()\n\nrun()\n",
	})

	g := m.BuildCallGraph()
	e := edgeBetween(g, "pkg/main.py#run@3", "pkg/util.py#helper@1")
	require.NotNil(t, e)
	assert.Equal(t, 2, e.Count)
	assert.NotNil(t, edgeBetween(g, "pkg/main.py#<module>", "pkg/main.py#run@3"))
}
