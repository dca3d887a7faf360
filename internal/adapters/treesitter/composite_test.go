package treesitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/codeindex/internal/ports"
)

func TestScriptRegions_LangAttribute(t *testing.T) {
	doc := []byte(`<template><div/></template>
<script>const a = 1</script>
<script setup lang="ts">const b: number = 2</script>
<script lang='tsx'>const c = <A/></script>
`)
	regions := scriptRegions(doc)
	require.Len(t, regions, 3)
	assert.Equal(t, "javascript", regions[0].lang)
	assert.Equal(t, "typescript", regions[1].lang)
	assert.Equal(t, "tsx", regions[2].lang)
	assert.Equal(t, "const b: number = 2", string(regions[1].text))
	assert.Equal(t, strings.Index(string(doc), "const b"), regions[1].offset)
}

func TestLineIndex_Position(t *testing.T) {
	doc := []byte("ab\ncd\n\nef")
	idx := newLineIndex(doc)

	assert.Equal(t, ports.Position{Line: 1, Column: 0, Offset: 0}, idx.position(0))
	assert.Equal(t, ports.Position{Line: 2, Column: 1, Offset: 4}, idx.position(4))
	assert.Equal(t, ports.Position{Line: 3, Column: 0, Offset: 6}, idx.position(6))
	assert.Equal(t, ports.Position{Line: 4, Column: 2, Offset: 9}, idx.position(9))
}

func TestShifter_ColumnsOnlyOnFirstLine(t *testing.T) {
	doc := []byte("l1\nl2\n<script>x\ny</script>")
	off := strings.Index(string(doc), "x")
	sh := newShifter(newLineIndex(doc), off)

	first := sh.pos(ports.Position{Line: 1, Column: 0, Offset: 0})
	assert.Equal(t, ports.Position{Line: 3, Column: 8, Offset: off}, first)

	second := sh.pos(ports.Position{Line: 2, Column: 0, Offset: 2})
	assert.Equal(t, ports.Position{Line: 4, Column: 0, Offset: off + 2}, second)
}

func TestMarkupReferences(t *testing.T) {
	doc := []byte(`<template>
  <MyButton @click="save" v-on:hover="peek" @submit="a + b" />
  <div on:click={greet}></div>
</template>
<script>
const x = <Hidden />
</script>
<style>.Red { color: red }</style>
`)
	refs := markupReferences("Form.vue", doc, newLineIndex(doc))

	var got []string
	for _, r := range refs {
		got = append(got, string(r.Kind)+":"+r.Symbol)
	}
	assert.Equal(t, []string{
		"component-usage:MyButton",
		"call:save",
		"call:peek",
		"call:greet",
	}, got)
	assert.Equal(t, 2, refs[0].Range.Start.Line)
	assert.Equal(t, 3, refs[0].Range.Start.Column)
}

func TestMaskBlocks_KeepsOffsets(t *testing.T) {
	doc := []byte("<a>\n<script>\nx\n</script>\n<b>")
	masked := maskBlocks(doc)
	require.Len(t, masked, len(doc))
	assert.Equal(t, strings.Count(string(doc), "\n"), strings.Count(string(masked), "\n"))
	assert.NotContains(t, string(masked), "script")
	assert.True(t, strings.HasPrefix(string(masked), "<a>"))
	assert.True(t, strings.HasSuffix(string(masked), "<b>"))
}

func TestMacroCall(t *testing.T) {
	tests := []struct {
		src  string
		want bool
	}{
		{"defineProps()", true},
		{"defineProps<{ a: string }>()", true},
		{"defineEmits (['x'])", true},
		{"defineProps\n  ()", true},
		{"defineProps } from 'vue'", false},
		{"defineProps, defineEmits }", false},
		{"defineProps", false},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			end := strings.IndexAny(tt.src, " ,<(\n")
			if end < 0 {
				end = len(tt.src)
			}
			assert.Equal(t, tt.want, macroCall([]byte(tt.src), end))
		})
	}
}
