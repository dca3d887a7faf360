package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaths(t *testing.T) {
	p := NewPaths("/project")
	assert.Equal(t, filepath.Join("/project", ".codeindex"), p.Root)
	assert.Equal(t, filepath.Join("/project", ".codeindex", "config.jsonc"), p.Config)
	assert.Equal(t, filepath.Join("/project", ".codeindex", "index.db"), p.DB)
	assert.Equal(t, filepath.Join("/project", ".codeindex", "index.json"), p.JSON)
	assert.Equal(t, filepath.Join("/project", ".codeindex", "index.sqlite"), p.SQLite)
	assert.Equal(t, filepath.Join("/project", ".codeindex", "grammars"), p.Grammars)
}

func TestEnsureDirs(t *testing.T) {
	p := NewPaths(t.TempDir())

	require.NoError(t, p.EnsureDirs())
	for _, d := range []string{p.Root, p.Grammars} {
		info, err := os.Stat(d)
		require.NoError(t, err, "dir %s should exist", d)
		assert.True(t, info.IsDir())
	}
	require.NoError(t, p.EnsureDirs(), "idempotent")
}

func TestRemoveIndexFiles(t *testing.T) {
	p := NewPaths(t.TempDir())
	require.NoError(t, p.EnsureDirs())
	for _, f := range []string{p.DB, p.DB + ".corrupt", p.JSON} {
		require.NoError(t, os.WriteFile(f, []byte("x"), 0644))
	}
	keep := filepath.Join(p.Root, "config.jsonc")
	require.NoError(t, os.WriteFile(keep, []byte("{}"), 0644))

	require.NoError(t, p.RemoveIndexFiles())
	for _, f := range []string{p.DB, p.DB + ".corrupt", p.JSON} {
		assert.NoFileExists(t, f)
	}
	assert.FileExists(t, keep)
	require.NoError(t, p.RemoveIndexFiles(), "missing files are fine")
}
