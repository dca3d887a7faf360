package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/codeindex/internal/adapters/bbolt"
	"github.com/corey/codeindex/internal/adapters/jsonfile"
	"github.com/corey/codeindex/internal/config"
)

func TestNew_RequiresRoot(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}

func TestNew_DefaultsToBbolt(t *testing.T) {
	root := t.TempDir()
	a, err := New(Options{Root: root})
	require.NoError(t, err)
	defer a.Close()

	_, ok := a.Store.(*bbolt.Store)
	assert.True(t, ok, "default storage is bbolt")
	assert.FileExists(t, a.Paths.DB)
	assert.Equal(t, config.Default().MaxFileSize, a.Config.MaxFileSize)
}

func TestNew_JSONStorageFromConfigFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, config.StateDir), 0755))
	require.NoError(t, os.WriteFile(config.PathFor(root), []byte(`{
  // keep the index readable
  "storage": "json"
}`), 0644))

	a, err := New(Options{Root: root})
	require.NoError(t, err)
	defer a.Close()
	_, ok := a.Store.(*jsonfile.Store)
	assert.True(t, ok)
}

func TestNew_InvalidConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, config.StateDir), 0755))
	require.NoError(t, os.WriteFile(config.PathFor(root), []byte(`{"storage": "redis"}`), 0644))

	_, err := New(Options{Root: root})
	assert.True(t, errors.Is(err, config.ErrInvalidConfig), "got %v", err)
}

func TestNew_SecondOpenIsLocked(t *testing.T) {
	root := t.TempDir()
	a, err := New(Options{Root: root})
	require.NoError(t, err)
	defer a.Close()

	_, err = New(Options{Root: root})
	require.Error(t, err)
	assert.ErrorIs(t, err, bbolt.ErrLocked)
	assert.NoFileExists(t, a.Paths.DB+".corrupt", "lock contention is not corruption")
}

func TestNew_NoStore(t *testing.T) {
	root := t.TempDir()
	a, err := New(Options{Root: root, NoStore: true})
	require.NoError(t, err)
	defer a.Close()
	assert.Nil(t, a.Store)
	assert.NoDirExists(t, a.Paths.Root)
}

func TestWipe_ClearsStore(t *testing.T) {
	root := t.TempDir()
	a, err := New(Options{Root: root})
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Index(context.Background(), true)
	require.NoError(t, err)
	stored, err := a.Store.LoadIndex(a.Manager.ProjectID())
	require.NoError(t, err)
	require.NotNil(t, stored)

	require.NoError(t, a.Wipe())
	stored, err = a.Store.LoadIndex(a.Manager.ProjectID())
	require.NoError(t, err)
	assert.Nil(t, stored)
}
