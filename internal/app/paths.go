package app

import (
	"os"
	"path/filepath"

	"github.com/corey/codeindex/internal/config"
)

// Paths holds the resolved locations under the project's .codeindex/ directory.
type Paths struct {
	Root     string // .codeindex/
	Config   string // .codeindex/config.jsonc
	DB       string // .codeindex/index.db (bbolt)
	JSON     string // .codeindex/index.json
	SQLite   string // .codeindex/index.sqlite (default export target)
	Grammars string // .codeindex/grammars/
}

// NewPaths resolves all paths for a project root.
func NewPaths(projectRoot string) *Paths {
	root := filepath.Join(projectRoot, config.StateDir)
	return &Paths{
		Root:     root,
		Config:   config.PathFor(projectRoot),
		DB:       filepath.Join(root, "index.db"),
		JSON:     filepath.Join(root, "index.json"),
		SQLite:   filepath.Join(root, "index.sqlite"),
		Grammars: filepath.Join(root, "grammars"),
	}
}

// EnsureDirs creates .codeindex/ and its grammars directory. Idempotent.
func (p *Paths) EnsureDirs() error {
	for _, d := range []string{p.Root, p.Grammars} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// RemoveIndexFiles deletes both persisted index formats and any
// quarantined copy. Missing files are not an error.
func (p *Paths) RemoveIndexFiles() error {
	for _, f := range []string{p.DB, p.DB + ".corrupt", p.JSON} {
		if err := os.Remove(f); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}
