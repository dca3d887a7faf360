// Package app wires the grammar registry, parser engine, storage backend and
// index manager for one project root.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/corey/codeindex/internal/adapters/bbolt"
	"github.com/corey/codeindex/internal/adapters/jsonfile"
	"github.com/corey/codeindex/internal/adapters/sqlite"
	"github.com/corey/codeindex/internal/adapters/treesitter"
	"github.com/corey/codeindex/internal/config"
	"github.com/corey/codeindex/internal/domain/index"
	"github.com/corey/codeindex/internal/ports"
)

// App is the top-level container for one project.
type App struct {
	Root     string
	Paths    *Paths
	Config   *config.Config
	Registry *treesitter.Registry
	Engine   *treesitter.Engine
	Store    ports.Storage // nil when opened without storage
	Manager  *index.Manager

	log *slog.Logger
}

// Options configures New.
type Options struct {
	Root   string
	Logger *slog.Logger
	// Config replaces the project's config file when set.
	Config *config.Config
	// NoStore skips opening the index store; the index stays in memory.
	NoStore bool
}

// New loads the config, opens the store and restores the persisted index.
// A store held by another process fails fast with bbolt.ErrLocked.
func New(opts Options) (*App, error) {
	if opts.Root == "" {
		return nil, fmt.Errorf("project root required")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	cfg := opts.Config
	if cfg == nil {
		if cfg, err = config.Load(root); err != nil {
			return nil, err
		}
	}

	paths := NewPaths(root)
	grammarPaths := append(append([]string(nil), cfg.GrammarPaths...), treesitter.DefaultGrammarPaths(root)...)
	reg := treesitter.NewRegistry(grammarPaths)
	engine := treesitter.NewEngine(reg, cfg.MaxFileSize, log.With("component", "parser"))

	a := &App{
		Root:     root,
		Paths:    paths,
		Config:   cfg,
		Registry: reg,
		Engine:   engine,
		log:      log,
	}

	var store ports.Storage
	if !opts.NoStore {
		if store, err = a.openStore(); err != nil {
			reg.Close()
			return nil, err
		}
	}
	a.Store = store
	a.Manager = index.NewManager(engine, store, index.Options{
		Root:    root,
		Config:  cfg.IndexConfig(),
		Workers: cfg.Workers(),
		Logger:  log.With("component", "index"),
	})
	a.Manager.Load()
	return a, nil
}

func (a *App) openStore() (ports.Storage, error) {
	if err := a.Paths.EnsureDirs(); err != nil {
		return nil, fmt.Errorf("create %s: %w", a.Paths.Root, err)
	}
	switch a.Config.Storage {
	case config.StorageJSON:
		return jsonfile.NewStore(a.Paths.JSON), nil
	default:
		st, err := bbolt.NewStore(a.Paths.DB)
		if err != nil {
			return nil, fmt.Errorf("open store: %w", err)
		}
		if q := st.Quarantined(); q != "" {
			a.log.Warn("index database was corrupt and has been set aside", "moved_to", q)
		}
		return st, nil
	}
}

// Close releases the store and grammar handles.
func (a *App) Close() error {
	var err error
	if a.Store != nil {
		err = a.Store.Close()
	}
	a.Registry.Close()
	return err
}

// Index runs an incremental index, or a full one when full is set.
func (a *App) Index(ctx context.Context, full bool) (*index.IndexResult, error) {
	return a.Manager.IndexProject(ctx, !full)
}

// ExportSQLite writes the current index to a SQLite database at path
// (default .codeindex/index.sqlite).
func (a *App) ExportSQLite(ctx context.Context, path string) (*sqlite.Summary, error) {
	if path == "" {
		path = a.Paths.SQLite
	}
	return sqlite.Export(ctx, path, a.Manager.Snapshot())
}

// ExportJSON writes the current index as a JSON document at path.
func (a *App) ExportJSON(path string) error {
	if path == "" {
		return errors.New("export path required")
	}
	return jsonfile.NewStore(path).SaveIndex(a.Manager.ProjectID(), a.Manager.Snapshot())
}

// Wipe deletes the persisted index and clears the in-memory one.
func (a *App) Wipe() error {
	if err := a.Manager.Wipe(); err != nil {
		return err
	}
	if a.Store == nil {
		return a.Paths.RemoveIndexFiles()
	}
	return nil
}
