// Package sqlite exports a ProjectIndex into a SQLite database so that
// collaborators can query symbols and references with plain SQL. The export
// is a snapshot: every run drops and rebuilds the tables in one transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // sqlite driver for database/sql

	"github.com/corey/codeindex/internal/ports"
)

// Summary describes one export run.
type Summary struct {
	ID         string
	Path       string
	Files      int
	Symbols    int
	References int
	Imports    int
	Exports    int
	ExportedAt time.Time
}

var schema = []string{
	`DROP TABLE IF EXISTS export_meta`,
	`DROP TABLE IF EXISTS refs`,
	`DROP TABLE IF EXISTS imports`,
	`DROP TABLE IF EXISTS exports`,
	`DROP TABLE IF EXISTS symbols`,
	`DROP TABLE IF EXISTS files`,
	`CREATE TABLE export_meta (
		id TEXT PRIMARY KEY,
		project_path TEXT NOT NULL,
		index_version INTEGER NOT NULL,
		last_indexed TEXT,
		exported_at TEXT NOT NULL
	)`,
	`CREATE TABLE files (
		path TEXT PRIMARY KEY,
		language TEXT NOT NULL,
		hash TEXT NOT NULL,
		last_modified TEXT
	)`,
	`CREATE TABLE symbols (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL REFERENCES files(path),
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		parent TEXT,
		line_start INTEGER NOT NULL,
		col_start INTEGER NOT NULL,
		line_end INTEGER NOT NULL,
		col_end INTEGER NOT NULL,
		signature TEXT,
		documentation TEXT,
		exported INTEGER NOT NULL,
		visibility TEXT,
		extends TEXT,
		implements TEXT
	)`,
	`CREATE TABLE refs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL REFERENCES files(path),
		symbol TEXT NOT NULL,
		kind TEXT NOT NULL,
		line INTEGER NOT NULL,
		col INTEGER NOT NULL,
		context TEXT
	)`,
	`CREATE TABLE imports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL REFERENCES files(path),
		source TEXT NOT NULL,
		kind TEXT NOT NULL,
		specifiers TEXT,
		line INTEGER NOT NULL
	)`,
	`CREATE TABLE exports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		file_path TEXT NOT NULL REFERENCES files(path),
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		source TEXT,
		line INTEGER NOT NULL
	)`,
	`CREATE INDEX idx_symbols_name ON symbols(name)`,
	`CREATE INDEX idx_refs_symbol ON refs(symbol)`,
	`CREATE INDEX idx_imports_source ON imports(source)`,
}

// Export writes idx into the SQLite database at path, replacing any earlier
// export there.
func Export(ctx context.Context, path string, idx *ports.ProjectIndex) (*Summary, error) {
	if idx == nil {
		return nil, fmt.Errorf("nil index")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	for _, p := range []string{"PRAGMA journal_mode=WAL;", "PRAGMA foreign_keys=ON;"} {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return nil, fmt.Errorf("apply pragma %s: %w", p, err)
		}
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	sum := &Summary{ID: uuid.NewString(), Path: path, ExportedAt: time.Now().UTC()}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO export_meta(id, project_path, index_version, last_indexed, exported_at) VALUES(?, ?, ?, ?, ?);`,
		sum.ID, idx.ProjectPath, idx.Version, formatTime(idx.LastIndexed), sum.ExportedAt.Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("insert meta: %w", err)
	}

	w, err := prepare(ctx, tx)
	if err != nil {
		return nil, err
	}
	defer w.close()

	for _, p := range sortedPaths(idx) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := w.file(ctx, idx.Files[p], sum); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return sum, nil
}

// writer holds the prepared insert statements of one export transaction.
type writer struct {
	files, symbols, refs, imports, exports *sql.Stmt
}

func prepare(ctx context.Context, tx *sql.Tx) (*writer, error) {
	w := &writer{}
	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&w.files, `INSERT INTO files(path, language, hash, last_modified) VALUES(?, ?, ?, ?);`},
		{&w.symbols, `INSERT INTO symbols(file_path, name, kind, parent, line_start, col_start, line_end, col_end, signature, documentation, exported, visibility, extends, implements) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`},
		{&w.refs, `INSERT INTO refs(file_path, symbol, kind, line, col, context) VALUES(?, ?, ?, ?, ?, ?);`},
		{&w.imports, `INSERT INTO imports(file_path, source, kind, specifiers, line) VALUES(?, ?, ?, ?, ?);`},
		{&w.exports, `INSERT INTO exports(file_path, name, kind, source, line) VALUES(?, ?, ?, ?, ?);`},
	}
	for _, s := range stmts {
		stmt, err := tx.PrepareContext(ctx, s.query)
		if err != nil {
			w.close()
			return nil, err
		}
		*s.dst = stmt
	}
	return w, nil
}

func (w *writer) close() {
	for _, s := range []*sql.Stmt{w.files, w.symbols, w.refs, w.imports, w.exports} {
		if s != nil {
			_ = s.Close()
		}
	}
}

func (w *writer) file(ctx context.Context, fi *ports.FileIndex, sum *Summary) error {
	if _, err := w.files.ExecContext(ctx, fi.File, fi.Language, fi.Hash, formatTime(fi.LastModified)); err != nil {
		return fmt.Errorf("insert file %s: %w", fi.File, err)
	}
	sum.Files++

	for _, s := range fi.Symbols {
		if _, err := w.symbols.ExecContext(ctx, fi.File, s.Name, string(s.Kind), nullable(s.Parent),
			s.Range.Start.Line, s.Range.Start.Column, s.Range.End.Line, s.Range.End.Column,
			nullable(s.Signature), nullable(s.Documentation), s.Exported, nullable(s.Visibility),
			nullable(s.Extends), nullable(strings.Join(s.Implements, ","))); err != nil {
			return fmt.Errorf("insert symbol %s in %s: %w", s.Name, fi.File, err)
		}
		sum.Symbols++
	}
	for _, r := range fi.References {
		if _, err := w.refs.ExecContext(ctx, fi.File, r.Symbol, string(r.Kind),
			r.Range.Start.Line, r.Range.Start.Column, nullable(r.Context)); err != nil {
			return fmt.Errorf("insert reference %s in %s: %w", r.Symbol, fi.File, err)
		}
		sum.References++
	}
	for _, im := range fi.Imports {
		if _, err := w.imports.ExecContext(ctx, fi.File, im.Source, string(im.Kind),
			nullable(strings.Join(im.Specifiers, ",")), im.Range.Start.Line); err != nil {
			return fmt.Errorf("insert import %s in %s: %w", im.Source, fi.File, err)
		}
		sum.Imports++
	}
	for _, ex := range fi.Exports {
		if _, err := w.exports.ExecContext(ctx, fi.File, ex.Name, string(ex.Kind),
			nullable(ex.Source), ex.Range.Start.Line); err != nil {
			return fmt.Errorf("insert export %s in %s: %w", ex.Name, fi.File, err)
		}
		sum.Exports++
	}
	return nil
}

func sortedPaths(idx *ports.ProjectIndex) []string {
	paths := make([]string, 0, len(idx.Files))
	for p := range idx.Files {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
