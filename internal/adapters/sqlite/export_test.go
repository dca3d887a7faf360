package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corey/codeindex/internal/ports"
)

func exportFixture() *ports.ProjectIndex {
	idx := ports.NewProjectIndex("/work/shop")
	at := func(line int) ports.Range {
		return ports.Range{Start: ports.Position{Line: line}, End: ports.Position{Line: line, Column: 10}}
	}
	idx.Files["src/cart.ts"] = &ports.FileIndex{
		File:     "src/cart.ts",
		Language: "typescript",
		Hash:     "00000000000000aa",
		Symbols: []ports.Symbol{
			{Name: "Cart", Kind: ports.KindClass, Range: at(3), Exported: true, Implements: []string{"Store", "Iterable"}},
			{Name: "total", Kind: ports.KindMethod, Range: at(5), Parent: "Cart", Visibility: "public"},
		},
		Imports:    []ports.Import{{Source: "./money", Kind: ports.ImportNamed, Specifiers: []string{"sum"}, Range: at(1)}},
		Exports:    []ports.Export{{Name: "Cart", Kind: ports.ExportNamed, Range: at(3)}},
		References: []ports.Reference{{Symbol: "sum", Kind: ports.RefCall, Range: at(6), Context: "return sum(this.items);"}},
	}
	idx.Files["src/money.ts"] = &ports.FileIndex{
		File:     "src/money.ts",
		Language: "typescript",
		Hash:     "00000000000000bb",
		Symbols:  []ports.Symbol{{Name: "sum", Kind: ports.KindFunction, Range: at(1), Exported: true}},
	}
	return idx
}

func TestExport_WritesTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "index.sqlite")
	sum, err := Export(context.Background(), path, exportFixture())
	require.NoError(t, err)

	assert.NotEmpty(t, sum.ID)
	assert.Equal(t, 2, sum.Files)
	assert.Equal(t, 3, sum.Symbols)
	assert.Equal(t, 1, sum.References)
	assert.Equal(t, 1, sum.Imports)
	assert.Equal(t, 1, sum.Exports)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var file string
	var line int
	require.NoError(t, db.QueryRow(
		`SELECT s.file_path, s.line_start FROM refs r JOIN symbols s ON s.name = r.symbol WHERE r.kind = 'call'`,
	).Scan(&file, &line))
	assert.Equal(t, "src/money.ts", file)
	assert.Equal(t, 1, line)

	var impl sql.NullString
	require.NoError(t, db.QueryRow(`SELECT implements FROM symbols WHERE name = 'Cart'`).Scan(&impl))
	assert.Equal(t, "Store,Iterable", impl.String)

	var parent sql.NullString
	require.NoError(t, db.QueryRow(`SELECT parent FROM symbols WHERE name = 'Cart'`).Scan(&parent))
	assert.False(t, parent.Valid, "empty strings are stored as NULL")
}

func TestExport_ReplacesPreviousExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.sqlite")
	first, err := Export(context.Background(), path, exportFixture())
	require.NoError(t, err)

	smaller := exportFixture()
	delete(smaller.Files, "src/cart.ts")
	second, err := Export(context.Background(), path, smaller)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM symbols`).Scan(&n))
	assert.Equal(t, 1, n)
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM export_meta`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Export(ctx, filepath.Join(t.TempDir(), "x.sqlite"), exportFixture())
	assert.Error(t, err)
}
