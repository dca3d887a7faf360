package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/corey/codeindex/internal/domain/index"
	"github.com/corey/codeindex/internal/ports"
)

// ANSI color codes for terminal output.
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorCyan   = "\033[36m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
	colorGray   = "\033[90m"
)

// useColor is decided once: color only when stdout is a terminal and
// NO_COLOR is unset.
var useColor = os.Getenv("NO_COLOR") == "" &&
	(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))

// paint wraps s in an ANSI color when color output is on.
func paint(color, s string) string {
	if !useColor {
		return s
	}
	return color + s + colorReset
}

// writeJSON prints v as indented JSON.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// elapsed formats a duration for result headers.
func elapsed(d time.Duration) string {
	if d < time.Millisecond {
		return d.Round(time.Microsecond).String()
	}
	return d.Round(time.Millisecond).String()
}

// hitLine renders one symbol as file:scope[start-end]:line kind.
func hitLine(s ports.Symbol) string {
	rest := strings.TrimPrefix(index.FormatHit(s), s.File)
	if i := strings.LastIndexByte(rest, ' '); i >= 0 {
		rest = rest[:i] + " " + paint(colorGray, rest[i+1:])
	}
	return paint(colorCyan, s.File) + rest
}

// formatSymbols formats a symbol list under a ⚡ header.
//
//	⚡ 3 symbols │ 2 files │ 1ms
//	  src/app.ts:App.start()[4-12]:5 method
func formatSymbols(syms []ports.Symbol, noun string, took time.Duration) string {
	files := make(map[string]struct{})
	for _, s := range syms {
		files[s.File] = struct{}{}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s │ %d files │ %s\n",
		paint(colorBold, fmt.Sprintf("⚡ %d %s", len(syms), noun)), len(files), elapsed(took))
	for _, s := range syms {
		sb.WriteString("  " + hitLine(s) + "\n")
	}
	return sb.String()
}

// formatHits formats ranked search results; scores are shown with --verbose.
func formatHits(hits []index.ScoredSymbol, took time.Duration, showScore bool) string {
	files := make(map[string]struct{})
	for _, h := range hits {
		files[h.File] = struct{}{}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s │ %d files │ %s\n",
		paint(colorBold, fmt.Sprintf("⚡ %d hits", len(hits))), len(files), elapsed(took))
	for _, h := range hits {
		sb.WriteString("  " + hitLine(h.Symbol))
		if showScore {
			sb.WriteString("  " + paint(colorGray, fmt.Sprintf("(%d)", h.Score)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatRefs formats FindReferences output: definitions first, then use
// sites as file:line:col kind context.
func formatRefs(name string, res index.ReferenceResult, took time.Duration) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s │ %d definitions │ %s\n",
		paint(colorBold, fmt.Sprintf("⚡ %d references to %s", res.Total, name)), len(res.Definitions), elapsed(took))
	for _, d := range res.Definitions {
		sb.WriteString("  " + paint(colorGreen, "def") + " " + hitLine(d) + "\n")
	}
	for _, r := range res.References {
		fmt.Fprintf(&sb, "  %s:%d:%d %s", paint(colorCyan, r.File), r.Range.Start.Line, r.Range.Start.Column, r.Kind)
		if r.Context != "" {
			sb.WriteString("  " + paint(colorGray, r.Context))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatIndexResult summarizes an index run.
//
//	⚡ indexed 12 │ unchanged 30 │ removed 1 │ 85ms
//	  ✗ src/broken.py: parse failed
func formatIndexResult(res *index.IndexResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s │ unchanged %d │ removed %d │ %s\n",
		paint(colorBold, fmt.Sprintf("⚡ indexed %d", res.Indexed)), res.Skipped, res.Removed, elapsed(res.Duration))
	for _, fe := range res.Errors {
		fmt.Fprintf(&sb, "  %s %s: %v\n", paint(colorRed, "✗"), fe.Path, fe.Err)
	}
	return sb.String()
}

// formatCallGraph lists edges as caller → callee (count).
func formatCallGraph(g index.CallGraph) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s │ %d edges\n", paint(colorBold, fmt.Sprintf("⚡ %d nodes", len(g.Nodes))), len(g.Edges))
	for _, e := range g.Edges {
		fmt.Fprintf(&sb, "  %s → %s", paint(colorCyan, e.From), e.To)
		if e.Count > 1 {
			sb.WriteString(" " + paint(colorGray, fmt.Sprintf("×%d", e.Count)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// sortedCounts renders a count map as "a 3, b 1" in descending count order.
func sortedCounts[K ~string](m map[K]int) string {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if m[keys[i]] != m[keys[j]] {
			return m[keys[i]] > m[keys[j]]
		}
		return keys[i] < keys[j]
	})
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %d", k, m[k])
	}
	return strings.Join(parts, ", ")
}
