package cmd

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/corey/codeindex/internal/app"
	"github.com/corey/codeindex/internal/config"
	"github.com/corey/codeindex/internal/ports"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show index statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Print the counters as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	st := a.Manager.GetStats()
	if statsJSON {
		return writeJSON(os.Stdout, st)
	}
	fmt.Print(formatStats(a, st))
	return nil
}

func formatStats(a *app.App, st ports.IndexStats) string {
	last := "never"
	if t := a.Manager.LastIndexed(); !t.IsZero() {
		last = humanize.Time(t)
	}
	size := "-"
	storePath := a.Paths.DB
	if a.Config.Storage == config.StorageJSON {
		storePath = a.Paths.JSON
	}
	if fi, err := os.Stat(storePath); err == nil {
		size = humanize.Bytes(uint64(fi.Size()))
	}

	out := fmt.Sprintf("%s\n", paint(colorBold, "⚡ codeindex stats"))
	out += fmt.Sprintf("  Files:       %s\n", humanize.Comma(int64(st.TotalFiles)))
	out += fmt.Sprintf("  Symbols:     %s\n", humanize.Comma(int64(st.TotalSymbols)))
	out += fmt.Sprintf("  References:  %s\n", humanize.Comma(int64(st.TotalReferences)))
	out += fmt.Sprintf("  Imports:     %s\n", humanize.Comma(int64(st.TotalImports)))
	out += fmt.Sprintf("  Exports:     %s\n", humanize.Comma(int64(st.TotalExports)))
	if len(st.ByLanguage) > 0 {
		out += fmt.Sprintf("  Languages:   %s\n", sortedCounts(st.ByLanguage))
	}
	if len(st.ByKind) > 0 {
		out += fmt.Sprintf("  Kinds:       %s\n", sortedCounts(st.ByKind))
	}
	out += fmt.Sprintf("  Indexed:     %s\n", last)
	out += fmt.Sprintf("  Store:       %s (%s, %s)\n", storePath, a.Config.Storage, size)
	return out
}
