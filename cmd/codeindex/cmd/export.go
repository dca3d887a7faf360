package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	exportSQLite string
	exportJSON   string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the index to SQLite or JSON",
	Long:  "Writes the current index to a standalone file. With no flags, exports SQLite to .codeindex/index.sqlite.",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportSQLite, "sqlite", "", "SQLite database to write")
	exportCmd.Flags().StringVar(&exportJSON, "json", "", "JSON file to write")
	exportCmd.MarkFlagsMutuallyExclusive("sqlite", "json")
}

func runExport(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Manager.GetStats().TotalFiles == 0 {
		return errors.New("index is empty (run codeindex index first)")
	}

	if exportJSON != "" {
		if err := a.ExportJSON(exportJSON); err != nil {
			return err
		}
		fmt.Printf("%s → %s\n", paint(colorBold, "⚡ exported"), exportJSON)
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	sum, err := a.ExportSQLite(ctx, exportSQLite)
	if err != nil {
		return err
	}
	fmt.Printf("%s → %s\n", paint(colorBold, "⚡ exported"), sum.Path)
	fmt.Printf("  %d files │ %d symbols │ %d references │ %d imports │ %d exports\n",
		sum.Files, sum.Symbols, sum.References, sum.Imports, sum.Exports)
	fmt.Printf("  %s\n", paint(colorGray, "export "+sum.ID))
	return nil
}
