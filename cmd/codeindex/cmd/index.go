package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	indexFull bool
	indexJSON bool
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Index the project",
	Long: "Parses every included file and saves the index under .codeindex/. " +
		"Unchanged files are skipped unless --full is given. Ctrl-C stops early and keeps what was indexed.",
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexFull, "full", false, "Re-parse every file")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "Print the result as JSON")
}

func runIndex(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := a.Index(ctx, indexFull)
	if res != nil {
		if indexJSON {
			if jerr := writeJSON(os.Stdout, res); jerr != nil {
				return jerr
			}
		} else {
			fmt.Print(formatIndexResult(res))
		}
	}
	return err
}
