package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var grammarsJSON bool

var grammarsCmd = &cobra.Command{
	Use:   "grammars",
	Short: "List available languages",
	Long: "Lists compiled-in grammars, grammars found as shared libraries in the grammar paths, " +
		"and composite formats such as Vue single-file components.",
	Args: cobra.NoArgs,
	RunE: runGrammars,
}

func init() {
	grammarsCmd.Flags().BoolVar(&grammarsJSON, "json", false, "Print as JSON")
}

func runGrammars(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	a, err := appWithoutStore(root)
	if err != nil {
		return err
	}
	defer a.Close()

	list := a.Registry.Installed()
	if grammarsJSON {
		return writeJSON(os.Stdout, list)
	}
	fmt.Println(paint(colorBold, fmt.Sprintf("⚡ %d languages", len(list))))
	for _, g := range list {
		fmt.Printf("  %-14s %s\n", g.Name, paint(colorGray, g.Source))
	}
	return nil
}
