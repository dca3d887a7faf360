package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var callgraphJSON bool

var callgraphCmd = &cobra.Command{
	Use:   "callgraph",
	Short: "Print the project call graph",
	Long:  "Links every call site to the definitions of the called name. Top-level calls belong to a per-file <module> node.",
	Args:  cobra.NoArgs,
	RunE:  runCallgraph,
}

func init() {
	callgraphCmd.Flags().BoolVar(&callgraphJSON, "json", false, "Print nodes and edges as JSON")
}

func runCallgraph(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	g := a.Manager.BuildCallGraph()
	if callgraphJSON {
		return writeJSON(os.Stdout, g)
	}
	fmt.Print(formatCallGraph(g))
	return nil
}
