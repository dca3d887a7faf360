package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/corey/codeindex/internal/app"
)

var wipeForce bool

var wipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete the persisted index",
	Long:  "Deletes the project's index database and JSON index. The config file and grammars are kept.",
	Args:  cobra.NoArgs,
	RunE:  runWipe,
}

func init() {
	wipeCmd.Flags().BoolVar(&wipeForce, "force", false, "Skip confirmation prompt")
}

func runWipe(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	paths := app.NewPaths(root)
	if !exists(paths.DB) && !exists(paths.JSON) && !exists(paths.DB+".corrupt") {
		fmt.Println("⚡ no index to wipe")
		return nil
	}

	if !wipeForce {
		fmt.Printf("⚠ This will delete the index for %s. Continue? [y/N] ", filepath.Base(root))
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("cancelled")
			return nil
		}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	if err := a.Wipe(); err != nil {
		a.Close()
		return err
	}
	if err := a.Close(); err != nil {
		return err
	}
	// The open store recreated an empty file; drop every format.
	if err := paths.RemoveIndexFiles(); err != nil {
		return err
	}
	fmt.Println("⚡ index wiped")
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
