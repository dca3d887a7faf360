package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/corey/codeindex/internal/app"
)

var (
	rootFlag string
	verbose  bool
	logJSON  bool
)

var rootCmd = &cobra.Command{
	Use:           "codeindex",
	Short:         "codeindex: polyglot source code index",
	Long:          "Parses a project with tree-sitter and answers symbol, reference and call graph queries.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and prints any error with guidance.
func Execute() error {
	err := rootCmd.ExecuteContext(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", explain(err))
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlag, "root", "", "Project root (default: current directory)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	pf.BoolVar(&logJSON, "log-json", false, "Log as JSON lines on stderr")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(defsCmd)
	rootCmd.AddCommand(refsCmd)
	rootCmd.AddCommand(symbolsCmd)
	rootCmd.AddCommand(callgraphCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(grammarsCmd)
	rootCmd.AddCommand(wipeCmd)
	rootCmd.AddCommand(configCmd)
}

// projectRoot returns --root, or the working directory.
func projectRoot() (string, error) {
	if rootFlag != "" {
		return filepath.Abs(rootFlag)
	}
	return os.Getwd()
}

// newLogger builds the stderr logger selected by --verbose and --log-json.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if logJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openApp opens the project at projectRoot with its persisted index loaded.
func openApp() (*app.App, error) {
	root, err := projectRoot()
	if err != nil {
		return nil, err
	}
	return app.New(app.Options{Root: root, Logger: newLogger()})
}

// appWithoutStore opens the project without taking the index lock, for
// commands that never read the index.
func appWithoutStore(root string) (*app.App, error) {
	return app.New(app.Options{Root: root, Logger: newLogger(), NoStore: true})
}
