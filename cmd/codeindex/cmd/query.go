package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/corey/codeindex/internal/domain/index"
	"github.com/corey/codeindex/internal/ports"
)

var (
	searchKind     string
	searchLang     string
	searchFile     string
	searchExported bool
	searchLimit    int
	searchFuzzy    bool
	searchRegex    bool
	queryJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search symbols by name",
	Long: "Ranks symbols against the query: exact, prefix, substring, then token matches. " +
		"--fuzzy adds subsequence matches; --regex treats the query as a regular expression.",
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

var defsCmd = &cobra.Command{
	Use:   "defs <name>",
	Short: "List every definition of a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runDefs,
}

var refsCmd = &cobra.Command{
	Use:   "refs <name>",
	Short: "List definitions and use sites of a name",
	Args:  cobra.ExactArgs(1),
	RunE:  runRefs,
}

var symbolsCmd = &cobra.Command{
	Use:   "symbols <file>",
	Short: "List the symbols of one file",
	Args:  cobra.ExactArgs(1),
	RunE:  runSymbols,
}

func init() {
	f := searchCmd.Flags()
	f.StringVar(&searchKind, "kind", "", "Only symbols of this kind (function, class, method, ...)")
	f.StringVar(&searchLang, "lang", "", "Only symbols from this language")
	f.StringVar(&searchFile, "file", "", "Only symbols under this path, directory or glob")
	f.BoolVar(&searchExported, "exported", false, "Only exported symbols (--exported=false for unexported)")
	f.IntVar(&searchLimit, "limit", index.DefaultSearchLimit, "Maximum results")
	f.BoolVar(&searchFuzzy, "fuzzy", false, "Include subsequence matches")
	f.BoolVar(&searchRegex, "regex", false, "Treat the query as a regular expression")

	for _, c := range []*cobra.Command{searchCmd, defsCmd, refsCmd, symbolsCmd} {
		c.Flags().BoolVar(&queryJSON, "json", false, "Print results as JSON")
	}
}

// searchOptions builds SearchOptions from the flags. --exported only
// filters when it was given explicitly.
func searchOptions(cmd *cobra.Command, query string) (index.SearchOptions, error) {
	opts := index.SearchOptions{
		Query:    query,
		Language: searchLang,
		File:     searchFile,
		Limit:    searchLimit,
		Fuzzy:    searchFuzzy,
		Regex:    searchRegex,
	}
	if searchKind != "" {
		k, err := ports.ParseSymbolKind(searchKind)
		if err != nil {
			return opts, err
		}
		opts.Kind = k
	}
	if cmd.Flags().Changed("exported") {
		exp := searchExported
		opts.Exported = &exp
	}
	return opts, nil
}

func runSearch(cmd *cobra.Command, args []string) error {
	var query string
	if len(args) == 1 {
		query = args[0]
	}
	opts, err := searchOptions(cmd, query)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	hits, err := a.Manager.Search(opts)
	if err != nil {
		return err
	}
	if queryJSON {
		return writeJSON(os.Stdout, hits)
	}
	fmt.Print(formatHits(hits, time.Since(start), verbose))
	return nil
}

func runDefs(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	defs := a.Manager.GetAllDefinitions(args[0])
	if queryJSON {
		return writeJSON(os.Stdout, defs)
	}
	fmt.Print(formatSymbols(defs, "definitions", time.Since(start)))
	return nil
}

func runRefs(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	res := a.Manager.FindReferences(args[0])
	if queryJSON {
		return writeJSON(os.Stdout, res)
	}
	fmt.Print(formatRefs(args[0], res, time.Since(start)))
	return nil
}

func runSymbols(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	start := time.Now()
	syms := a.Manager.GetSymbolsInFile(args[0])
	if syms == nil {
		return fmt.Errorf("%s is not in the index (run codeindex index first)", args[0])
	}
	if queryJSON {
		return writeJSON(os.Stdout, syms)
	}
	fmt.Print(formatSymbols(syms, "symbols", time.Since(start)))
	return nil
}
