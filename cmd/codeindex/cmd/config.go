package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/corey/codeindex/internal/app"
	"github.com/corey/codeindex/internal/config"
)

var configInit bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show configuration",
	Long:  "Shows the project root, state paths and effective settings. --init writes a commented default config.",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configInit, "init", false, "Write .codeindex/config.jsonc if missing")
}

func runConfig(cmd *cobra.Command, args []string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	if configInit {
		path, written, err := config.WriteDefault(root)
		if err != nil {
			return err
		}
		if written {
			fmt.Printf("⚡ wrote %s\n", path)
		} else {
			fmt.Printf("⚡ %s already exists\n", path)
		}
	}

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}
	fmt.Print(formatConfig(root, app.NewPaths(root), cfg))
	return nil
}

func formatConfig(root string, p *app.Paths, cfg *config.Config) string {
	source := paint(colorYellow, "defaults (no config file)")
	if cfg.Path != "" {
		source = paint(colorGreen, cfg.Path)
	}
	grammars := "-"
	if len(cfg.GrammarPaths) > 0 {
		grammars = strings.Join(cfg.GrammarPaths, ", ")
	}

	var sb strings.Builder
	sb.WriteString(paint(colorBold, "⚡ codeindex config") + "\n")
	fmt.Fprintf(&sb, "  Root:         %s\n", root)
	fmt.Fprintf(&sb, "  Config:       %s\n", source)
	fmt.Fprintf(&sb, "  Storage:      %s\n", cfg.Storage)
	fmt.Fprintf(&sb, "  DB:           %s\n", p.DB)
	fmt.Fprintf(&sb, "  JSON:         %s\n", p.JSON)
	fmt.Fprintf(&sb, "  Grammars:     %s\n", p.Grammars)
	fmt.Fprintf(&sb, "  Extra paths:  %s\n", grammars)
	fmt.Fprintf(&sb, "  Include:      %s\n", strings.Join(cfg.Include, " "))
	fmt.Fprintf(&sb, "  Exclude:      %d globs\n", len(cfg.Exclude))
	fmt.Fprintf(&sb, "  Max size:     %s\n", humanize.IBytes(uint64(cfg.MaxFileSize)))
	fmt.Fprintf(&sb, "  Workers:      %d\n", cfg.Workers())
	fmt.Fprintf(&sb, "  Debounce:     %s\n", cfg.WatchDebounce())
	return sb.String()
}
