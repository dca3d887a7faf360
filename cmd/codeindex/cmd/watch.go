package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/corey/codeindex/internal/ports"
)

var watchNoInitial bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep the index current as files change",
	Long: "Runs an incremental index, then re-indexes files as they are created, " +
		"modified or deleted until interrupted. Holds the index lock while running.",
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchNoInitial, "no-initial", false, "Skip the initial incremental index")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !watchNoInitial {
		res, err := a.Index(ctx, false)
		if res != nil {
			fmt.Print(formatIndexResult(res))
		}
		if err != nil {
			return err
		}
	}

	fmt.Printf("%s %s\n", paint(colorBold, "⚡ watching"), a.Root)
	err = a.Watch(ctx, func(rel string, fi *ports.FileIndex, err error) {
		switch {
		case err != nil:
			fmt.Printf("  %s %s: %v\n", paint(colorRed, "✗"), rel, err)
		case fi != nil:
			fmt.Printf("  %s %s (%d symbols)\n", paint(colorGreen, "↻"), paint(colorCyan, rel), len(fi.Symbols))
		default:
			fmt.Printf("  %s %s\n", paint(colorYellow, "−"), paint(colorGray, rel))
		}
	})
	if err != nil {
		return err
	}
	fmt.Println("stopped")
	return nil
}
