// codeindex builds and queries a symbol index of a source tree.
package main

import (
	"os"

	"github.com/corey/codeindex/cmd/codeindex/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
