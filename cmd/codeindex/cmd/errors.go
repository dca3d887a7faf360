package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/corey/codeindex/internal/adapters/bbolt"
	"github.com/corey/codeindex/internal/config"
	"github.com/corey/codeindex/internal/domain/index"
)

// explain turns the errors a user can act on into guidance. Anything else
// is printed as is.
func explain(err error) string {
	switch {
	case errors.Is(err, bbolt.ErrLocked):
		return diagnoseDBLock()
	case errors.Is(err, index.ErrIndexBusy):
		return "an index run is already in progress in this process\n" +
			"  → wait for it to finish, then retry"
	case errors.Is(err, config.ErrInvalidConfig):
		root, _ := projectRoot()
		return fmt.Sprintf("%v\n"+
			"  → fix %s\n"+
			"  → or delete it to fall back to defaults", err, config.PathFor(root))
	case errors.Is(err, context.Canceled):
		return "interrupted; files indexed so far were saved"
	}
	return err.Error()
}

// diagnoseDBLock explains a bbolt lock timeout. The usual holder is a
// watcher left running on the same project.
func diagnoseDBLock() string {
	root, _ := projectRoot()
	return fmt.Sprintf("index database is locked by another process\n"+
		"  → a watcher may be running:  codeindex watch --root %s\n"+
		"  → find the process:          ps aux | grep 'codeindex'\n"+
		"  → stop it, then retry your command", root)
}
