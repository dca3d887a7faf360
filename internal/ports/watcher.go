package ports

// Watcher reports changed files under a project root until stopped.
// Implementations debounce bursts of events per path and skip excluded
// paths, so each callback is one file (or removed directory) worth
// re-indexing.
type Watcher interface {
	// Watch registers root recursively and returns once watching has
	// started. onChange receives absolute paths from any goroutine.
	Watch(root string, onChange func(absPath string)) error

	// Stop ends watching. No callback fires after it returns. Idempotent.
	Stop() error
}
