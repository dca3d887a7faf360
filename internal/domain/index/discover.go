package index

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/corey/codeindex/internal/ports"
)

// candidate is a file found by discovery.
type candidate struct {
	rel  string // slash-separated, relative to the project root
	abs  string
	size int64
}

// matcher applies the include/exclude globs of an IndexConfig.
type matcher struct {
	include []string
	exclude []string
	maxSize int64
}

func newMatcher(cfg ports.IndexConfig) matcher {
	inc := cfg.Include
	if len(inc) == 0 {
		inc = []string{"**/*"}
	}
	return matcher{include: inc, exclude: cfg.Exclude, maxSize: cfg.MaxFileSize}
}

func matchAny(globs []string, rel string) bool {
	for _, g := range globs {
		if ok, err := doublestar.Match(g, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// excludedDir reports whether everything below dir is excluded, probing a
// direct child and a nested one so "src/*" does not prune "src".
func (m matcher) excludedDir(rel string) bool {
	return matchAny(m.exclude, rel+"/_") && matchAny(m.exclude, rel+"/_/_")
}

// includes reports whether a file path is selected by the globs.
func (m matcher) includes(rel string) bool {
	return matchAny(m.include, rel) && !matchAny(m.exclude, rel)
}

// discover walks root and returns the files selected by m that the parser
// supports, sorted by path. Unreadable entries and symlinked directories are
// skipped.
func discover(root string, m matcher, supports func(string) bool) ([]candidate, error) {
	var files []candidate
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if m.excludedDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil || target.IsDir() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}
		if !m.includes(rel) || !supports(rel) {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return nil
		}
		if m.maxSize > 0 && info.Size() > m.maxSize {
			return nil
		}
		files = append(files, candidate{rel: rel, abs: path, size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(files, func(a, b candidate) int {
		switch {
		case a.rel < b.rel:
			return -1
		case a.rel > b.rel:
			return 1
		}
		return 0
	})
	return files, nil
}

// Excluded reports whether the exclude globs of cfg reject rel, a
// slash-separated path relative to the project root. For a directory it
// reports whether everything below it is excluded.
func Excluded(cfg ports.IndexConfig, rel string, isDir bool) bool {
	m := newMatcher(cfg)
	if isDir {
		return m.excludedDir(rel)
	}
	return matchAny(m.exclude, rel)
}
