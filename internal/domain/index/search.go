package index

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/corey/codeindex/internal/ports"
)

// DefaultSearchLimit caps results when SearchOptions.Limit is zero.
const DefaultSearchLimit = 50

// Score tiers. A case-insensitive hit scores just below its case-sensitive
// counterpart.
const (
	scoreExact     = 100
	scorePrefix    = 80
	scoreSubstring = 60
	scoreTokens    = 50
	scoreFuzzyMax  = 40
	scoreFold      = 10 // case-insensitive exact
	scoreFoldPart  = 5  // case-insensitive prefix/substring
)

// SearchOptions selects and ranks symbols. Zero-valued filters match
// everything.
type SearchOptions struct {
	Query    string
	Kind     ports.SymbolKind
	Language string
	// File is a project-relative path, directory or doublestar glob.
	File     string
	Exported *bool
	Limit    int
	// Fuzzy admits subsequence matches at the lowest tier.
	Fuzzy bool
	// Regex treats Query as a regular expression over names. Matches are
	// not ranked.
	Regex bool
}

// ScoredSymbol is a search hit.
type ScoredSymbol struct {
	ports.Symbol
	Score int `json:"score"`
}

// Search filters the symbol set and ranks it against opts.Query. Results
// are ordered by score, then shorter name, name, file and line. An empty
// query returns the filtered set in name order.
func (m *Manager) Search(opts SearchOptions) ([]ScoredSymbol, error) {
	var re *regexp.Regexp
	if opts.Regex {
		var err error
		if re, err = regexp.Compile(opts.Query); err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", opts.Query, err)
		}
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	q := strings.TrimSpace(opts.Query)
	qTokens := Tokenize(q)

	m.mu.RLock()
	var hits []ScoredSymbol
	for _, p := range m.sortedPaths() {
		fi := m.idx.Files[p]
		if opts.Language != "" && fi.Language != opts.Language {
			continue
		}
		if opts.File != "" && !fileMatches(opts.File, p) {
			continue
		}
		for _, s := range fi.Symbols {
			if opts.Kind != "" && s.Kind != opts.Kind {
				continue
			}
			if opts.Exported != nil && s.Exported != *opts.Exported {
				continue
			}
			var score int
			switch {
			case re != nil:
				if re.MatchString(s.Name) {
					score = 1
				}
			case q == "":
				score = 1
			default:
				score = scoreName(q, qTokens, s.Name, opts.Fuzzy)
			}
			if score > 0 {
				hits = append(hits, ScoredSymbol{Symbol: s, Score: score})
			}
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		a, b := hits[i], hits[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Name) != len(b.Name) {
			return len(a.Name) < len(b.Name)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		if a.File != b.File {
			return a.File < b.File
		}
		return a.Range.Start.Line < b.Range.Start.Line
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func fileMatches(filter, path string) bool {
	filter = strings.TrimPrefix(filter, "./")
	if path == filter || strings.HasPrefix(path, strings.TrimSuffix(filter, "/")+"/") {
		return true
	}
	ok, err := doublestar.Match(filter, path)
	return err == nil && ok
}

// scoreName ranks name against query q; 0 means no match.
func scoreName(q string, qTokens []string, name string, fuzzy bool) int {
	if name == q {
		return scoreExact
	}
	lq, ln := strings.ToLower(q), strings.ToLower(name)
	switch {
	case ln == lq:
		return scoreExact - scoreFold
	case strings.HasPrefix(name, q):
		return scorePrefix
	case strings.HasPrefix(ln, lq):
		return scorePrefix - scoreFoldPart
	case strings.Contains(name, q):
		return scoreSubstring
	case strings.Contains(ln, lq):
		return scoreSubstring - scoreFoldPart
	case tokensMatch(qTokens, Tokenize(name)):
		return scoreTokens
	}
	if fuzzy && isSubsequence(lq, ln) {
		return 10 + (scoreFuzzyMax-10)*len(lq)/len(ln)
	}
	return 0
}

// tokensMatch reports whether every query token prefixes some name token,
// so "user tok" finds getUserToken.
func tokensMatch(query, name []string) bool {
	if len(query) == 0 || len(name) == 0 {
		return false
	}
	for _, qt := range query {
		found := false
		for _, nt := range name {
			if strings.HasPrefix(nt, qt) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// isSubsequence reports whether the bytes of q appear in s in order.
func isSubsequence(q, s string) bool {
	if q == "" {
		return false
	}
	i := 0
	for j := 0; j < len(s) && i < len(q); j++ {
		if s[j] == q[i] {
			i++
		}
	}
	return i == len(q)
}
