// Package ahocorasick finds a fixed set of keywords in source text in one
// pass, using github.com/petar-dambovaliev/aho-corasick.
package ahocorasick

import (
	aho "github.com/petar-dambovaliev/aho-corasick"
)

// Match is one keyword occurrence. Start and End are byte offsets
// (End exclusive).
type Match struct {
	Keyword string
	Start   int
	End     int
}

// Scanner holds a compiled automaton. It is safe for concurrent use.
type Scanner struct {
	automaton aho.AhoCorasick
	keywords  []string
}

// New compiles a scanner for keywords.
func New(keywords []string) *Scanner {
	kw := append([]string(nil), keywords...)
	builder := aho.NewAhoCorasickBuilder(aho.Opts{DFA: true})
	return &Scanner{
		automaton: builder.Build(kw),
		keywords:  kw,
	}
}

// Keywords returns the keywords the scanner was built with.
func (s *Scanner) Keywords() []string {
	return append([]string(nil), s.keywords...)
}

// Find returns every occurrence, overlapping ones included, ordered by end
// offset.
func (s *Scanner) Find(content []byte) []Match {
	var out []Match
	iter := s.automaton.IterOverlappingByte(content)
	for m := iter.Next(); m != nil; m = iter.Next() {
		out = append(out, Match{
			Keyword: s.keywords[m.Pattern()],
			Start:   m.Start(),
			End:     m.End(),
		})
	}
	return out
}

// FindWords is Find limited to whole identifiers: "defineProps" matches in
// "defineProps(" but not in "mydefineProps" or "defineProps2".
func (s *Scanner) FindWords(content []byte) []Match {
	all := s.Find(content)
	out := all[:0]
	for _, m := range all {
		if m.Start > 0 && identByte(content[m.Start-1]) {
			continue
		}
		if m.End < len(content) && identByte(content[m.End]) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func identByte(b byte) bool {
	return b == '_' || b == '$' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}
