package index

import (
	"regexp"
	"strings"
	"unicode"
)

// separatorRe splits qualified and snake_case names: slash, underscore,
// hyphen, dot, colon, whitespace.
var separatorRe = regexp.MustCompile(`[/_\-.:\s]+`)

// Tokenize splits a symbol name or search query into lowercase words:
// separators first, then camelCase and digit boundaries. Words shorter than
// two characters are dropped, so "getX" yields ["get"].
func Tokenize(input string) []string {
	if len(input) == 0 {
		return nil
	}

	cleaned := stripNonASCII(input)
	if len(cleaned) == 0 {
		return nil
	}

	parts := separatorRe.Split(cleaned, -1)

	var tokens []string
	for _, part := range parts {
		if len(part) == 0 {
			continue
		}
		for _, tok := range splitCamelCase(part) {
			tok = strings.ToLower(tok)
			if len(tok) >= 2 {
				tokens = append(tokens, tok)
			}
		}
	}

	if len(tokens) == 0 {
		return nil
	}
	return tokens
}

// splitCamelCase splits on case and digit boundaries:
//
//	"parseHTTPRequest" -> ["parse", "HTTP", "Request"]
//	"useState2"        -> ["use", "State", "2"]
func splitCamelCase(s string) []string {
	if len(s) == 0 {
		return nil
	}

	runes := []rune(s)
	var parts []string
	start := 0

	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		var split bool
		switch {
		case unicode.IsLower(prev) && unicode.IsUpper(cur),
			unicode.IsLetter(prev) && unicode.IsDigit(cur),
			unicode.IsDigit(prev) && unicode.IsLetter(cur):
			split = true
		case unicode.IsUpper(prev) && unicode.IsUpper(cur):
			// end of an acronym: "HTTPRequest" splits before 'R'
			split = i+1 < len(runes) && unicode.IsLower(runes[i+1])
		}
		if split {
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}

	parts = append(parts, string(runes[start:]))
	return parts
}

// stripNonASCII keeps printable ASCII only; identifiers in other scripts
// tokenize to what is left.
func stripNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= unicode.MaxASCII && r >= ' ' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
