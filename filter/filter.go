// Package filter implements keyword-based admission filtering for
// broadcast titles.
package filter

import "strings"

// separators recognized by Normalize: commas, whitespace, and the
// Japanese comma.
func isSeparator(r rune) bool {
	switch r {
	case ',', '、', ' ', '\t', '\n', '\r', '　':
		return true
	}
	return false
}

// Normalize splits free text into an ordered set of lowercase keyword
// tokens. Empty tokens and duplicates are dropped; first-seen order is
// preserved.
func Normalize(text string) []string {
	fields := strings.FieldsFunc(text, isSeparator)

	var tokens []string
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		tok := strings.ToLower(strings.TrimSpace(f))
		if tok == "" || seen[tok] {
			continue
		}
		seen[tok] = true
		tokens = append(tokens, tok)
	}
	return tokens
}

// Admits reports whether a title passes the keyword filter. An empty
// token set admits everything; otherwise the lowercased title must
// contain at least one token as a substring.
func Admits(title string, tokens []string) bool {
	if len(tokens) == 0 {
		return true
	}

	lower := strings.ToLower(title)
	for _, tok := range tokens {
		if strings.Contains(lower, tok) {
			return true
		}
	}
	return false
}
