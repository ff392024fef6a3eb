// Package textindex provides the small text utilities the retrieval pipeline
// leans on (query tokenization, truncation) plus a standalone in-memory
// TextIndex for ad hoc substring/token lookups over Thought DB text.
//
// Grounded on original_source/mi/memory/text.py.
package textindex

import (
	"regexp"
	"strings"
)

// Truncate returns text if it fits within limit, otherwise the first
// limit-3 bytes (not runes, so a multi-byte character may be cut)
// followed by "...".
func Truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit - 3
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + "..."
}

var tokenRx = regexp.MustCompile(`[A-Za-z0-9_]{2,}`)

// TokenizeQuery extracts up to maxTokens distinct, order-preserving
// lowercase tokens from text, deliberately avoiding characters like ':' and
// leading '-' that risk signals often contain (e.g. "push:" or "-rf") and
// that could otherwise read as search-syntax operators downstream.
func TokenizeQuery(text string, maxTokens int) []string {
	matches := tokenRx.FindAllString(strings.ToLower(text), -1)
	out := make([]string, 0, maxTokens)
	seen := map[string]bool{}
	for _, t := range matches {
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) >= maxTokens {
			break
		}
	}
	return out
}
