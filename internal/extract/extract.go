// Package extract finds candidate ticker tokens in free text.
package extract

import (
	"errors"
	"regexp"
	"sort"
	"unicode/utf8"
)

// ErrMalformedText is returned when input text cannot be scanned.
var ErrMalformedText = errors.New("malformed text")

// tokenPattern matches a word-bounded run of 3-5 uppercase ASCII letters.
// The word boundary rejects runs embedded in longer letter/digit sequences,
// so "ABCDEF" and "AB1CD" yield no match.
var tokenPattern = regexp.MustCompile(`\b[A-Z]{3,5}\b`)

// Tokens returns the distinct candidate tokens in text, sorted ascending.
// Repeated tokens within one text collapse to a single entry; dedup across
// texts happens downstream per (token, timestamp).
func Tokens(text string) ([]string, error) {
	if !utf8.ValidString(text) {
		return nil, ErrMalformedText
	}

	matches := tokenPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(matches))
	var tokens []string
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		tokens = append(tokens, m)
	}

	sort.Strings(tokens)
	return tokens, nil
}
