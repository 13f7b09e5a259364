package search

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds s into the form used for matching: NFKC, lower case,
// trimmed, with internal whitespace runs collapsed to a single space.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToLower(norm.NFKC.String(s))
	return strings.Join(strings.Fields(s), " ")
}
