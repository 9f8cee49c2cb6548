package memory

import (
	"strings"
)

// trailingPunctuation is stripped from the end of normalized content so
// that e.g. "...indentation" and "...indentation." normalize equal
// (spec.md §8 scenario 2).
const trailingPunctuation = ".!?,;:"

// NormalizeContent implements §4.2 step 1's content normalization:
// collapse internal whitespace/newlines, casefold, and strip trailing
// sentence punctuation, so the exact-duplicate check (step 2) compares
// byte-equal normalized forms rather than incidental whitespace or
// punctuation differences.
func NormalizeContent(content string) string {
	fields := strings.Fields(content)
	joined := strings.ToLower(strings.Join(fields, " "))
	return strings.TrimRight(joined, trailingPunctuation)
}
