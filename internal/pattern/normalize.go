package pattern

import (
	"strings"
	"unicode"
)

// Normalize case-folds s, replaces every character that is not a letter or digit with a
// space and collapses runs of whitespace.
func Normalize(s string) string {
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(mapped), " ")
}

// ContainsTokens reports whether the normalized needle appears in the normalized haystack as
// a whole-token sequence.
func ContainsTokens(haystack, needle string) bool {
	if needle == "" || haystack == "" {
		return false
	}
	return strings.Contains(" "+haystack+" ", " "+needle+" ")
}
