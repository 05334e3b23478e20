package scoring

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lower-cases s and strips combining marks, so "Bengalūru" and
// "bengaluru" compare equal.
func Normalize(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		result = s
	}
	return strings.ToLower(result)
}

// Contains reports whether needle occurs in haystack after normalisation.
// An empty needle never matches, unlike strings.Contains: a blank list
// entry such as a stray "" blacklist item must not hit every company.
func Contains(haystack, needle string) bool {
	n := Normalize(strings.TrimSpace(needle))
	if n == "" {
		return false
	}
	return strings.Contains(Normalize(haystack), n)
}

// ContainsAny reports whether any of needles occurs in haystack. Empty
// needles are skipped as in Contains.
func ContainsAny(haystack string, needles []string) bool {
	h := Normalize(haystack)
	for _, needle := range needles {
		n := Normalize(strings.TrimSpace(needle))
		if n != "" && strings.Contains(h, n) {
			return true
		}
	}
	return false
}
