package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FoldAccents removes combining marks so "MUÑOZ" and "MUNOZ" compare equal.
// Input that cannot be transformed is returned unchanged.
func FoldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// IsUpperToken reports whether token contains at least one letter and no
// lower-case letters. Digits and other symbols do not disqualify a token.
func IsUpperToken(token string) bool {
	hasLetter := false
	for _, r := range token {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}

// NormalizeName upper-cases and accent-folds a name and collapses internal
// whitespace to single spaces.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(FoldAccents(s))), " ")
}
