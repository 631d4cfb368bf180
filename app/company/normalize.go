package company

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// LegalEntityMarker is the Korean "corporation" prefix that the feed attaches
// to registered company names inconsistently.
const LegalEntityMarker = "(주)"

// Normalize maps a raw company name onto the canonical form used for matching.
// It composes Hangul, drops the legal-entity marker, lower-cases, and keeps only
// letters and decimal digits, so whitespace and separators such as · • - _ /
// disappear along with any other punctuation.
//
// Normalize is total: every input, including "", yields a string.
// Normalize(Normalize(s)) == Normalize(s).
func Normalize(name string) string {
	if name == "" {
		return ""
	}

	s := norm.NFC.String(name)
	s = strings.ReplaceAll(s, LegalEntityMarker, "")
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}

	// Removing separators can bring conjoining jamo next to each other.
	return norm.NFC.String(b.String())
}
