package gazetteer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize upper-cases text and strips diacritical marks, so "México" and
// "MEXICO" compare equal. It is deterministic and safe for concurrent use.
func Normalize(text string) string {
	return strings.ToUpper(Fold(text))
}

// Fold strips diacritical marks and keeps the original case.
func Fold(text string) string {
	// A transformer chain holds state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}

// StripPunctuation replaces every rune that is not a letter, digit, underscore
// or whitespace with a space.
func StripPunctuation(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return ' '
	}, text)
}

// Tokens normalizes text, strips punctuation and splits on whitespace.
func Tokens(text string) []string {
	return strings.Fields(StripPunctuation(Normalize(text)))
}

// RawTokens splits text like Tokens but keeps the case the user typed, so
// RawTokens(t)[i] and Tokens(t)[i] name the same word.
func RawTokens(text string) []string {
	return strings.Fields(StripPunctuation(Fold(text)))
}
