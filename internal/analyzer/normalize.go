package analyzer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize lowercases text, strips diacritics, turns every non-alphanumeric
// rune into a space and collapses whitespace. Every faithfulness comparison
// goes through it on both sides.
func Normalize(text string) string {
	folded := stripDiacritics(strings.ToLower(text))
	mapped := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, folded)
	return strings.Join(strings.Fields(mapped), " ")
}

// NormalizedTokens returns the words of Normalize(text).
func NormalizedTokens(text string) []string {
	return strings.Fields(Normalize(text))
}

// ContainsPhrase reports whether phrase, normalized, occurs in the
// normalized haystack on word boundaries.
func ContainsPhrase(normalizedHaystack, phrase string) bool {
	needle := Normalize(phrase)
	if needle == "" {
		return false
	}
	return strings.Contains(" "+normalizedHaystack+" ", " "+needle+" ")
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// trimWord strips leading and trailing punctuation (including ¿ and ¡) and
// lowercases, keeping accents.
func trimWord(word string) string {
	return strings.ToLower(strings.TrimFunc(word, func(r rune) bool {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}))
}
