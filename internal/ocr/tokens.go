package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// strokedLatin covers letters that NFD cannot decompose (no combining mark).
var strokedLatin = strings.NewReplacer(
	"ł", "l", "Ł", "L",
	"ø", "o", "Ø", "O",
	"đ", "d", "Đ", "D",
)

// Fold lowercases and strips diacritics: "Termin płatności" -> "termin platnosci".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strokedLatin.Replace(folded))
}

// Tokenize splits folded text into normalized word tokens.
func Tokenize(s string) []string {
	folded := Fold(s)
	return strings.FieldsFunc(folded, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
