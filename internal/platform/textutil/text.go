package textutil

import (
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips every HTML element from value, unescapes entities, collapses whitespace
// and truncates to limit runes. A limit of zero disables truncation.
func PlainText(value string, limit int) string {
	cleaned := html.UnescapeString(strictPolicy.Sanitize(value))
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if limit > 0 && utf8.RuneCountInString(cleaned) > limit {
		runes := []rune(cleaned)
		cleaned = strings.TrimSpace(string(runes[:limit]))
	}
	return cleaned
}

// Fold returns a caseless form of value for comparisons such as matching status labels.
func Fold(value string) string {
	return cases.Fold().String(strings.Join(strings.Fields(value), " "))
}

// EqualFold reports whether a and b match after folding and whitespace normalisation.
func EqualFold(a, b string) bool {
	return Fold(a) == Fold(b)
}
