package normalize

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// shortNameStopWords are dropped before building a set acronym.
var shortNameStopWords = map[string]bool{
	"and": true,
	"of":  true,
}

// ShortName builds the acronym shown for a set: hyphens removed, "and"/"of"
// dropped, first letter of each remaining word uppercased.
// "Space-Time Smackdown" becomes "SS", "Wisdom of Sea and Sky" becomes "WSS".
func ShortName(name string) string {
	upper := cases.Upper(language.Und)

	var b strings.Builder
	for _, word := range strings.Fields(strings.ReplaceAll(name, "-", "")) {
		if shortNameStopWords[word] {
			continue
		}
		r, size := utf8.DecodeRuneInString(word)
		if r == utf8.RuneError && size <= 1 {
			continue
		}
		b.WriteString(upper.String(word[:size]))
	}
	return b.String()
}
