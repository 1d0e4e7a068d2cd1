// Package normalize holds the pure field rewrites shared by the set and card
// stages: set codes, series, card ids, rarity symbols, short names and image
// URLs.
package normalize

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
)

const (
	promoLong  = "PROMO-"
	promoShort = "P-"
)

// ErrInvalidCardNumber is returned when a card number cannot produce an id.
var ErrInvalidCardNumber = eris.New("normalize: card number must be a positive integer")

// SetCode uppercases a set code and rewrites the "PROMO-" prefix to "P-".
func SetCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if strings.HasPrefix(code, promoLong) {
		return promoShort + code[len(promoLong):]
	}
	return code
}

// IsPromo reports whether a normalized code belongs to a promo set.
func IsPromo(code string) bool {
	return strings.HasPrefix(code, promoShort)
}

// Series derives the series of a normalized code: the part after "P-" for
// promo sets, otherwise the first character.
func Series(code string) string {
	if IsPromo(code) {
		return code[len(promoShort):]
	}
	if code == "" {
		return ""
	}
	_, size := utf8.DecodeRuneInString(code)
	return code[:size]
}

// CardID builds "{set}-{number:03d}".
func CardID(set string, number int) (string, error) {
	if number < 1 {
		return "", eris.Wrapf(ErrInvalidCardNumber, "set %s number %d", set, number)
	}
	return fmt.Sprintf("%s-%03d", set, number), nil
}
