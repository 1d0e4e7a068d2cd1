package model

import (
	"encoding/json"

	"github.com/tommycwz/tcgp-sync/internal/normalize"
)

// Set is a merged set record as written to the sets file.
type Set struct {
	Code        string            `json:"code"`
	Name        string            `json:"name"`
	ShortName   string            `json:"shortName"`
	Series      string            `json:"series"`
	Count       int               `json:"count"`
	ReleaseDate *string           `json:"releaseDate"`
	Packs       []json.RawMessage `json:"packs"`
	Logo        string            `json:"logo,omitempty"`
	Symbol      string            `json:"symbol,omitempty"`
}

// IsPromo reports whether the set is a promo set ("P-" code).
func (s Set) IsPromo() bool {
	return normalize.IsPromo(s.Code)
}

// SetCodes returns the codes of sets in order.
func SetCodes(sets []Set) []string {
	codes := make([]string, len(sets))
	for i, s := range sets {
		codes[i] = s.Code
	}
	return codes
}
