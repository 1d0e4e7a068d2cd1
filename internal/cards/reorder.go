// Package cards builds the card list: PocketDB records are keyed and
// reordered, flagged as foil, and enriched with TCGdex details.
package cards

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/model"
	"github.com/tommycwz/tcgp-sync/internal/normalize"
)

const (
	keyRarity     = "rarity"
	keyRarityCode = "rarityCode"
	keyIsFoil     = "isFoil"
)

// Reorder turns a raw PocketDB record into a card: rarityCode is folded
// into rarity and dropped, the set code is normalized, and series, set,
// number and id lead the record, followed by the remaining fields in
// source order.
//
// A record without a set has its rarity folded but is otherwise passed
// through unkeyed. A record whose number is missing or below 1 keeps its
// order with the set code normalized in place and returns an error
// wrapping normalize.ErrInvalidCardNumber alongside the card.
func Reorder(raw model.Fields) (*model.Card, error) {
	card, _, err := reorder(raw)
	return card, err
}

// reorder is Reorder that also reports whether rarity was rewritten.
func reorder(raw model.Fields) (*model.Card, bool, error) {
	f := raw.Clone()
	rewritten := foldRarity(&f)

	set, ok := cardSet(f)
	if !ok {
		return &model.Card{Fields: f}, rewritten, nil
	}

	number, _ := f.Int(model.KeyNumber)
	id, err := normalize.CardID(set, number)
	if err != nil {
		f.SetString(model.KeySet, set)
		return &model.Card{Fields: f}, rewritten, eris.Wrapf(err, "cards: reorder")
	}

	rest := make(model.Fields, 0, len(f))
	for _, field := range f {
		if !model.IsLeadingKey(field.Key) {
			rest = append(rest, field)
		}
	}

	return &model.Card{
		Series: normalize.Series(set),
		Set:    set,
		Number: number,
		ID:     id,
		Fields: rest,
		Keyed:  true,
	}, rewritten, nil
}

// foldRarity maps rarityCode to a symbol, overwrites rarity only when the
// symbol differs, and removes rarityCode. It reports whether rarity changed.
func foldRarity(f *model.Fields) bool {
	if !f.Has(keyRarityCode) {
		return false
	}
	defer f.Delete(keyRarityCode)

	code, ok := f.String(keyRarityCode)
	if !ok {
		return false
	}
	mapped := normalize.Rarity(code)
	current, _ := f.String(keyRarity)
	if mapped == current {
		return false
	}
	f.SetString(keyRarity, mapped)
	return true
}

// Stats counts what a reorder pass changed.
type Stats struct {
	Total          int
	RarityRewrites int
	PromoSets      int
	Unkeyed        int
	InvalidNumbers int
	Duplicates     int
	Skipped        int
}

// ReorderAll reorders every raw record in source order. Non-object records
// are skipped; a keyed card whose id was already emitted is logged and
// dropped.
func ReorderAll(raws []json.RawMessage) ([]*model.Card, Stats) {
	log := zap.L().With(zap.String("component", "cards.reorder"))

	var stats Stats
	out := make([]*model.Card, 0, len(raws))
	seen := make(map[string]bool, len(raws))

	for _, data := range raws {
		var raw model.Fields
		if err := raw.UnmarshalJSON(data); err != nil {
			stats.Skipped++
			continue
		}
		stats.Total++

		if _, ok := cardSet(raw); ok {
			if rawSet, _ := raw.String(model.KeySet); strings.HasPrefix(strings.ToUpper(strings.TrimSpace(rawSet)), "PROMO-") {
				stats.PromoSets++
			}
		}

		card, rewritten, err := reorder(raw)
		if rewritten {
			stats.RarityRewrites++
		}
		switch {
		case err != nil:
			stats.InvalidNumbers++
			log.Warn("card has no usable number, leaving it unkeyed", zap.Error(err))
		case !card.Keyed:
			stats.Unkeyed++
		case seen[card.ID]:
			stats.Duplicates++
			log.Warn("duplicate card id, keeping first", zap.String("id", card.ID))
			continue
		default:
			seen[card.ID] = true
		}
		out = append(out, card)
	}
	return out, stats
}

// cardSet returns the normalized set code of a raw record.
func cardSet(raw model.Fields) (string, bool) {
	rawSet, ok := raw.String(model.KeySet)
	if !ok {
		return "", false
	}
	set := normalize.SetCode(rawSet)
	return set, set != ""
}
