// Package sets merges the TCGdex series listing with PocketDB's sets.json
// into one ordered list of set records.
package sets

import (
	"encoding/json"
	"sort"

	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/model"
	"github.com/tommycwz/tcgp-sync/internal/normalize"
)

const unknownSetName = "Unknown"

// secondarySet is the part of a PocketDB set record the merge reads.
type secondarySet struct {
	code        string
	name        string
	count       int
	hasCount    bool
	releaseDate *string
	packs       []json.RawMessage
}

// MergeSets reconciles primary (TCGdex series sets) with secondary
// (PocketDB sets) by normalized code. Primary supplies name, count, logo
// and symbol; secondary supplies releaseDate and packs, and its count is
// used when the primary count is missing or zero. A primary without a name
// is called "Unknown". Codes only the secondary knows are
// synthesized from secondary fields. Records that are not objects or carry
// no code are skipped. The result is sorted by (series, promo, code).
func MergeSets(primary, secondary []json.RawMessage) []model.Set {
	log := zap.L().With(zap.String("component", "sets.merge"))

	lookup := make(map[string]*secondarySet, len(secondary))
	var secondaryOrder []string
	for _, raw := range secondary {
		s, ok := parseSecondary(raw)
		if !ok {
			continue
		}
		if _, dup := lookup[s.code]; dup {
			log.Warn("duplicate secondary set code, keeping first", zap.String("code", s.code))
			continue
		}
		lookup[s.code] = s
		secondaryOrder = append(secondaryOrder, s.code)
	}

	seen := make(map[string]bool, len(primary)+len(secondary))
	out := make([]model.Set, 0, len(primary)+len(secondary))

	for _, raw := range primary {
		var f model.Fields
		if err := f.UnmarshalJSON(raw); err != nil {
			continue
		}
		id, _ := f.String("id")
		code := normalize.SetCode(id)
		if code == "" {
			continue
		}
		if seen[code] {
			log.Warn("duplicate primary set code, keeping first", zap.String("code", code))
			continue
		}
		seen[code] = true

		name, ok := f.String("name")
		if !ok {
			name = unknownSetName
		}
		logo, _ := f.String("logo")
		symbol, _ := f.String("symbol")

		rec := model.Set{
			Code:      code,
			Name:      name,
			ShortName: normalize.ShortName(name),
			Series:    normalize.Series(code),
			Logo:      normalize.AssetURL(logo),
			Symbol:    normalize.AssetURL(symbol),
			Packs:     []json.RawMessage{},
		}

		count, hasCount := 0, false
		if cardCount, ok := f.Object("cardCount"); ok {
			count, hasCount = cardCount.Int("total")
		}

		if sec, ok := lookup[code]; ok {
			rec.ReleaseDate = sec.releaseDate
			rec.Packs = sec.packs
			if (!hasCount || count == 0) && sec.hasCount {
				count = sec.count
			}
		}
		rec.Count = count
		out = append(out, rec)
	}

	for _, code := range secondaryOrder {
		if seen[code] {
			continue
		}
		seen[code] = true
		sec := lookup[code]
		out = append(out, model.Set{
			Code:        code,
			Name:        sec.name,
			ShortName:   normalize.ShortName(sec.name),
			Series:      normalize.Series(code),
			Count:       sec.count,
			ReleaseDate: sec.releaseDate,
			Packs:       sec.packs,
		})
	}

	Sort(out)
	return out
}

// Sort orders sets by series, then non-promo before promo, then code.
func Sort(sets []model.Set) {
	sort.SliceStable(sets, func(i, j int) bool {
		a, b := sets[i], sets[j]
		if a.Series != b.Series {
			return a.Series < b.Series
		}
		if a.IsPromo() != b.IsPromo() {
			return !a.IsPromo()
		}
		return a.Code < b.Code
	})
}

func parseSecondary(raw json.RawMessage) (*secondarySet, bool) {
	var f model.Fields
	if err := f.UnmarshalJSON(raw); err != nil {
		return nil, false
	}
	rawCode, _ := f.String("code")
	code := normalize.SetCode(rawCode)
	if code == "" {
		return nil, false
	}

	s := &secondarySet{code: code, packs: []json.RawMessage{}}

	s.name, _ = f.String("name")
	if s.name == "" {
		if label, ok := f.Object("label"); ok {
			s.name, _ = label.String("en")
		}
	}
	if s.name == "" {
		s.name = unknownSetName
	}

	s.count, s.hasCount = f.Int("total")

	if date, ok := f.String("releaseDate"); ok {
		s.releaseDate = &date
	}

	if raw, ok := f.Get("packs"); ok {
		var packs []json.RawMessage
		if err := json.Unmarshal(raw, &packs); err == nil && packs != nil {
			s.packs = packs
		}
	}
	return s, true
}
