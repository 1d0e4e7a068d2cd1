// Package collection joins a player's owned-card export with the card
// reference list and writes the result as JSON, CSV and XLSX.
package collection

import (
	"encoding/json"
	"errors"
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/export"
	"github.com/tommycwz/tcgp-sync/internal/model"
)

// Reference is one entry of the card reference list.
type Reference struct {
	CardDefKey  string `json:"cardDefKey"`
	ExpansionID string `json:"expansionId"`
	URL         string `json:"url"`
}

// Owned is one entry of the owned-card export.
type Owned struct {
	CardID string `json:"cardId"`
	Amount int    `json:"amount"`
}

// Entry is an owned card joined with its reference.
type Entry struct {
	ID          string `json:"Id"`
	CardDefKey  string `json:"cardDefKey"`
	ExpansionID string `json:"expansionId"`
	URL         string `json:"url"`
	Amount      int    `json:"amount"`
}

// EntryID derives the card id from a reference: the expansion id joined
// with the fourth "/"-separated segment of the url, uppercased, with the
// promo prefix shortened. It fails when the url has too few segments.
func EntryID(expansionID, url string) (string, error) {
	parts := strings.Split(url, "/")
	if len(parts) < 4 {
		return "", eris.Errorf("collection: url %q has no card segment", url)
	}
	id := strings.ToUpper(expansionID + "-" + parts[3])
	return strings.ReplaceAll(id, "PROMO-", "P-"), nil
}

// Combine keeps the references whose cardDefKey is owned and returns them
// sorted by id. A later owned entry for the same card replaces an earlier one.
func Combine(refs []Reference, owned []Owned) []Entry {
	log := zap.L().With(zap.String("component", "collection"))

	amounts := make(map[string]int, len(owned))
	for _, o := range owned {
		amounts[o.CardID] = o.Amount
	}

	entries := make([]Entry, 0, len(owned))
	for _, ref := range refs {
		amount, ok := amounts[ref.CardDefKey]
		if !ok {
			continue
		}
		id, err := EntryID(ref.ExpansionID, ref.URL)
		if err != nil {
			log.Warn("skipping reference", zap.String("card_def_key", ref.CardDefKey), zap.Error(err))
			continue
		}
		entries = append(entries, Entry{
			ID:          id,
			CardDefKey:  ref.CardDefKey,
			ExpansionID: ref.ExpansionID,
			URL:         ref.URL,
			Amount:      amount,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries
}

// CardInfo is what a generated card contributes to an export row.
type CardInfo struct {
	Name      string
	Expansion string
	Pack      string
	Rarity    string
}

// CardIndex maps card ids to their display fields.
type CardIndex map[string]CardInfo

// IndexCards builds a CardIndex from keyed cards.
func IndexCards(cards []model.Card) CardIndex {
	idx := make(CardIndex, len(cards))
	for i := range cards {
		c := &cards[i]
		if !c.Keyed {
			continue
		}
		info := CardInfo{Name: c.Name(), Expansion: c.Set}
		info.Rarity, _ = c.Fields.String("rarity")
		if raw, ok := c.Fields.Get("packs"); ok {
			var packs []string
			if err := json.Unmarshal(raw, &packs); err == nil && len(packs) > 0 {
				info.Pack = packs[0]
			}
		}
		idx[c.ID] = info
	}
	return idx
}

// LoadCardIndex reads a generated cards file. A missing file or empty path
// gives an empty index, leaving the descriptive columns blank.
func LoadCardIndex(path string) (CardIndex, error) {
	if path == "" {
		return CardIndex{}, nil
	}
	var cards []model.Card
	err := export.ReadJSON(path, &cards)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("cards file not found, names will be blank", zap.String("path", path))
		return CardIndex{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "collection: read cards")
	}
	return IndexCards(cards), nil
}

// Row is one line of the CSV and XLSX exports.
type Row struct {
	ID        string `csv:"ID"`
	CardName  string `csv:"CardName"`
	NumberOwn int    `csv:"NumberOwn"`
	Expansion string `csv:"Expansion"`
	Pack      string `csv:"Pack"`
	Rarity    string `csv:"Rarity"`
}

// Header is the export column order.
var Header = []string{"ID", "CardName", "NumberOwn", "Expansion", "Pack", "Rarity"}

// Rows turns entries into export rows, filling descriptive columns from idx
// when the id matches a generated card.
func Rows(entries []Entry, idx CardIndex) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		info := idx[e.ID]
		rows[i] = Row{
			ID:        e.ID,
			CardName:  info.Name,
			NumberOwn: e.Amount,
			Expansion: info.Expansion,
			Pack:      info.Pack,
			Rarity:    info.Rarity,
		}
	}
	return rows
}
