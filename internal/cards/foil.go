package cards

import (
	"context"
	"errors"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/fetcher"
	"github.com/tommycwz/tcgp-sync/internal/model"
)

// FoilSet is the set of card ids that have a foil print. Ids compare
// case-insensitively.
type FoilSet map[string]struct{}

// NewFoilSet builds a FoilSet from ids.
func NewFoilSet(ids ...string) FoilSet {
	s := make(FoilSet, len(ids))
	for _, id := range ids {
		if id = strings.ToUpper(strings.TrimSpace(id)); id != "" {
			s[id] = struct{}{}
		}
	}
	return s
}

// LoadFoilSet reads one id per line from path; blank lines and lines
// starting with '#' are ignored. A missing file yields an empty set.
func LoadFoilSet(ctx context.Context, path string) (FoilSet, error) {
	if path == "" {
		return FoilSet{}, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		zap.L().Warn("foil list not found, no cards will be flagged", zap.String("path", path))
		return FoilSet{}, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cards: open foil list %s", path)
	}
	defer f.Close() //nolint:errcheck

	ids, err := fetcher.ReadList(ctx, f)
	if err != nil {
		return nil, eris.Wrapf(err, "cards: read foil list %s", path)
	}
	return NewFoilSet(ids...), nil
}

// Contains reports whether id is listed.
func (s FoilSet) Contains(id string) bool {
	_, ok := s[strings.ToUpper(id)]
	return ok
}

// Apply sets isFoil=true on every keyed card whose id is listed and
// returns how many cards were flagged.
func (s FoilSet) Apply(cards []*model.Card) int {
	if len(s) == 0 {
		return 0
	}
	var n int
	for _, c := range cards {
		if c.Keyed && s.Contains(c.ID) {
			c.Fields.SetBool(keyIsFoil, true)
			n++
		}
	}
	return n
}
