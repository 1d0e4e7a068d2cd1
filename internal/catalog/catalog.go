// Package catalog builds a card catalog straight from TCGdex: card ids are
// discovered from each set's card list and every card detail is fetched and
// normalized.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tommycwz/tcgp-sync/internal/export"
	"github.com/tommycwz/tcgp-sync/internal/model"
	"github.com/tommycwz/tcgp-sync/internal/normalize"
	"github.com/tommycwz/tcgp-sync/internal/resilience"
	"github.com/tommycwz/tcgp-sync/pkg/tcgdex"
)

// Ledger stages.
const (
	StageDiscover = "catalog.discover"
	StageFetch    = "catalog.fetch"
)

// Options configures a Catalog.
type Options struct {
	SetWorkers  int
	CardWorkers int
	IDCachePath string
	OutputPath  string
}

// Catalog crawls TCGdex sets and cards.
type Catalog struct {
	client tcgdex.Client
	ledger *resilience.Ledger
	opts   Options
}

// New creates a Catalog. A nil ledger records nothing.
func New(client tcgdex.Client, ledger *resilience.Ledger, opts Options) *Catalog {
	if opts.SetWorkers <= 0 {
		opts.SetWorkers = 8
	}
	if opts.CardWorkers <= 0 {
		opts.CardWorkers = 16
	}
	return &Catalog{client: client, ledger: ledger, opts: opts}
}

// Run discovers the card ids of setCodes, fetches every card and writes the
// catalog file.
func (c *Catalog) Run(ctx context.Context, setCodes []string) ([]model.Fields, error) {
	log := zap.L().With(zap.String("component", "catalog"))
	start := time.Now()

	ids, err := c.DiscoverCardIDs(ctx, setCodes)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, eris.New("catalog: no card ids discovered")
	}

	cards, err := c.FetchCards(ctx, ids)
	if err != nil {
		return nil, err
	}

	if err := export.WriteJSON(c.opts.OutputPath, cards, export.IndentSets); err != nil {
		return nil, eris.Wrap(err, "catalog: write output")
	}

	log.Info("catalog written",
		zap.String("path", c.opts.OutputPath),
		zap.Int("sets", len(setCodes)),
		zap.Int("ids", len(ids)),
		zap.Int("cards", len(cards)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cards, nil
}

// DiscoverCardIDs lists the card ids of every set. Ids come out unique, in
// set-list order and then card-list order. A non-empty id cache file
// short-circuits discovery; a fresh list is written back to it. Sets that
// fail to load are logged and contribute nothing.
func (c *Catalog) DiscoverCardIDs(ctx context.Context, setCodes []string) ([]string, error) {
	log := zap.L().With(zap.String("component", "catalog.discover"))

	if cached, ok := c.loadIDCache(); ok {
		log.Info("loaded card ids from cache", zap.Int("ids", len(cached)), zap.String("path", c.opts.IDCachePath))
		return cached, nil
	}

	perSet := make([][]string, len(setCodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.SetWorkers)
	for i, code := range setCodes {
		g.Go(func() error {
			set, err := c.client.Set(gctx, code)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				c.record(StageDiscover, code, err)
				log.Warn("set fetch failed", zap.String("set", code), zap.Error(err))
				return nil
			}
			perSet[i] = CardIDs(code, set.Cards)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "catalog: discover card ids")
	}

	seen := make(map[string]bool)
	var ids []string
	for _, list := range perSet {
		for _, id := range list {
			if !seen[id] {
				seen[id] = true
				ids = append(ids, id)
			}
		}
	}

	log.Info("discovered card ids", zap.Int("sets", len(setCodes)), zap.Int("ids", len(ids)))

	if c.opts.IDCachePath != "" && len(ids) > 0 {
		if err := export.WriteJSON(c.opts.IDCachePath, ids, export.IndentCards); err != nil {
			log.Warn("could not write id cache", zap.String("path", c.opts.IDCachePath), zap.Error(err))
		}
	}
	return ids, nil
}

// CardIDs extracts card ids from a set's card list. Entries are id strings
// or objects carrying id, cardID or slug; failing those, localId or number
// gives "{set}-{local}" in lowercase.
func CardIDs(setCode string, entries []json.RawMessage) []string {
	ids := make([]string, 0, len(entries))
	for _, raw := range entries {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				ids = append(ids, s)
			}
			continue
		}

		var f model.Fields
		if err := f.UnmarshalJSON(raw); err != nil {
			continue
		}
		if id := firstString(f, "id", "cardID", "slug"); id != "" {
			ids = append(ids, id)
			continue
		}
		if local := firstScalar(f, "localId", "number"); local != "" {
			ids = append(ids, strings.ToLower(setCode)+"-"+strings.ToLower(local))
		}
	}
	return ids
}

// FetchCards fetches every id with a bounded worker pool, normalizes each
// card and returns them in id order. Failed or non-object cards are logged,
// recorded and left out.
func (c *Catalog) FetchCards(ctx context.Context, ids []string) ([]model.Fields, error) {
	log := zap.L().With(zap.String("component", "catalog.fetch"))
	log.Info("fetching cards", zap.Int("ids", len(ids)), zap.Int("workers", c.opts.CardWorkers))

	type result struct {
		index int
		card  model.Fields
		err   error
	}

	results := make(chan result)
	go func() {
		defer close(results)
		var g errgroup.Group
		g.SetLimit(c.opts.CardWorkers)
		for i, id := range ids {
			if ctx.Err() != nil {
				break
			}
			g.Go(func() error {
				card, err := c.fetchCard(ctx, id)
				results <- result{index: i, card: card, err: err}
				return nil
			})
		}
		_ = g.Wait()
	}()

	slots := make([]model.Fields, len(ids))
	var done, ok int
	for r := range results {
		done++
		if r.err != nil {
			c.record(StageFetch, ids[r.index], r.err)
			log.Warn("card fetch failed", zap.String("id", ids[r.index]), zap.Error(r.err))
		} else {
			slots[r.index] = r.card
			ok++
		}
		if done%200 == 0 {
			log.Info("catalog progress", zap.Int("done", done), zap.Int("total", len(ids)), zap.Int("ok", ok))
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "catalog: fetch cards")
	}

	cards := make([]model.Fields, 0, ok)
	for _, card := range slots {
		if card != nil {
			cards = append(cards, card)
		}
	}
	return cards, nil
}

func (c *Catalog) fetchCard(ctx context.Context, id string) (model.Fields, error) {
	raw, err := c.client.Card(ctx, id)
	if err != nil {
		return nil, err
	}
	var card model.Fields
	if err := card.UnmarshalJSON(raw); err != nil {
		return nil, eris.Wrapf(err, "catalog: card %s", id)
	}
	NormalizeCard(&card)
	return card, nil
}

// NormalizeCard uppercases the id, turns a textual rarity into its symbol
// and points the image at its low-resolution webp.
func NormalizeCard(card *model.Fields) {
	if id, ok := card.String("id"); ok {
		card.SetString("id", strings.ToUpper(id))
	}
	if card.Has("rarity") {
		text, _ := card.String("rarity")
		card.SetString("rarity", normalize.RarityFromText(text))
	}
	if img, ok := card.String("image"); ok && img != "" {
		card.SetString("image", normalize.ImageURL(img))
	}
}

func (c *Catalog) loadIDCache() ([]string, bool) {
	if c.opts.IDCachePath == "" {
		return nil, false
	}
	var ids []string
	err := export.ReadJSON(c.opts.IDCachePath, &ids)
	switch {
	case err == nil:
		return ids, len(ids) > 0
	case errors.Is(err, os.ErrNotExist):
		return nil, false
	default:
		zap.L().Warn("ignoring unreadable id cache", zap.String("path", c.opts.IDCachePath), zap.Error(err))
		return nil, false
	}
}

func (c *Catalog) record(stage, key string, err error) {
	if c.ledger != nil {
		c.ledger.Record(stage, key, err)
	}
}

func firstString(f model.Fields, keys ...string) string {
	for _, k := range keys {
		if s, ok := f.String(k); ok && s != "" {
			return s
		}
	}
	return ""
}

// firstScalar returns the first key holding a non-empty string or a number,
// as text.
func firstScalar(f model.Fields, keys ...string) string {
	for _, k := range keys {
		if s, ok := f.String(k); ok && s != "" {
			return s
		}
		if raw, ok := f.Get(k); ok {
			var n json.Number
			if err := json.Unmarshal(raw, &n); err == nil && n != "" && n != "0" {
				return n.String()
			}
		}
	}
	return ""
}
