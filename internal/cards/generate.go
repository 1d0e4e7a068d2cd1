package cards

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/cache"
	"github.com/tommycwz/tcgp-sync/internal/export"
	"github.com/tommycwz/tcgp-sync/internal/model"
	"github.com/tommycwz/tcgp-sync/internal/resilience"
	"github.com/tommycwz/tcgp-sync/pkg/pocketdb"
)

// Options configures the card stage.
type Options struct {
	Path         string
	FailuresPath string
	FoilPath     string

	Enrich  bool
	Workers int
	Fields  []string
}

// Generator runs the card stage: fetch, reorder, flag foils, enrich, write.
type Generator struct {
	pocketdb pocketdb.Client
	details  DetailFetcher
	store    cache.Store
	ledger   *resilience.Ledger
	opts     Options
}

// NewGenerator creates a card stage. details and store may be nil when
// enrichment is disabled.
func NewGenerator(p pocketdb.Client, details DetailFetcher, store cache.Store, ledger *resilience.Ledger, opts Options) *Generator {
	if ledger == nil {
		ledger = resilience.NewLedger("")
	}
	return &Generator{pocketdb: p, details: details, store: store, ledger: ledger, opts: opts}
}

// Run builds and writes the cards file. A failure to fetch the base list
// aborts the stage before anything is written. The detail cache is saved
// even when individual fetches fail or ctx is cancelled mid-enrichment.
func (g *Generator) Run(ctx context.Context) ([]*model.Card, error) {
	log := zap.L().With(zap.String("component", "cards.generator"))
	start := time.Now()

	raws, err := g.pocketdb.Cards(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "cards: base list")
	}

	cards, stats := ReorderAll(raws)

	foil, err := LoadFoilSet(ctx, g.opts.FoilPath)
	if err != nil {
		return nil, err
	}
	flagged := foil.Apply(cards)

	var enriched EnrichStats
	if g.opts.Enrich && g.details != nil && g.store != nil {
		enriched, err = g.enrich(ctx, cards)
		if err != nil {
			return nil, err
		}
	}

	if err := export.WriteJSON(g.opts.Path, cards, export.IndentCards); err != nil {
		return nil, eris.Wrap(err, "cards: write output")
	}

	log.Info("cards written",
		zap.String("path", g.opts.Path),
		zap.Int("source", len(raws)),
		zap.Int("written", len(cards)),
		zap.Int("rarity_rewrites", stats.RarityRewrites),
		zap.Int("promo_sets", stats.PromoSets),
		zap.Int("unkeyed", stats.Unkeyed+stats.InvalidNumbers),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped", stats.Skipped),
		zap.Int("foil", flagged),
		zap.Int("enriched", enriched.Enriched),
		zap.Int("fetched", enriched.Fetched),
		zap.Int("failed", enriched.Failed),
		zap.Duration("elapsed", time.Since(start)),
	)
	return cards, nil
}

func (g *Generator) enrich(ctx context.Context, cards []*model.Card) (EnrichStats, error) {
	details, err := g.store.Load(ctx)
	if err != nil {
		return EnrichStats{}, eris.Wrap(err, "cards: load detail cache")
	}

	stats, enrichErr := Enrich(ctx, cards, g.details, details, EnrichOptions{
		Workers: g.opts.Workers,
		Fields:  g.opts.Fields,
		Ledger:  g.ledger,
	})

	// Persist what was fetched even if the run was interrupted.
	saveCtx := context.WithoutCancel(ctx)
	if err := g.store.Save(saveCtx, details); err != nil {
		return stats, eris.Wrap(err, "cards: save detail cache")
	}
	if err := g.writeFailures(); err != nil {
		return stats, err
	}
	return stats, enrichErr
}

func (g *Generator) writeFailures() error {
	if g.opts.FailuresPath == "" {
		return nil
	}
	failures := g.ledger.Failures()
	if len(failures) > 0 {
		zap.L().Warn("card details failed this run",
			zap.Int("count", len(failures)),
			zap.Any("by_type", g.ledger.Counts()),
			zap.String("path", g.opts.FailuresPath),
		)
	}
	return eris.Wrap(export.WriteJSON(g.opts.FailuresPath, failures, export.IndentCards), "cards: write failure ledger")
}
