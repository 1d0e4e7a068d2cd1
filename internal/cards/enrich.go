package cards

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tommycwz/tcgp-sync/internal/cache"
	"github.com/tommycwz/tcgp-sync/internal/fetcher"
	"github.com/tommycwz/tcgp-sync/internal/model"
	"github.com/tommycwz/tcgp-sync/internal/resilience"
	"github.com/tommycwz/tcgp-sync/pkg/tcgdex"
)

// StageEnrich names the enrichment stage in the failure ledger.
const StageEnrich = "enrich"

// DetailFetcher fetches the detail record of one card.
type DetailFetcher interface {
	FetchDetail(ctx context.Context, id string) (model.Detail, error)
}

// TCGdexDetails fetches card details from TCGdex behind a circuit breaker.
type TCGdexDetails struct {
	client  tcgdex.Client
	breaker *resilience.CircuitBreaker
}

// NewTCGdexDetails wraps client. A nil breaker disables the circuit.
func NewTCGdexDetails(client tcgdex.Client, breaker *resilience.CircuitBreaker) *TCGdexDetails {
	return &TCGdexDetails{client: client, breaker: breaker}
}

// FetchDetail implements DetailFetcher.
func (t *TCGdexDetails) FetchDetail(ctx context.Context, id string) (model.Detail, error) {
	fetch := func(ctx context.Context) (model.Detail, error) {
		raw, err := t.client.Card(ctx, id)
		if err != nil {
			return model.Detail{}, err
		}
		d, err := model.NewDetail(raw)
		if err != nil {
			return model.Detail{}, eris.Wrapf(err, "cards: detail %s", id)
		}
		return d, nil
	}
	if t.breaker == nil {
		return fetch(ctx)
	}
	return resilience.Execute(ctx, t.breaker, fetch)
}

// TripsCircuit reports whether a detail failure counts against the
// upstream: 4xx answers other than 429 and malformed payloads do not.
func TripsCircuit(err error) bool {
	if err == nil {
		return false
	}
	var statusErr *fetcher.StatusError
	if errors.As(err, &statusErr) {
		return !(statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 && statusErr.StatusCode != 429)
	}
	return !errors.Is(err, model.ErrNotObject)
}

// Result is the outcome of one detail fetch.
type Result struct {
	ID     string
	Detail model.Detail
	Err    error
}

// EnrichOptions configures Enrich.
type EnrichOptions struct {
	Workers       int
	Fields        []string
	Ledger        *resilience.Ledger
	ProgressEvery int
}

// EnrichStats counts what an enrichment pass did.
type EnrichStats struct {
	FromCache int // cards enriched from already cached details
	Fetched   int // ids fetched successfully this run
	Failed    int // ids whose fetch failed
	Enriched  int // cards that received detail fields
	Unkeyed   int // cards without an id, never enriched
}

// Enrich copies detail fields onto cards. Cached ids are applied directly;
// the rest are fetched by a bounded pool of workers that report Results
// over a channel. Only this goroutine touches the cache and the cards, and
// the cache is only ever added to. A failed fetch leaves its cards as they
// were and is recorded in the ledger. Card order is never changed.
//
// If ctx is cancelled dispatch stops; the stats so far and ctx's error are
// returned and everything fetched before that is already in the cache.
func Enrich(ctx context.Context, cards []*model.Card, f DetailFetcher, details *cache.Details, opts EnrichOptions) (EnrichStats, error) {
	log := zap.L().With(zap.String("component", "cards.enrich"))

	if opts.Workers <= 0 {
		opts.Workers = 16
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = 100
	}

	var stats EnrichStats
	byID := make(map[string][]*model.Card, len(cards))
	var pending []string

	for _, c := range cards {
		if !c.Keyed {
			stats.Unkeyed++
			continue
		}
		if d, ok := details.Get(c.ID); ok {
			applyDetail(c, d, opts.Fields)
			stats.FromCache++
			stats.Enriched++
			continue
		}
		if _, queued := byID[c.ID]; !queued {
			pending = append(pending, c.ID)
		}
		byID[c.ID] = append(byID[c.ID], c)
	}

	if len(pending) == 0 {
		log.Info("all card details cached", zap.Int("cached", stats.FromCache))
		return stats, nil
	}

	log.Info("fetching card details",
		zap.Int("pending", len(pending)),
		zap.Int("cached", stats.FromCache),
		zap.Int("workers", opts.Workers),
	)

	results := make(chan Result)
	go func() {
		defer close(results)
		var eg errgroup.Group
		eg.SetLimit(opts.Workers)
		for _, id := range pending {
			if ctx.Err() != nil {
				break
			}
			eg.Go(func() error {
				d, err := f.FetchDetail(ctx, id)
				results <- Result{ID: id, Detail: d, Err: err}
				return nil
			})
		}
		_ = eg.Wait()
	}()

	var done int
	for r := range results {
		done++
		if r.Err != nil {
			stats.Failed++
			if opts.Ledger != nil {
				opts.Ledger.Record(StageEnrich, r.ID, r.Err)
			}
			log.Warn("card detail fetch failed", zap.String("id", r.ID), zap.Error(r.Err))
		} else {
			details.Add(r.ID, r.Detail)
			stats.Fetched++
			for _, c := range byID[r.ID] {
				applyDetail(c, r.Detail, opts.Fields)
				stats.Enriched++
			}
		}
		if done%opts.ProgressEvery == 0 {
			log.Info("enrichment progress",
				zap.Int("done", done),
				zap.Int("total", len(pending)),
				zap.Int("failed", stats.Failed),
			)
		}
	}

	if err := ctx.Err(); err != nil {
		return stats, eris.Wrap(err, "cards: enrichment interrupted")
	}
	return stats, nil
}

// applyDetail copies the allow-listed fields of d onto c, then applies the
// trainer rule, which takes precedence over a copied "types".
func applyDetail(c *model.Card, d model.Detail, fields []string) {
	for _, key := range fields {
		if model.IsLeadingKey(key) {
			continue
		}
		if v, ok := d.Get(key); ok {
			c.Fields.Set(key, v)
		}
	}
	if strings.EqualFold(d.Category(), "trainer") {
		c.Fields.SetStrings("types", []string{trainerTypeLabel(d.TrainerType())})
	}
}

func trainerTypeLabel(trainerType string) string {
	switch strings.ToLower(trainerType) {
	case "item":
		return "Item"
	case "supporter":
		return "Supporter"
	case "tool":
		return "Tool"
	default:
		return "Trainer"
	}
}
