package main

import (
	"context"
	"time"

	"github.com/tommycwz/tcgp-sync/internal/cache"
	"github.com/tommycwz/tcgp-sync/internal/cards"
	"github.com/tommycwz/tcgp-sync/internal/config"
	"github.com/tommycwz/tcgp-sync/internal/fetcher"
	"github.com/tommycwz/tcgp-sync/internal/resilience"
	"github.com/tommycwz/tcgp-sync/pkg/pocketdb"
	"github.com/tommycwz/tcgp-sync/pkg/tcgdex"
)

// newFetcher builds the shared HTTP fetcher from the http config section.
func newFetcher(c *config.Config) *fetcher.HTTPFetcher {
	return fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:      c.HTTP.UserAgent,
		ConnectTimeout: time.Duration(c.HTTP.ConnectTimeoutSecs) * time.Second,
		ReadTimeout:    time.Duration(c.HTTP.ReadTimeoutSecs) * time.Second,
		Retry:          resilience.PolicyFromSettings(c.HTTP.MaxRetries, c.HTTP.InitialBackoffMs, c.HTTP.MaxBackoffMs),
	})
}

func newTCGdex(c *config.Config, f fetcher.Fetcher) tcgdex.Client {
	return tcgdex.NewClient(f,
		tcgdex.WithBaseURL(c.Sources.TCGdexBaseURL),
		tcgdex.WithSeries(c.Sources.TCGdexSeries),
	)
}

func newPocketDB(c *config.Config, f fetcher.Fetcher) pocketdb.Client {
	return pocketdb.NewClient(f, pocketdb.WithBaseURL(c.Sources.PocketDBBaseURL))
}

// newDetailFetcher wraps TCGdex card lookups in a circuit breaker that
// ignores per-card 4xx answers.
func newDetailFetcher(c *config.Config, client tcgdex.Client) *cards.TCGdexDetails {
	cbCfg := resilience.CircuitFromSettings("tcgdex.card", c.HTTP.CircuitThreshold, c.HTTP.CircuitResetSecs)
	cbCfg.ShouldTrip = cards.TripsCircuit
	return cards.NewTCGdexDetails(client, resilience.NewCircuitBreaker(cbCfg))
}

// runCards runs the card stage with its cache store opened for the
// duration of the run.
func runCards(ctx context.Context, c *config.Config, f fetcher.Fetcher, ledger *resilience.Ledger) error {
	store, err := cache.Open(ctx, c.Cache.Driver, c.Cache.Path)
	if err != nil {
		return err
	}
	defer store.Close() //nolint:errcheck

	gen := cards.NewGenerator(
		newPocketDB(c, f),
		newDetailFetcher(c, newTCGdex(c, f)),
		store,
		ledger,
		cards.Options{
			Path:         c.Output.CardsPath,
			FailuresPath: c.Output.FailuresPath,
			FoilPath:     c.Enrich.FoilPath,
			Enrich:       c.Enrich.Enabled,
			Workers:      c.Enrich.Workers,
			Fields:       c.Enrich.Fields,
		},
	)
	_, err = gen.Run(ctx)
	return err
}
