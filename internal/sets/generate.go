package sets

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tommycwz/tcgp-sync/internal/export"
	"github.com/tommycwz/tcgp-sync/internal/model"
	"github.com/tommycwz/tcgp-sync/pkg/pocketdb"
	"github.com/tommycwz/tcgp-sync/pkg/tcgdex"
)

// Generator runs the set stage: fetch both listings, merge, write.
type Generator struct {
	tcgdex   tcgdex.Client
	pocketdb pocketdb.Client
	path     string
}

// NewGenerator creates a set stage writing to path.
func NewGenerator(t tcgdex.Client, p pocketdb.Client, path string) *Generator {
	return &Generator{tcgdex: t, pocketdb: p, path: path}
}

// Run fetches both sources concurrently, merges them and writes the sets
// file. On any fetch or write error nothing is written and the error is
// returned; callers treat that as an empty set list.
func (g *Generator) Run(ctx context.Context) ([]model.Set, error) {
	log := zap.L().With(zap.String("component", "sets.generator"))
	start := time.Now()

	var primary, secondary []json.RawMessage
	eg, gctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		primary, err = g.tcgdex.Series(gctx)
		return eris.Wrap(err, "sets: primary listing")
	})
	eg.Go(func() error {
		var err error
		secondary, err = g.pocketdb.Sets(gctx)
		return eris.Wrap(err, "sets: secondary listing")
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	merged := MergeSets(primary, secondary)

	if err := export.WriteJSON(g.path, merged, export.IndentSets); err != nil {
		return nil, eris.Wrap(err, "sets: write output")
	}

	log.Info("sets written",
		zap.String("path", g.path),
		zap.Int("primary", len(primary)),
		zap.Int("secondary", len(secondary)),
		zap.Int("merged", len(merged)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return merged, nil
}
