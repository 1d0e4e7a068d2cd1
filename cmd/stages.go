package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/catalog"
	"github.com/tommycwz/tcgp-sync/internal/collection"
	"github.com/tommycwz/tcgp-sync/internal/export"
	"github.com/tommycwz/tcgp-sync/internal/model"
	"github.com/tommycwz/tcgp-sync/internal/resilience"
	"github.com/tommycwz/tcgp-sync/internal/sets"
)

var setsCmd = &cobra.Command{
	Use:   "sets",
	Short: "Merge the set listings into the sets file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("sets"); err != nil {
			return err
		}
		f := newFetcher(cfg)
		_, err := sets.NewGenerator(newTCGdex(cfg, f), newPocketDB(cfg, f), cfg.Output.SetsPath).Run(cmd.Context())
		return err
	},
}

var cardsCmd = &cobra.Command{
	Use:   "cards",
	Short: "Reorder and enrich the card list into the cards file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("cards"); err != nil {
			return err
		}
		if noEnrichCards {
			cfg.Enrich.Enabled = false
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runCards(ctx, cfg, newFetcher(cfg), resilience.NewLedger(runID))
	},
}

var noEnrichCards bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Crawl full TCGdex card documents for every set in the sets file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("catalog"); err != nil {
			return err
		}
		var merged []model.Set
		if err := export.ReadJSON(cfg.Output.SetsPath, &merged); err != nil {
			return eris.Wrap(err, "catalog: read sets file")
		}

		ledger := resilience.NewLedger(runID)
		c := catalog.New(newTCGdex(cfg, newFetcher(cfg)), ledger, catalog.Options{
			SetWorkers:  cfg.Catalog.SetWorkers,
			CardWorkers: cfg.Catalog.CardWorkers,
			IDCachePath: cfg.Catalog.IDCachePath,
			OutputPath:  cfg.Catalog.OutputPath,
		})
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		if _, err := c.Run(ctx, model.SetCodes(merged)); err != nil {
			return err
		}
		if n := ledger.Len(); n > 0 {
			zap.L().Warn("catalog completed with failures", zap.Int("failures", n), zap.Any("by_stage", ledger.Counts()))
		}
		return nil
	},
}

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Combine the owned-card export with the reference list",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("collection"); err != nil {
			return err
		}
		entries, err := collection.Run(collection.Paths{
			Reference: cfg.Collection.ReferencePath,
			Owned:     cfg.Collection.OwnedPath,
			Cards:     cfg.Output.CardsPath,
			Combined:  cfg.Collection.CombinedPath,
			CSV:       cfg.Collection.CSVPath,
			XLSX:      cfg.Collection.XLSXPath,
		})
		if err != nil {
			return err
		}
		zap.L().Info("collection exported", zap.Int("entries", len(entries)))
		return nil
	},
}

func init() {
	cardsCmd.Flags().BoolVar(&noEnrichCards, "no-enrich", false, "skip per-card detail enrichment")
	rootCmd.AddCommand(setsCmd, cardsCmd, catalogCmd, collectionCmd)
}
