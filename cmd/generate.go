package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/resilience"
	"github.com/tommycwz/tcgp-sync/internal/sets"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the sets and cards stages",
	Long: "Writes the merged sets file, then the reordered and enriched cards file. " +
		"A failed sets stage does not stop the cards stage; the command exits non-zero if either failed.",
	RunE: runGenerate,
}

var noEnrich bool

func runGenerate(cmd *cobra.Command, _ []string) error {
	if err := cfg.Validate("generate"); err != nil {
		return err
	}
	if noEnrich {
		cfg.Enrich.Enabled = false
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	log := zap.L().With(zap.String("command", "generate"))

	f := newFetcher(cfg)
	var failed []string

	if _, err := sets.NewGenerator(newTCGdex(cfg, f), newPocketDB(cfg, f), cfg.Output.SetsPath).Run(ctx); err != nil {
		log.Error("sets stage failed", zap.Error(err))
		failed = append(failed, "sets")
	}

	if ctx.Err() == nil {
		if err := runCards(ctx, cfg, f, resilience.NewLedger(runID)); err != nil {
			log.Error("cards stage failed", zap.Error(err))
			failed = append(failed, "cards")
		}
	}

	if len(failed) > 0 {
		return eris.Errorf("generate: stages failed: %v", failed)
	}
	log.Info("generate complete")
	return nil
}

func init() {
	generateCmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip per-card detail enrichment")
	rootCmd.Flags().BoolVar(&noEnrich, "no-enrich", false, "skip per-card detail enrichment")
	rootCmd.AddCommand(generateCmd)
}
