package main

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/config"
)

var (
	cfg   *config.Config
	runID string
)

var rootCmd = &cobra.Command{
	Use:   "tcgp-sync",
	Short: "Pokémon TCG Pocket set and card data collector",
	Long: "Collects set and card metadata from PocketDB and TCGdex, merges and normalizes it, " +
		"enriches cards with per-card details and writes JSON artifacts for the collection tracker. " +
		"Without a subcommand it runs the sets and cards stages in sequence.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		runID = uuid.NewString()
		zap.ReplaceGlobals(zap.L().With(zap.String("run_id", runID)))
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate(cmd, args)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
