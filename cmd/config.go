package main

import (
	"io"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tommycwz/tcgp-sync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect configuration",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print the effective configuration as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		return dumpConfig(cmd.OutOrStdout(), cfg)
	},
}

// dumpConfig writes c as YAML with secrets masked.
func dumpConfig(w io.Writer, c *config.Config) error {
	masked := *c
	if masked.Publish.DatabaseURL != "" {
		masked.Publish.DatabaseURL = "***"
	}
	if masked.Publish.Bucket.SecretKey != "" {
		masked.Publish.Bucket.SecretKey = "***"
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(masked); err != nil {
		return eris.Wrap(err, "config: encode yaml")
	}
	return enc.Close()
}

func init() {
	configCmd.AddCommand(configDumpCmd)
	rootCmd.AddCommand(configCmd)
}
