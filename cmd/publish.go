package main

import (
	"context"
	"errors"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/config"
	"github.com/tommycwz/tcgp-sync/internal/db"
	"github.com/tommycwz/tcgp-sync/internal/export"
	"github.com/tommycwz/tcgp-sync/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push generated artifacts to Postgres and/or object storage",
	Long: "Loads the sets, cards and (optional) catalog files and publishes them to every configured sink. " +
		"Postgres is used when publish.database_url is set; object storage when publish.bucket.endpoint is set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("publish"); err != nil {
			return err
		}
		ctx := cmd.Context()

		if cfg.Publish.DatabaseURL != "" {
			if err := publishPostgres(ctx, cfg); err != nil {
				return err
			}
		}
		if cfg.Publish.Bucket.Endpoint != "" {
			if err := publishBucket(ctx, cfg); err != nil {
				return err
			}
		}
		return nil
	},
}

// loadArtifacts reads the generated files. The catalog is optional.
func loadArtifacts(c *config.Config) (publish.Artifacts, error) {
	var a publish.Artifacts
	if err := export.ReadJSON(c.Output.SetsPath, &a.Sets); err != nil {
		return a, eris.Wrap(err, "publish: read sets file")
	}
	if err := export.ReadJSON(c.Output.CardsPath, &a.Cards); err != nil {
		return a, eris.Wrap(err, "publish: read cards file")
	}
	if err := export.ReadJSON(c.Catalog.OutputPath, &a.Catalog); err != nil && !errors.Is(err, os.ErrNotExist) {
		return a, eris.Wrap(err, "publish: read catalog file")
	}
	return a, nil
}

func publishPostgres(ctx context.Context, c *config.Config) error {
	artifacts, err := loadArtifacts(c)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, c.Publish.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	_, err = publish.NewPostgres(pool).Publish(ctx, artifacts)
	return err
}

func publishBucket(ctx context.Context, c *config.Config) error {
	b := c.Publish.Bucket
	opts := publish.BucketOptions{
		Endpoint:  b.Endpoint,
		AccessKey: b.AccessKey,
		SecretKey: b.SecretKey,
		Region:    b.Region,
		Name:      b.Name,
		Prefix:    b.Prefix,
		UseSSL:    b.UseSSL,
	}
	client, err := publish.NewObjectClient(opts)
	if err != nil {
		return err
	}

	keys, err := publish.NewBucket(client, opts).Upload(ctx,
		c.Output.SetsPath, c.Output.CardsPath, c.Catalog.OutputPath)
	if err != nil {
		return err
	}
	zap.L().Info("published to bucket", zap.String("bucket", b.Name), zap.Strings("keys", keys))
	return nil
}

func init() {
	rootCmd.AddCommand(publishCmd)
}
