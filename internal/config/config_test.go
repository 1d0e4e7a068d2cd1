package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://api.tcgdex.net/v2/en", cfg.Sources.TCGdexBaseURL)
	assert.Equal(t, "tcgp", cfg.Sources.TCGdexSeries)
	assert.Contains(t, cfg.Sources.PocketDBBaseURL, "raw.githubusercontent.com")
	assert.Equal(t, 6, cfg.HTTP.ConnectTimeoutSecs)
	assert.Equal(t, 30, cfg.HTTP.ReadTimeoutSecs)
	assert.Equal(t, 3, cfg.HTTP.MaxRetries)
	assert.Equal(t, 500, cfg.HTTP.InitialBackoffMs)
	assert.Equal(t, "data/sets.json", cfg.Output.SetsPath)
	assert.Equal(t, "data/cards.json", cfg.Output.CardsPath)
	assert.True(t, cfg.Enrich.Enabled)
	assert.Equal(t, 16, cfg.Enrich.Workers)
	assert.Equal(t, DefaultEnrichFields, cfg.Enrich.Fields)
	assert.Equal(t, "json", cfg.Cache.Driver)
	assert.Equal(t, 8, cfg.Catalog.SetWorkers)
	assert.Equal(t, 16, cfg.Catalog.CardWorkers)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Publish.DatabaseURL)

	assert.NoError(t, cfg.Validate("generate"))
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
enrich:
  workers: 4
  fields: [hp, types]
cache:
  driver: sqlite
  path: cache/details.db
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Enrich.Workers)
	assert.Equal(t, []string{"hp", "types"}, cfg.Enrich.Fields)
	assert.Equal(t, "sqlite", cfg.Cache.Driver)
	assert.Equal(t, "cache/details.db", cfg.Cache.Path)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Defaults still apply for unset values
	assert.Equal(t, 16, cfg.Catalog.CardWorkers)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
cache:
  driver: sqlite
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	t.Setenv("TCGP_CACHE_DRIVER", "json")
	t.Setenv("TCGP_LOG_LEVEL", "warn")
	t.Setenv("TCGP_ENRICH_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Cache.Driver)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 2, cfg.Enrich.Workers)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("enrich: [unclosed"), 0644))

	_, err := Load()
	assert.Error(t, err)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config with the defaults validation depends on.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.HTTP.ConnectTimeoutSecs = 6
	cfg.HTTP.ReadTimeoutSecs = 30
	cfg.HTTP.MaxRetries = 3
	cfg.Output.SetsPath = "data/sets.json"
	cfg.Output.CardsPath = "data/cards.json"
	cfg.Enrich.Workers = 16
	cfg.Cache.Driver = "json"
	cfg.Cache.Path = "data/card_details.json"
	cfg.Catalog.SetWorkers = 8
	cfg.Catalog.CardWorkers = 16
	cfg.Catalog.OutputPath = "data/catalog.json"
	return cfg
}

func TestValidateCards_BadDriver(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Driver = "redis"
	cfg.Enrich.Workers = 0

	err := cfg.Validate("cards")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cache.driver must be json or sqlite")
	assert.Contains(t, err.Error(), "enrich.workers must be positive")
}

func TestValidateSets_IgnoresCardSettings(t *testing.T) {
	cfg := validDefaults()
	cfg.Cache.Driver = "redis"

	assert.NoError(t, cfg.Validate("sets"))
}

func TestValidateCollection_MissingPaths(t *testing.T) {
	cfg := validDefaults()

	err := cfg.Validate("collection")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collection.reference_path is required")
	assert.Contains(t, err.Error(), "collection.owned_path is required")
}

func TestValidatePublish(t *testing.T) {
	cfg := validDefaults()
	err := cfg.Validate("publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish.database_url or publish.bucket.endpoint is required")

	cfg.Publish.Bucket.Endpoint = "localhost:9000"
	err = cfg.Validate("publish")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish.bucket.name is required")

	cfg.Publish.Bucket.Name = "tcgp"
	assert.NoError(t, cfg.Validate("publish"))

	cfg = validDefaults()
	cfg.Publish.DatabaseURL = "postgres://localhost/tcgp"
	assert.NoError(t, cfg.Validate("publish"))
}

func TestValidate_TimeoutsAlwaysChecked(t *testing.T) {
	cfg := validDefaults()
	cfg.HTTP.ReadTimeoutSecs = 0

	err := cfg.Validate("catalog")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "http.read_timeout_secs must be positive")
}
