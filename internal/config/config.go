package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Sources    SourcesConfig    `yaml:"sources" mapstructure:"sources"`
	HTTP       HTTPConfig       `yaml:"http" mapstructure:"http"`
	Output     OutputConfig     `yaml:"output" mapstructure:"output"`
	Enrich     EnrichConfig     `yaml:"enrich" mapstructure:"enrich"`
	Cache      CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Catalog    CatalogConfig    `yaml:"catalog" mapstructure:"catalog"`
	Collection CollectionConfig `yaml:"collection" mapstructure:"collection"`
	Publish    PublishConfig    `yaml:"publish" mapstructure:"publish"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// SourcesConfig holds the upstream API locations.
type SourcesConfig struct {
	TCGdexBaseURL   string `yaml:"tcgdex_base_url" mapstructure:"tcgdex_base_url"`
	TCGdexSeries    string `yaml:"tcgdex_series" mapstructure:"tcgdex_series"`
	PocketDBBaseURL string `yaml:"pocketdb_base_url" mapstructure:"pocketdb_base_url"`
}

// HTTPConfig configures the shared HTTP fetcher, its retry policy and the
// circuit breaker around detail fetches.
type HTTPConfig struct {
	UserAgent          string `yaml:"user_agent" mapstructure:"user_agent"`
	ConnectTimeoutSecs int    `yaml:"connect_timeout_secs" mapstructure:"connect_timeout_secs"`
	ReadTimeoutSecs    int    `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	MaxRetries         int    `yaml:"max_retries" mapstructure:"max_retries"`
	InitialBackoffMs   int    `yaml:"initial_backoff_ms" mapstructure:"initial_backoff_ms"`
	MaxBackoffMs       int    `yaml:"max_backoff_ms" mapstructure:"max_backoff_ms"`
	CircuitThreshold   int    `yaml:"circuit_threshold" mapstructure:"circuit_threshold"`
	CircuitResetSecs   int    `yaml:"circuit_reset_secs" mapstructure:"circuit_reset_secs"`
}

// OutputConfig holds the artifact paths written by the sets and cards stages.
type OutputConfig struct {
	SetsPath     string `yaml:"sets_path" mapstructure:"sets_path"`
	CardsPath    string `yaml:"cards_path" mapstructure:"cards_path"`
	FailuresPath string `yaml:"failures_path" mapstructure:"failures_path"`
}

// EnrichConfig configures per-card detail enrichment.
type EnrichConfig struct {
	Enabled  bool     `yaml:"enabled" mapstructure:"enabled"`
	Workers  int      `yaml:"workers" mapstructure:"workers"`
	Fields   []string `yaml:"fields" mapstructure:"fields"`
	FoilPath string   `yaml:"foil_path" mapstructure:"foil_path"`
}

// CacheConfig selects the detail cache backend.
type CacheConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	Path   string `yaml:"path" mapstructure:"path"`
}

// CatalogConfig configures the per-set catalog crawl.
type CatalogConfig struct {
	SetWorkers  int    `yaml:"set_workers" mapstructure:"set_workers"`
	CardWorkers int    `yaml:"card_workers" mapstructure:"card_workers"`
	IDCachePath string `yaml:"id_cache_path" mapstructure:"id_cache_path"`
	OutputPath  string `yaml:"output_path" mapstructure:"output_path"`
}

// CollectionConfig holds the inputs and outputs of the collection export.
type CollectionConfig struct {
	ReferencePath string `yaml:"reference_path" mapstructure:"reference_path"`
	OwnedPath     string `yaml:"owned_path" mapstructure:"owned_path"`
	CombinedPath  string `yaml:"combined_path" mapstructure:"combined_path"`
	CSVPath       string `yaml:"csv_path" mapstructure:"csv_path"`
	XLSXPath      string `yaml:"xlsx_path" mapstructure:"xlsx_path"`
}

// PublishConfig configures the optional artifact sinks.
type PublishConfig struct {
	DatabaseURL string       `yaml:"database_url" mapstructure:"database_url"`
	Bucket      BucketConfig `yaml:"bucket" mapstructure:"bucket"`
}

// BucketConfig holds S3-compatible object storage settings.
type BucketConfig struct {
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	Region    string `yaml:"region" mapstructure:"region"`
	Name      string `yaml:"name" mapstructure:"name"`
	Prefix    string `yaml:"prefix" mapstructure:"prefix"`
	UseSSL    bool   `yaml:"use_ssl" mapstructure:"use_ssl"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultEnrichFields is the detail allow-list copied onto cards.
var DefaultEnrichFields = []string{
	"hp", "types", "description", "stage", "attacks",
	"weaknesses", "retreat", "abilities", "evolveFrom",
}

// Load reads configuration from config.yaml (optional), TCGP_* environment
// variables and compiled-in defaults, in decreasing precedence order
// env > file > defaults.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("TCGP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("sources.tcgdex_base_url", "https://api.tcgdex.net/v2/en")
	v.SetDefault("sources.tcgdex_series", "tcgp")
	v.SetDefault("sources.pocketdb_base_url", "https://raw.githubusercontent.com/flibustier/pokemon-tcg-pocket-database/main/dist")
	v.SetDefault("http.user_agent", "tcgp-sync/1.0 (+https://github.com/tommycwz)")
	v.SetDefault("http.connect_timeout_secs", 6)
	v.SetDefault("http.read_timeout_secs", 30)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.initial_backoff_ms", 500)
	v.SetDefault("http.max_backoff_ms", 30000)
	v.SetDefault("http.circuit_threshold", 10)
	v.SetDefault("http.circuit_reset_secs", 30)
	v.SetDefault("output.sets_path", "data/sets.json")
	v.SetDefault("output.cards_path", "data/cards.json")
	v.SetDefault("output.failures_path", "data/enrich_failures.json")
	v.SetDefault("enrich.enabled", true)
	v.SetDefault("enrich.workers", 16)
	v.SetDefault("enrich.fields", DefaultEnrichFields)
	v.SetDefault("enrich.foil_path", "data/foil.txt")
	v.SetDefault("cache.driver", "json")
	v.SetDefault("cache.path", "data/card_details.json")
	v.SetDefault("catalog.set_workers", 8)
	v.SetDefault("catalog.card_workers", 16)
	v.SetDefault("catalog.id_cache_path", "data/card_ids.json")
	v.SetDefault("catalog.output_path", "data/catalog.json")
	v.SetDefault("collection.reference_path", "data/reference.json")
	v.SetDefault("collection.owned_path", "data/owned.json")
	v.SetDefault("collection.combined_path", "data/combined.json")
	v.SetDefault("collection.csv_path", "data/collection.csv")
	v.SetDefault("publish.bucket.prefix", "tcgp")
	v.SetDefault("publish.bucket.use_ssl", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings a command depends on. All problems are
// reported together.
func (c *Config) Validate(command string) error {
	var problems []string
	require := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	require(c.HTTP.ConnectTimeoutSecs > 0, "http.connect_timeout_secs must be positive")
	require(c.HTTP.ReadTimeoutSecs > 0, "http.read_timeout_secs must be positive")
	require(c.HTTP.MaxRetries >= 0, "http.max_retries must not be negative")

	switch command {
	case "sets":
		require(c.Output.SetsPath != "", "output.sets_path is required")
	case "cards":
		c.validateCards(require)
	case "generate":
		require(c.Output.SetsPath != "", "output.sets_path is required")
		c.validateCards(require)
	case "catalog":
		require(c.Catalog.SetWorkers > 0, "catalog.set_workers must be positive")
		require(c.Catalog.CardWorkers > 0, "catalog.card_workers must be positive")
		require(c.Catalog.OutputPath != "", "catalog.output_path is required")
	case "collection":
		require(c.Collection.ReferencePath != "", "collection.reference_path is required")
		require(c.Collection.OwnedPath != "", "collection.owned_path is required")
		require(c.Collection.CombinedPath != "", "collection.combined_path is required")
	case "publish":
		b := c.Publish.Bucket
		require(c.Publish.DatabaseURL != "" || b.Endpoint != "",
			"publish.database_url or publish.bucket.endpoint is required")
		if b.Endpoint != "" {
			require(b.Name != "", "publish.bucket.name is required")
		}
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) validateCards(require func(bool, string)) {
	require(c.Output.CardsPath != "", "output.cards_path is required")
	require(c.Enrich.Workers > 0, "enrich.workers must be positive")
	switch c.Cache.Driver {
	case "json", "sqlite":
	default:
		require(false, "cache.driver must be json or sqlite")
	}
	require(c.Cache.Path != "", "cache.path is required")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
