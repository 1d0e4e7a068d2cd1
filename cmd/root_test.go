package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/tommycwz/tcgp-sync/internal/config"
	"github.com/tommycwz/tcgp-sync/internal/resilience"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"generate", "sets", "cards", "catalog", "collection", "publish", "config"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "tcgp-sync", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.NotNil(t, rootCmd.RunE, "no-argument invocation runs generate")
}

func TestNoEnrichFlags(t *testing.T) {
	for _, c := range []string{"generate", "cards"} {
		cmd, _, err := rootCmd.Find([]string{c})
		require.NoError(t, err)
		flag := cmd.Flags().Lookup("no-enrich")
		require.NotNil(t, flag, "%s should have --no-enrich", c)
		assert.Equal(t, "false", flag.DefValue)
	}
	assert.NotNil(t, rootCmd.Flags().Lookup("no-enrich"))
}

func TestConfigDump_MasksSecrets(t *testing.T) {
	c := &config.Config{}
	c.Output.SetsPath = "data/sets.json"
	c.Publish.DatabaseURL = "postgres://user:pw@localhost/tcgp"
	c.Publish.Bucket.SecretKey = "s3cret"

	var buf bytes.Buffer
	require.NoError(t, dumpConfig(&buf, c))

	out := buf.String()
	assert.NotContains(t, out, "pw@localhost")
	assert.NotContains(t, out, "s3cret")
	assert.Equal(t, "postgres://user:pw@localhost/tcgp", c.Publish.DatabaseURL, "original config untouched")

	var back config.Config
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &back))
	assert.Equal(t, "data/sets.json", back.Output.SetsPath)
	assert.Equal(t, "***", back.Publish.DatabaseURL)
}

func TestLoadArtifacts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	c := &config.Config{}
	c.Output.SetsPath = write("sets.json", `[{"code":"A1","name":"Genetic Apex","shortName":"GA","series":"A","count":286,"releaseDate":null,"packs":[]}]`)
	c.Output.CardsPath = write("cards.json", `[{"series":"A","set":"A1","number":1,"id":"A1-001","rarity":"C"}]`)
	c.Catalog.OutputPath = filepath.Join(dir, "catalog.json")

	a, err := loadArtifacts(c)
	require.NoError(t, err)
	require.Len(t, a.Sets, 1)
	assert.Equal(t, "A1", a.Sets[0].Code)
	require.Len(t, a.Cards, 1)
	assert.True(t, a.Cards[0].Keyed)
	assert.Equal(t, "A1-001", a.Cards[0].ID)
	assert.Empty(t, a.Catalog)
}

func TestLoadArtifacts_MissingCards(t *testing.T) {
	dir := t.TempDir()
	c := &config.Config{}
	c.Output.SetsPath = filepath.Join(dir, "sets.json")
	require.NoError(t, os.WriteFile(c.Output.SetsPath, []byte(`[]`), 0o644))
	c.Output.CardsPath = filepath.Join(dir, "cards.json")

	_, err := loadArtifacts(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read cards file")
}

func TestRunCards_WritesCardsAndCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/cards.json"):
			_, _ = w.Write([]byte(`[{"set":"A1","number":1,"rarity":"◊"}]`))
		case strings.HasSuffix(r.URL.Path, "/cards/A1-001"):
			_, _ = w.Write([]byte(`{"id":"A1-001","category":"Pokemon","hp":70}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	dir := t.TempDir()
	c := &config.Config{}
	c.Sources.TCGdexBaseURL = srv.URL
	c.Sources.TCGdexSeries = "tcgp"
	c.Sources.PocketDBBaseURL = srv.URL
	c.HTTP.ConnectTimeoutSecs = 2
	c.HTTP.ReadTimeoutSecs = 2
	c.HTTP.MaxRetries = 0
	c.HTTP.CircuitThreshold = 5
	c.HTTP.CircuitResetSecs = 1
	c.Output.CardsPath = filepath.Join(dir, "cards.json")
	c.Output.FailuresPath = filepath.Join(dir, "failures.json")
	c.Enrich.Enabled = true
	c.Enrich.Workers = 2
	c.Enrich.Fields = []string{"hp"}
	c.Cache.Driver = "json"
	c.Cache.Path = filepath.Join(dir, "details.json")

	require.NoError(t, runCards(t.Context(), c, newFetcher(c), resilience.NewLedger("test")))

	out, err := os.ReadFile(c.Output.CardsPath)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"id": "A1-001"`)
	assert.Contains(t, string(out), `"hp": 70`)

	_, err = os.Stat(c.Cache.Path)
	assert.NoError(t, err)
}
