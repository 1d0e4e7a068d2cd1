package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommycwz/tcgp-sync/internal/export"
	"github.com/tommycwz/tcgp-sync/internal/fetcher"
	"github.com/tommycwz/tcgp-sync/internal/resilience"
	"github.com/tommycwz/tcgp-sync/pkg/tcgdex"
)

type fakeClient struct {
	sets  map[string]string
	cards map[string]string

	mu       sync.Mutex
	setCalls int
}

func (f *fakeClient) Series(context.Context) ([]json.RawMessage, error) { return nil, nil }

func (f *fakeClient) Set(_ context.Context, id string) (*tcgdex.Set, error) {
	f.mu.Lock()
	f.setCalls++
	f.mu.Unlock()

	doc, ok := f.sets[id]
	if !ok {
		return nil, &fetcher.StatusError{URL: id, StatusCode: 404}
	}
	var s tcgdex.Set
	if err := json.Unmarshal([]byte(doc), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (f *fakeClient) Card(_ context.Context, id string) (json.RawMessage, error) {
	doc, ok := f.cards[id]
	if !ok {
		return nil, errors.New("http 404")
	}
	return json.RawMessage(doc), nil
}

func newFake() *fakeClient {
	return &fakeClient{
		sets: map[string]string{
			"A1":  `{"id":"A1","cards":[{"id":"A1-001","localId":"001"},"A1-002",{"localId":"003"},{"number":4},{"name":"nothing"}]}`,
			"P-A": `{"id":"P-A","cards":[{"cardID":"P-A-001"},{"slug":"A1-002"}]}`,
		},
		cards: map[string]string{
			"A1-001":  `{"id":"a1-001","name":"Bulbasaur","rarity":"One Diamond","image":"https://assets.tcgdex.net/en/tcgp/A1/001"}`,
			"A1-002":  `{"id":"A1-002","name":"Ivysaur","rarity":"Two Diamonds","image":"https://assets.tcgdex.net/en/tcgp/A1/002/high.webp"}`,
			"a1-003":  `{"id":"a1-003","name":"Venusaur","rarity":"three-diamond"}`,
			"P-A-001": `{"id":"P-A-001","name":"Potion","rarity":"None"}`,
		},
	}
}

func TestCardIDs(t *testing.T) {
	var s tcgdex.Set
	require.NoError(t, json.Unmarshal([]byte(newFake().sets["A1"]), &s))

	assert.Equal(t, []string{"A1-001", "A1-002", "a1-003", "a1-4"}, CardIDs("A1", s.Cards))
}

func TestDiscoverCardIDs_OrderAndDedupe(t *testing.T) {
	dir := t.TempDir()
	cachePath := filepath.Join(dir, "ids.json")
	client := newFake()
	ledger := resilience.NewLedger("run")
	c := New(client, ledger, Options{IDCachePath: cachePath})

	ids, err := c.DiscoverCardIDs(context.Background(), []string{"A1", "MISSING", "P-A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A1-001", "A1-002", "a1-003", "a1-4", "P-A-001"}, ids)

	require.Equal(t, 1, ledger.Len())
	assert.Equal(t, "MISSING", ledger.Failures()[0].Key)

	var cached []string
	require.NoError(t, export.ReadJSON(cachePath, &cached))
	assert.Equal(t, ids, cached)

	// Second discovery is served from the id cache.
	again, err := c.DiscoverCardIDs(context.Background(), []string{"A1", "MISSING", "P-A"})
	require.NoError(t, err)
	assert.Equal(t, ids, again)
	assert.Equal(t, 3, client.setCalls)
}

func TestDiscoverCardIDs_EmptyCacheRefetches(t *testing.T) {
	cachePath := filepath.Join(t.TempDir(), "ids.json")
	require.NoError(t, os.WriteFile(cachePath, []byte("[]"), 0644))
	client := newFake()

	ids, err := New(client, nil, Options{IDCachePath: cachePath}).DiscoverCardIDs(context.Background(), []string{"P-A"})
	require.NoError(t, err)
	assert.Equal(t, []string{"P-A-001", "A1-002"}, ids)
	assert.Equal(t, 1, client.setCalls)
}

func TestFetchCards_NormalizesAndKeepsOrder(t *testing.T) {
	c := New(newFake(), nil, Options{CardWorkers: 3})

	cards, err := c.FetchCards(context.Background(), []string{"A1-002", "A1-001", "missing", "a1-003", "P-A-001"})
	require.NoError(t, err)
	require.Len(t, cards, 4)

	var ids, rarities []string
	for _, card := range cards {
		id, _ := card.String("id")
		rarity, _ := card.String("rarity")
		ids = append(ids, id)
		rarities = append(rarities, rarity)
	}
	assert.Equal(t, []string{"A1-002", "A1-001", "A1-003", "P-A-001"}, ids)
	assert.Equal(t, []string{"◊◊", "◊", "◊◊◊", "P"}, rarities)

	img, _ := cards[0].String("image")
	assert.Equal(t, "https://assets.tcgdex.net/en/tcgp/A1/002/low.webp", img)
	img, _ = cards[1].String("image")
	assert.Equal(t, "https://assets.tcgdex.net/en/tcgp/A1/001/low.webp", img)
	assert.False(t, cards[2].Has("image"))
}

func TestRun_WritesCatalog(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "catalog.json")
	c := New(newFake(), nil, Options{OutputPath: out})

	cards, err := c.Run(context.Background(), []string{"P-A"})
	require.NoError(t, err)
	assert.Len(t, cards, 2)

	var written []map[string]any
	require.NoError(t, export.ReadJSON(out, &written))
	require.Len(t, written, 2)
	assert.Equal(t, "P-A-001", written[0]["id"])
	assert.Equal(t, "Ivysaur", written[1]["name"])
}

func TestRun_NoIDs(t *testing.T) {
	_, err := New(newFake(), nil, Options{OutputPath: filepath.Join(t.TempDir(), "c.json")}).Run(context.Background(), []string{"NOPE"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no card ids")
}
