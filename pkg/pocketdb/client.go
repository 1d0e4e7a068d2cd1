// Package pocketdb reads the published dist files of the Pokémon TCG Pocket
// database repository.
package pocketdb

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tommycwz/tcgp-sync/internal/fetcher"
)

// DefaultBaseURL is the dist directory on the raw GitHub CDN.
const DefaultBaseURL = "https://raw.githubusercontent.com/flibustier/pokemon-tcg-pocket-database/main/dist"

// Client defines the PocketDB operations.
type Client interface {
	// Sets returns the raw elements of sets.json in document order.
	Sets(ctx context.Context) ([]json.RawMessage, error)
	// Cards returns the raw elements of cards.json in document order.
	Cards(ctx context.Context) ([]json.RawMessage, error)
}

// Option configures the PocketDB client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

type httpClient struct {
	baseURL string
	fetch   fetcher.Fetcher
}

// NewClient creates a PocketDB client that issues requests through f.
func NewClient(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{baseURL: DefaultBaseURL, fetch: f}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Sets(ctx context.Context) ([]json.RawMessage, error) {
	return c.list(ctx, "sets.json")
}

func (c *httpClient) Cards(ctx context.Context) ([]json.RawMessage, error) {
	return c.list(ctx, "cards.json")
}

func (c *httpClient) list(ctx context.Context, name string) ([]json.RawMessage, error) {
	body, err := c.fetch.Get(ctx, c.baseURL+"/"+name)
	if err != nil {
		return nil, eris.Wrapf(err, "pocketdb: fetch %s", name)
	}
	items, err := fetcher.CollectJSONArray(ctx, body)
	if err != nil {
		return nil, eris.Wrapf(err, "pocketdb: decode %s", name)
	}
	return items, nil
}
