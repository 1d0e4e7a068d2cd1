// Package tcgdex provides a client for the TCGdex card database API.
package tcgdex

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/tommycwz/tcgp-sync/internal/fetcher"
)

// DefaultBaseURL is the English v2 API root.
const DefaultBaseURL = "https://api.tcgdex.net/v2/en"

// DefaultSeries is the TCG Pocket series id.
const DefaultSeries = "tcgp"

// Client defines the TCGdex operations the collectors use.
type Client interface {
	// Series returns the raw set summaries of the configured series.
	Series(ctx context.Context) ([]json.RawMessage, error)
	// Set returns one set with its card list.
	Set(ctx context.Context, id string) (*Set, error)
	// Card returns the raw detail object of one card.
	Card(ctx context.Context, id string) (json.RawMessage, error)
}

// Set is a set document. Cards entries are either id strings or card
// brief objects, depending on the API version.
type Set struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Cards []json.RawMessage `json:"cards"`
}

// Option configures the TCGdex client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// WithSeries selects the series listed by Series.
func WithSeries(id string) Option {
	return func(c *httpClient) {
		c.series = id
	}
}

type httpClient struct {
	baseURL string
	series  string
	fetch   fetcher.Fetcher
}

// NewClient creates a TCGdex client that issues requests through f.
func NewClient(f fetcher.Fetcher, opts ...Option) Client {
	c := &httpClient{
		baseURL: DefaultBaseURL,
		series:  DefaultSeries,
		fetch:   f,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) endpoint(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	return c.baseURL + "/" + strings.Join(escaped, "/")
}

func (c *httpClient) Series(ctx context.Context) ([]json.RawMessage, error) {
	body, err := c.fetch.Get(ctx, c.endpoint("series", c.series))
	if err != nil {
		return nil, eris.Wrapf(err, "tcgdex: fetch series %s", c.series)
	}

	var doc struct {
		Sets []json.RawMessage `json:"sets"`
	}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, eris.Wrapf(err, "tcgdex: decode series %s", c.series)
	}
	return doc.Sets, nil
}

func (c *httpClient) Set(ctx context.Context, id string) (*Set, error) {
	body, err := c.fetch.Get(ctx, c.endpoint("sets", id))
	if err != nil {
		return nil, eris.Wrapf(err, "tcgdex: fetch set %s", id)
	}

	var set Set
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, eris.Wrapf(err, "tcgdex: decode set %s", id)
	}
	return &set, nil
}

func (c *httpClient) Card(ctx context.Context, id string) (json.RawMessage, error) {
	body, err := c.fetch.Get(ctx, c.endpoint("cards", id))
	if err != nil {
		return nil, eris.Wrapf(err, "tcgdex: fetch card %s", id)
	}
	if !json.Valid(body) {
		return nil, eris.Errorf("tcgdex: card %s: malformed payload", id)
	}
	return json.RawMessage(body), nil
}
