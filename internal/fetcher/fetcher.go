// Package fetcher downloads JSON documents over HTTP and streams the local
// text inputs (CSV lists, JSON arrays) the stages consume.
package fetcher

import (
	"context"
	"fmt"
)

// Fetcher retrieves a remote document.
type Fetcher interface {
	// Get fetches the URL and returns the full response body. Transient
	// failures are retried; other non-2xx responses return a *StatusError.
	Get(ctx context.Context, url string) ([]byte, error)
}

// StatusError is a non-2xx response that was not retried.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.StatusCode, e.URL)
}
