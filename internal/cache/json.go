package cache

import (
	"context"
	"errors"
	"os"

	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/export"
)

// JSONStore keeps the cache in a single JSON file.
type JSONStore struct {
	path string
}

// NewJSONStore returns a store backed by the file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path}
}

// Load reads the cache file. A missing file yields an empty cache; an
// unreadable one yields an empty cache and a warning, and the next Save
// replaces it.
func (s *JSONStore) Load(_ context.Context) (*Details, error) {
	d := NewDetails()
	err := export.ReadJSON(s.path, d)
	switch {
	case err == nil:
	case errors.Is(err, os.ErrNotExist):
		zap.L().Debug("cache: no cache file yet", zap.String("path", s.path))
	default:
		zap.L().Warn("cache: ignoring unreadable cache file",
			zap.String("path", s.path),
			zap.Error(err),
		)
		d = NewDetails()
	}
	return d, nil
}

// Save writes the whole cache atomically.
func (s *JSONStore) Save(_ context.Context, d *Details) error {
	return export.WriteJSON(s.path, d, export.IndentCards)
}

// Close is a no-op.
func (s *JSONStore) Close() error { return nil }
