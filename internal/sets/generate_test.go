package sets

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommycwz/tcgp-sync/pkg/tcgdex"
)

type fakeTCGdex struct {
	series []json.RawMessage
	err    error
}

func (f *fakeTCGdex) Series(context.Context) ([]json.RawMessage, error) { return f.series, f.err }
func (f *fakeTCGdex) Set(context.Context, string) (*tcgdex.Set, error) {
	return nil, errors.New("not used")
}
func (f *fakeTCGdex) Card(context.Context, string) (json.RawMessage, error) {
	return nil, errors.New("not used")
}

type fakePocketDB struct {
	sets []json.RawMessage
	err  error
}

func (f *fakePocketDB) Sets(context.Context) ([]json.RawMessage, error)  { return f.sets, f.err }
func (f *fakePocketDB) Cards(context.Context) ([]json.RawMessage, error) { return nil, nil }

func TestGenerator_WritesSetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "sets.json")
	g := NewGenerator(&fakeTCGdex{series: testPrimary}, &fakePocketDB{sets: testSecondary}, path)

	got, err := g.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 6)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "[\n    {\n        \"code\": \"A0\",\n        \"name\": \"Unknown\","))

	// Unchanged inputs give a byte-identical file.
	_, err = g.Run(context.Background())
	require.NoError(t, err)
	again, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(again))
}

func TestGenerator_FetchFailureWritesNothing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sets.json")
	g := NewGenerator(&fakeTCGdex{series: testPrimary}, &fakePocketDB{err: errors.New("http 503")}, path)

	got, err := g.Run(context.Background())
	require.Error(t, err)
	assert.Empty(t, got)
	assert.Contains(t, err.Error(), "sets: secondary listing")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}
