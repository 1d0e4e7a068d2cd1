// Package cache persists TCGdex card details between runs so each id is
// fetched once. The cache only grows: entries are never replaced or pruned.
package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/model"
)

// Store loads and saves a detail cache.
type Store interface {
	Load(ctx context.Context) (*Details, error)
	Save(ctx context.Context, d *Details) error
	Close() error
}

// Details maps card ids to their detail objects. It is owned by a single
// goroutine; callers fan results in before writing.
//
// Stored values that are not objects are kept verbatim in opaque: they are
// saved back unchanged but never returned by Get.
type Details struct {
	entries map[string]model.Detail
	opaque  map[string]json.RawMessage
	added   []string
}

// NewDetails returns an empty cache.
func NewDetails() *Details {
	return &Details{
		entries: make(map[string]model.Detail),
		opaque:  make(map[string]json.RawMessage),
	}
}

// Get returns the detail cached for id.
func (d *Details) Get(id string) (model.Detail, bool) {
	detail, ok := d.entries[id]
	return detail, ok
}

// Has reports whether id is cached, including opaque entries.
func (d *Details) Has(id string) bool {
	if _, ok := d.entries[id]; ok {
		return true
	}
	_, ok := d.opaque[id]
	return ok
}

// Add caches detail under id unless id is already present, opaque or not.
// It reports whether the entry was added.
func (d *Details) Add(id string, detail model.Detail) bool {
	if d.Has(id) {
		return false
	}
	d.entries[id] = detail
	d.added = append(d.added, id)
	return true
}

// Len returns the number of cached ids.
func (d *Details) Len() int {
	return len(d.entries) + len(d.opaque)
}

// IDs returns every cached id in sorted order.
func (d *Details) IDs() []string {
	ids := make([]string, 0, d.Len())
	for id := range d.entries {
		ids = append(ids, id)
	}
	for id := range d.opaque {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Added returns the ids added since the cache was loaded, in insertion order.
func (d *Details) Added() []string {
	out := make([]string, len(d.added))
	copy(out, d.added)
	return out
}

// load inserts an entry read from a store without marking it as added.
// Values that are not JSON objects are kept as opaque entries.
func (d *Details) load(id string, raw json.RawMessage) {
	if d.Has(id) {
		return
	}
	detail, err := model.NewDetail(raw)
	if err != nil {
		zap.L().Warn("cache: keeping non-object entry as is", zap.String("id", id))
		if d.opaque == nil {
			d.opaque = make(map[string]json.RawMessage)
		}
		d.opaque[id] = append(json.RawMessage(nil), raw...)
		return
	}
	d.entries[id] = detail
}

// MarshalJSON encodes the cache as an object with sorted keys.
func (d *Details) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range d.IDs() {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if raw, ok := d.opaque[id]; ok {
			buf.Write(raw)
			continue
		}
		val, err := d.entries[id].MarshalJSON()
		if err != nil {
			return nil, eris.Wrapf(err, "cache: encode detail %s", id)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an {id: detail} object. Entries whose value is not
// an object are kept as opaque entries.
func (d *Details) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "cache: decode details")
	}
	if d.entries == nil {
		d.entries = make(map[string]model.Detail, len(raw))
	}
	for id, value := range raw {
		d.load(id, value)
	}
	return nil
}
