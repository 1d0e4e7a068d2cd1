package publish

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/tommycwz/tcgp-sync/internal/db"
	"github.com/tommycwz/tcgp-sync/internal/model"
)

var (
	setsUpsert = db.UpsertConfig{
		Table:         "tcgp.sets",
		Columns:       []string{"code", "name", "short_name", "series", "card_count", "release_date", "packs", "logo", "symbol"},
		ConflictKeys:  []string{"code"},
		SkipUnchanged: true,
	}
	cardsUpsert = db.UpsertConfig{
		Table:         "tcgp.cards",
		Columns:       []string{"id", "series", "set_code", "number", "payload"},
		ConflictKeys:  []string{"id"},
		SkipUnchanged: true,
	}
	catalogUpsert = db.UpsertConfig{
		Table:         "tcgp.catalog",
		Columns:       []string{"id", "payload"},
		ConflictKeys:  []string{"id"},
		SkipUnchanged: true,
	}
)

// Artifacts are the generated files a publish run pushes.
type Artifacts struct {
	Sets    []model.Set
	Cards   []model.Card
	Catalog []model.Fields
}

// Counts reports rows written per table.
type Counts struct {
	Sets    int64
	Cards   int64
	Catalog int64
	Skipped int
}

// Postgres writes artifacts into the tcgp schema.
type Postgres struct {
	pool db.Pool
}

// NewPostgres creates a Postgres sink on pool.
func NewPostgres(pool db.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Publish migrates the schema and upserts every artifact. Cards without an
// id cannot be keyed and are skipped.
func (p *Postgres) Publish(ctx context.Context, a Artifacts) (Counts, error) {
	log := zap.L().With(zap.String("component", "publish.postgres"))
	var counts Counts

	if err := Migrate(ctx, p.pool); err != nil {
		return counts, err
	}

	setRows, err := SetRows(a.Sets)
	if err != nil {
		return counts, err
	}
	if counts.Sets, err = db.BulkUpsert(ctx, p.pool, setsUpsert, setRows); err != nil {
		return counts, eris.Wrap(err, "publish: sets")
	}

	cardRows, skipped, err := CardRows(a.Cards)
	if err != nil {
		return counts, err
	}
	counts.Skipped = skipped
	if counts.Cards, err = db.BulkUpsert(ctx, p.pool, cardsUpsert, cardRows); err != nil {
		return counts, eris.Wrap(err, "publish: cards")
	}

	catalogRows, err := CatalogRows(a.Catalog)
	if err != nil {
		return counts, err
	}
	if counts.Catalog, err = db.BulkUpsert(ctx, p.pool, catalogUpsert, catalogRows); err != nil {
		return counts, eris.Wrap(err, "publish: catalog")
	}

	log.Info("published to postgres",
		zap.Int64("sets", counts.Sets),
		zap.Int64("cards", counts.Cards),
		zap.Int64("catalog", counts.Catalog),
		zap.Int("skipped", counts.Skipped),
	)
	return counts, nil
}

// SetRows converts sets into tcgp.sets rows.
func SetRows(sets []model.Set) ([][]any, error) {
	rows := make([][]any, 0, len(sets))
	for _, s := range sets {
		packs := s.Packs
		if packs == nil {
			packs = []json.RawMessage{}
		}
		packsJSON, err := json.Marshal(packs)
		if err != nil {
			return nil, eris.Wrapf(err, "publish: encode packs of %s", s.Code)
		}
		rows = append(rows, []any{
			s.Code, s.Name, s.ShortName, s.Series, s.Count,
			s.ReleaseDate, packsJSON, nullable(s.Logo), nullable(s.Symbol),
		})
	}
	return rows, nil
}

// CardRows converts keyed cards into tcgp.cards rows carrying the full
// encoded card as payload. It also returns how many cards were skipped.
func CardRows(cards []model.Card) ([][]any, int, error) {
	rows := make([][]any, 0, len(cards))
	var skipped int
	for _, c := range cards {
		if !c.Keyed {
			skipped++
			continue
		}
		payload, err := c.MarshalJSON()
		if err != nil {
			return nil, 0, eris.Wrapf(err, "publish: encode card %s", c.ID)
		}
		rows = append(rows, []any{c.ID, c.Series, c.Set, c.Number, payload})
	}
	return rows, skipped, nil
}

// CatalogRows converts catalog cards into tcgp.catalog rows. Entries
// without an id are dropped.
func CatalogRows(cards []model.Fields) ([][]any, error) {
	rows := make([][]any, 0, len(cards))
	for _, c := range cards {
		id, ok := c.String("id")
		if !ok || id == "" {
			continue
		}
		payload, err := c.MarshalJSON()
		if err != nil {
			return nil, eris.Wrapf(err, "publish: encode catalog card %s", id)
		}
		rows = append(rows, []any{id, payload})
	}
	return rows, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
