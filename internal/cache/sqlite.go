package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS card_details (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	fetched_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteStore keeps the cache in a SQLite database. Rows are insert-only.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (creating if needed) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, eris.Wrapf(err, "sqlite: create dir %s", dir)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close()
		return nil, eris.Wrap(err, "sqlite: migrate")
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Load reads every cached detail.
func (s *SQLiteStore) Load(ctx context.Context) (*Details, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, payload FROM card_details ORDER BY id`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: query details")
	}
	defer rows.Close() //nolint:errcheck

	d := NewDetails()
	for rows.Next() {
		var id, payload string
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan detail")
		}
		d.load(id, json.RawMessage(payload))
	}
	return d, eris.Wrap(rows.Err(), "sqlite: iterate details")
}

// Save inserts the entries added during this run. Existing rows are left
// untouched.
func (s *SQLiteStore) Save(ctx context.Context, d *Details) error {
	added := d.Added()
	if len(added) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR IGNORE INTO card_details (id, payload, fetched_at) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	now := s.now().UTC()
	for _, id := range added {
		detail, _ := d.Get(id)
		payload, err := detail.MarshalJSON()
		if err != nil {
			return eris.Wrapf(err, "sqlite: encode detail %s", id)
		}
		if _, err := stmt.ExecContext(ctx, id, string(payload), now); err != nil {
			return eris.Wrapf(err, "sqlite: insert detail %s", id)
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Open returns the store selected by driver ("json" or "sqlite").
func Open(ctx context.Context, driver, path string) (Store, error) {
	switch driver {
	case "", "json":
		return NewJSONStore(path), nil
	case "sqlite":
		return NewSQLiteStore(ctx, path)
	default:
		return nil, eris.Errorf("cache: unknown driver %q", driver)
	}
}
