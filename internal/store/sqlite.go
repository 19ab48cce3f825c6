package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/curasense/triage-cli/internal/model"
)

// SQLiteStore implements LookupStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, eris.New("sqlite: database path is required")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS lookup_cache (
	key_hash   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	fetched_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_lookup_cache_fetched_at ON lookup_cache(fetched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// fetched_at is stored as unix nanoseconds so TTL comparisons stay exact.

func (s *SQLiteStore) GetLookup(ctx context.Context, keyHash string) (*model.CacheEntry, error) {
	var payload string
	var fetchedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM lookup_cache WHERE key_hash = ?`,
		keyHash,
	).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get lookup")
	}

	entry := model.CacheEntry{FetchedAt: time.Unix(0, fetchedAt).UTC()}
	if err := json.Unmarshal([]byte(payload), &entry.Payload); err != nil {
		return nil, eris.Wrapf(err, "sqlite: corrupt lookup %s", keyHash)
	}
	return &entry, nil
}

func (s *SQLiteStore) PutLookup(ctx context.Context, keyHash string, entry model.CacheEntry) error {
	payload, err := json.Marshal(entry.Payload)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal lookup")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO lookup_cache (key_hash, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(key_hash) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		keyHash, string(payload), entry.FetchedAt.UnixNano(),
	)
	return eris.Wrap(err, "sqlite: put lookup")
}

func (s *SQLiteStore) DeleteLookupsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM lookup_cache WHERE fetched_at < ?`,
		cutoff.UnixNano(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired lookups")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) CountLookups(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lookup_cache`).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count lookups")
}
