package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curasense/triage-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresFromPool(mock), mock
}

func TestNewPostgres_RequiresURL(t *testing.T) {
	_, err := NewPostgres(context.Background(), "", nil)
	require.Error(t, err)
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS lookup_cache`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLookup_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT payload, fetched_at FROM lookup_cache WHERE key_hash = \$1`).
		WithArgs("unknown").
		WillReturnError(pgx.ErrNoRows)

	entry, err := s.GetLookup(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Nil(t, entry)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLookup_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	fetched := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rows := pgxmock.NewRows([]string{"payload", "fetched_at"}).
		AddRow([]byte(`{"matched":true,"abstract":"Asthma is a disease.","labels":["Asthma"]}`), fetched)
	mock.ExpectQuery(`SELECT payload, fetched_at FROM lookup_cache`).
		WithArgs("h").
		WillReturnRows(rows)

	entry, err := s.GetLookup(context.Background(), "h")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.True(t, entry.Payload.Matched)
	assert.Equal(t, "Asthma is a disease.", *entry.Payload.Abstract)
	assert.Equal(t, []string{"Asthma"}, entry.Payload.Labels)
	assert.True(t, fetched.Equal(entry.FetchedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetLookup_Corrupt(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"payload", "fetched_at"}).
		AddRow([]byte(`not-json`), time.Now())
	mock.ExpectQuery(`SELECT payload, fetched_at FROM lookup_cache`).
		WithArgs("h").
		WillReturnRows(rows)

	entry, err := s.GetLookup(context.Background(), "h")
	require.Error(t, err)
	assert.Nil(t, entry)
	assert.Contains(t, err.Error(), "corrupt lookup")
}

func TestPostgresStore_PutLookup_Upsert(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	fetched := time.Now().UTC()

	mock.ExpectExec(`ON CONFLICT \(key_hash\)`).
		WithArgs("h", pgxmock.AnyArg(), fetched).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.PutLookup(context.Background(), "h", model.CacheEntry{Payload: model.Unmatched(), FetchedAt: fetched})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteLookupsBefore(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	cutoff := time.Now().Add(-30 * 24 * time.Hour)

	mock.ExpectExec(`DELETE FROM lookup_cache WHERE fetched_at < \$1`).
		WithArgs(cutoff).
		WillReturnResult(pgxmock.NewResult("DELETE", 3))

	n, err := s.DeleteLookupsBefore(context.Background(), cutoff)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CountLookups(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM lookup_cache`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(7))

	n, err := s.CountLookups(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}
