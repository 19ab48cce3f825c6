// Package store persists external lookup results as JSON records keyed by a
// stable hash of the lookup key.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/curasense/triage-cli/internal/model"
)

// LookupStore is a durable key to cache-entry store. Implementations return
// (nil, nil) for a missing key and an error for unreadable or corrupt
// entries; the cache layer treats both as a miss.
type LookupStore interface {
	GetLookup(ctx context.Context, keyHash string) (*model.CacheEntry, error)
	PutLookup(ctx context.Context, keyHash string, entry model.CacheEntry) error
	// DeleteLookupsBefore removes entries fetched before cutoff.
	DeleteLookupsBefore(ctx context.Context, cutoff time.Time) (int, error)
	CountLookups(ctx context.Context) (int, error)

	Migrate(ctx context.Context) error
	Close() error
}

// Supported drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	CacheDir    string
	DatabaseURL string
	Pool        *PoolConfig
}

// Open creates the backend named by opts.Driver and runs its migration.
func Open(ctx context.Context, opts Options) (LookupStore, error) {
	var (
		st  LookupStore
		err error
	)
	switch opts.Driver {
	case DriverFile, "":
		st, err = NewFileStore(opts.CacheDir)
	case DriverSQLite:
		st, err = NewSQLite(opts.DatabaseURL)
	case DriverPostgres:
		st, err = NewPostgres(ctx, opts.DatabaseURL, opts.Pool)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
