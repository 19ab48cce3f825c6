// Package lookupcache wraps the external reference client with a TTL cache
// persisted through internal/store.
package lookupcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/curasense/triage-cli/internal/model"
	"github.com/curasense/triage-cli/internal/store"
	"github.com/curasense/triage-cli/pkg/dbpedia"
)

// DefaultTTL is how long a fetched lookup stays fresh.
const DefaultTTL = 30 * 24 * time.Hour

// Key builds the cache key for a condition name.
func Key(name string) string {
	return model.LookupKey(name)
}

// Hash returns the storage key for a cache key.
func Hash(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// WithCacheFailures controls whether results from failed remote calls are
// persisted. When false only genuine matches and non-matches are stored.
func WithCacheFailures(v bool) Option {
	return func(c *Cache) {
		c.cacheFailures = v
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// Cache serves lookups from a LookupStore while fresh and falls through to
// the client otherwise. Reads take no lock; writes are serialized.
type Cache struct {
	store         store.LookupStore
	client        dbpedia.Client
	ttl           time.Duration
	cacheFailures bool
	now           func() time.Time

	writeMu sync.Mutex
}

// New creates a Cache over st. client may be nil when the cache is only used
// for reads and maintenance.
func New(st store.LookupStore, client dbpedia.Client, opts ...Option) *Cache {
	c := &Cache{
		store:         st,
		client:        client,
		ttl:           DefaultTTL,
		cacheFailures: true,
		now:           time.Now,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// TTL returns the configured freshness window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Get returns the cached result for key. Absent, unreadable, corrupt and
// stale entries are all misses.
func (c *Cache) Get(ctx context.Context, key string) (model.LookupResult, bool) {
	entry, err := c.store.GetLookup(ctx, Hash(key))
	if err != nil {
		zap.L().Warn("lookupcache: read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return model.LookupResult{}, false
	}
	if entry == nil {
		return model.LookupResult{}, false
	}
	if !entry.Fresh(c.now(), c.ttl) {
		return model.LookupResult{}, false
	}
	return entry.Payload, true
}

// Put stores result under key with the current time. Write failures are
// logged and dropped.
func (c *Cache) Put(ctx context.Context, key string, result model.LookupResult) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	entry := model.CacheEntry{Payload: result, FetchedAt: c.now().UTC()}
	if err := c.store.PutLookup(ctx, Hash(key), entry); err != nil {
		zap.L().Warn("lookupcache: write failed, dropping",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// LookupCached returns the fresh cached result for key or fetches name from
// the client and stores the outcome.
func (c *Cache) LookupCached(ctx context.Context, key, name string) model.LookupResult {
	if r, ok := c.Get(ctx, key); ok {
		return r
	}
	if c.client == nil {
		return model.Unmatched()
	}

	r, err := c.client.LookupAbstract(ctx, name)
	if err != nil {
		zap.L().Debug("lookupcache: remote lookup failed",
			zap.String("name", name),
			zap.Error(err),
		)
		// A cancelled caller never reached the remote; nothing to remember.
		if ctx.Err() != nil || !c.cacheFailures {
			return r
		}
	}
	// Writes outlive a cancelled caller.
	c.Put(context.WithoutCancel(ctx), key, r)
	return r
}

// Prune removes entries older than the TTL.
func (c *Cache) Prune(ctx context.Context) (int, error) {
	return c.store.DeleteLookupsBefore(ctx, c.now().Add(-c.ttl))
}

// Count returns the number of stored entries, fresh or not.
func (c *Cache) Count(ctx context.Context) (int, error) {
	return c.store.CountLookups(ctx)
}
