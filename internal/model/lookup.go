package model

import "time"

// LookupNamespace prefixes every external lookup key.
const LookupNamespace = "abstract"

// LookupKey derives the cache and dedup key for a condition name.
func LookupKey(conditionName string) string {
	return LookupNamespace + ":" + NormalizeName(conditionName)
}

// LookupResult is the outcome of an external reference lookup. Matched=false
// is a terminal, cacheable state.
type LookupResult struct {
	Matched  bool     `json:"matched"`
	Resource *string  `json:"resource,omitempty"`
	Abstract *string  `json:"abstract,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

// Unmatched returns the canonical negative lookup result.
func Unmatched() LookupResult {
	return LookupResult{Matched: false}
}

// CacheEntry is a persisted lookup result with the time it was fetched.
type CacheEntry struct {
	Payload   LookupResult `json:"payload"`
	FetchedAt time.Time    `json:"fetched_at"`
}

// Fresh reports whether the entry is still valid at now for the given ttl.
func (e CacheEntry) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.FetchedAt) <= ttl
}
