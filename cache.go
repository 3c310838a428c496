package rowguard

import (
	"sync"
	"time"
)

// cacheKey uniquely identifies a decision. All fields are required; the
// cache is exact-match only.
type cacheKey struct {
	PrincipalID string
	Role        Role
	Relation    Relation
	Operation   Operation
	RowID       string
}

// cacheEntry stores one computed decision.
type cacheEntry struct {
	decision  Decision
	expiresAt time.Time // zero means no expiry
}

// Cache stores computed decisions. It must be safe for concurrent use from
// multiple goroutines.
//
// Both Allow and Deny decisions are cached; repeated checks of denied
// access are as common as repeated checks of granted access. Errors are
// never cached - a failed lookup should be retried, not remembered.
type Cache interface {
	// Get retrieves a cached decision. The second result is false when the
	// entry does not exist or has expired.
	Get(principal Principal, relation Relation, op Operation, rowID string) (Decision, bool)

	// Set stores a decision.
	Set(principal Principal, relation Relation, op Operation, rowID string, d Decision)
}

// CacheImpl is the default in-memory cache with optional TTL. It grows
// unbounded within its TTL window; long-running processes with large row
// sets should use a short TTL or Clear periodically.
type CacheImpl struct {
	mu    sync.RWMutex
	items map[cacheKey]cacheEntry
	ttl   time.Duration // 0 means no expiry
}

// CacheOption configures a cache.
type CacheOption func(*CacheImpl)

// WithTTL sets the time-to-live for cache entries. A TTL of 0 (the
// default) means entries never expire within the cache's lifetime.
//
// Choose TTL by decision volatility: seconds for frequently reassigned
// ownership, minutes for typical applications, none only for per-request
// caches that are discarded with the request.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *CacheImpl) {
		c.ttl = ttl
	}
}

// NewCache creates a decision cache, safe for concurrent use within one
// process.
func NewCache(opts ...CacheOption) *CacheImpl {
	c := &CacheImpl{
		items: make(map[cacheKey]cacheEntry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a cached decision. The second result is false when the
// entry does not exist or has expired.
func (c *CacheImpl) Get(principal Principal, relation Relation, op Operation, rowID string) (Decision, bool) {
	key := cacheKey{
		PrincipalID: principal.ID,
		Role:        principal.Role,
		Relation:    relation,
		Operation:   op,
		RowID:       rowID,
	}

	c.mu.RLock()
	entry, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		return DecisionUnset, false
	}

	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.items, key)
		c.mu.Unlock()
		return DecisionUnset, false
	}

	return entry.decision, true
}

// Set stores a decision.
func (c *CacheImpl) Set(principal Principal, relation Relation, op Operation, rowID string, d Decision) {
	key := cacheKey{
		PrincipalID: principal.ID,
		Role:        principal.Role,
		Relation:    relation,
		Operation:   op,
		RowID:       rowID,
	}

	entry := cacheEntry{decision: d}
	if c.ttl > 0 {
		entry.expiresAt = time.Now().Add(c.ttl)
	}

	c.mu.Lock()
	c.items[key] = entry
	c.mu.Unlock()
}

// Size returns the number of cached decisions.
func (c *CacheImpl) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Clear removes all entries. Useful after bulk ownership changes or in
// tests.
func (c *CacheImpl) Clear() {
	c.mu.Lock()
	c.items = make(map[cacheKey]cacheEntry)
	c.mu.Unlock()
}

// Ensure CacheImpl implements Cache.
var _ Cache = (*CacheImpl)(nil)
