package retrieval

import (
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"derm-triage-be/pkg/vectorindex"
)

// Result is the ranked output of one retrieval query.
type Result struct {
	QueryFingerprint string            `json:"query_fingerprint"`
	Hits             []vectorindex.Hit `json:"hits"`
	ServedFromCache  bool              `json:"served_from_cache"`
	Degraded         bool              `json:"degraded"`
}

func (r *Result) clone() *Result {
	hits := make([]vectorindex.Hit, len(r.Hits))
	copy(hits, r.Hits)
	return &Result{
		QueryFingerprint: r.QueryFingerprint,
		Hits:             hits,
		ServedFromCache:  r.ServedFromCache,
		Degraded:         r.Degraded,
	}
}

// Cache memoizes retrieval results by fingerprint. The TTL tier answers
// normal lookups; the stale tier keeps the last known result per fingerprint
// indefinitely so the retriever can degrade gracefully when the index is
// unavailable.
type Cache struct {
	fresh *cache.Cache

	mu    sync.RWMutex
	stale map[string]*Result
}

func NewCache(ttl, purgeInterval time.Duration) *Cache {
	return &Cache{
		fresh: cache.New(ttl, purgeInterval),
		stale: make(map[string]*Result),
	}
}

// Get returns a fresh (within TTL) entry for the fingerprint.
func (c *Cache) Get(fingerprint string) (*Result, bool) {
	if x, found := c.fresh.Get(fingerprint); found {
		return x.(*Result).clone(), true
	}
	return nil, false
}

// GetStale returns the last known entry regardless of TTL.
func (c *Cache) GetStale(fingerprint string) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if res, found := c.stale[fingerprint]; found {
		return res.clone(), true
	}
	return nil, false
}

// Set stores a result in both tiers.
func (c *Cache) Set(fingerprint string, result *Result) {
	stored := result.clone()
	c.fresh.Set(fingerprint, stored, cache.DefaultExpiration)

	c.mu.Lock()
	c.stale[fingerprint] = stored
	c.mu.Unlock()
}

// Flush drops both tiers, used when the index is rebuilt.
func (c *Cache) Flush() {
	c.fresh.Flush()
	c.mu.Lock()
	c.stale = make(map[string]*Result)
	c.mu.Unlock()
}
