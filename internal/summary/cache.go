package summary

import (
	"sync"
	"time"

	"github.com/dkeller/fieldops/internal/store"
)

const defaultTTL = 30 * time.Second

// Cache memoizes summaries per work order for a short TTL so rapid re-renders
// don't recompute. The sync engine invalidates an entry whenever a progress
// write for that work order succeeds.
type Cache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	summary Summary
	expires time.Time
}

func NewCache() *Cache {
	return &Cache{
		ttl:     defaultTTL,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

// Get returns the cached summary for the work order, computing and storing it
// on a miss or after expiry.
func (c *Cache) Get(wo store.WorkOrder, records []store.ProgressRecord) Summary {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[wo.WONumber]; ok && c.now().Before(e.expires) {
		return e.summary
	}

	s := Summarize(wo, records)
	c.entries[wo.WONumber] = cacheEntry{summary: s, expires: c.now().Add(c.ttl)}
	return s
}

// Invalidate drops the cached entry for one work order.
func (c *Cache) Invalidate(woNumber string) {
	c.mu.Lock()
	delete(c.entries, woNumber)
	c.mu.Unlock()
}
