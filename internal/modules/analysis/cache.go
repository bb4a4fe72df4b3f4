package analysis

import (
	"sync"
	"time"

	"github.com/dealsentry/dealsentry/internal/domain"
)

// cacheEntry pairs an analysis with the monotonic instant it was stored.
type cacheEntry struct {
	analysis *domain.RiskAnalysis
	storedAt time.Time
}

// resultCache is the process-wide per-contract analysis cache. Eviction is
// TTL-only and evaluated at read time; the TTL is the caller's, not the
// entry's.
type resultCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newResultCache() *resultCache {
	return &resultCache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached analysis when one exists and is younger than ttl.
func (c *resultCache) Get(contractID string, ttl time.Duration) (*domain.RiskAnalysis, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[contractID]
	if !ok || time.Since(e.storedAt) >= ttl {
		return nil, false
	}
	return e.analysis, true
}

// Set stores the analysis for the contract.
func (c *resultCache) Set(contractID string, a *domain.RiskAnalysis) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[contractID] = cacheEntry{analysis: a, storedAt: time.Now()}
}

// Delete removes one entry.
func (c *resultCache) Delete(contractID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, contractID)
}

// Clear removes every entry.
func (c *resultCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// SweepOlderThan drops entries stored longer than maxAge ago. Used by the
// maintenance cron so the map does not grow unboundedly.
func (c *resultCache) SweepOlderThan(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for id, e := range c.entries {
		if time.Since(e.storedAt) >= maxAge {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}
