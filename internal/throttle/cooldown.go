package throttle

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCooldown is how long a failed asset is skipped before the pipeline
// will try it again.
const DefaultCooldown = 6 * time.Hour

// CooldownCache remembers recent fetch failures per portfolio/asset pair so
// that a flapping provider is not hammered on every read. Entries expire
// after the configured TTL.
type CooldownCache struct {
	mu  sync.Mutex
	ttl time.Duration
	now func() time.Time

	failures map[string]time.Time
}

// NewCooldownCache creates a cache with the given TTL. A non-positive TTL
// falls back to DefaultCooldown.
func NewCooldownCache(ttl time.Duration) *CooldownCache {
	return NewCooldownCacheWithClock(ttl, time.Now)
}

// NewCooldownCacheWithClock is NewCooldownCache with an injected clock,
// for tests.
func NewCooldownCacheWithClock(ttl time.Duration, now func() time.Time) *CooldownCache {
	if ttl <= 0 {
		ttl = DefaultCooldown
	}
	return &CooldownCache{
		ttl:      ttl,
		now:      now,
		failures: make(map[string]time.Time),
	}
}

func cooldownKey(portfolio, assetID string) string {
	return fmt.Sprintf("%s|%s", portfolio, assetID)
}

// MarkFailure records a failed fetch for the asset, starting its cooldown.
func (c *CooldownCache) MarkFailure(portfolio, assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[cooldownKey(portfolio, assetID)] = c.now()
}

// Active reports whether the asset is still cooling down. Expired entries
// are pruned on access.
func (c *CooldownCache) Active(portfolio, assetID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cooldownKey(portfolio, assetID)
	at, ok := c.failures[key]
	if !ok {
		return false
	}
	if c.now().Sub(at) >= c.ttl {
		delete(c.failures, key)
		return false
	}
	return true
}

// Clear removes any cooldown for the asset, typically after a successful
// fetch.
func (c *CooldownCache) Clear(portfolio, assetID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failures, cooldownKey(portfolio, assetID))
}
