package protocol

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

const (
	nonceCacheSize = 1000
	nonceExpiry    = 60 * time.Second
)

// NonceCache tracks recently seen nonces so replayed envelopes can be
// rejected. Entries expire after a minute; at capacity the oldest entry by
// insertion time is evicted.
type NonceCache struct {
	clock quartz.Clock

	mu   sync.Mutex
	seen map[uint64]time.Time
}

// NewNonceCache builds an empty cache reading time from clock.
func NewNonceCache(clock quartz.Clock) *NonceCache {
	return &NonceCache{
		clock: clock,
		seen:  make(map[uint64]time.Time),
	}
}

// IsDuplicate reports whether nonce was seen within the expiry window, and
// records it if not.
func (c *NonceCache) IsDuplicate(nonce uint64) bool {
	now := c.clock.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	for n, at := range c.seen {
		if now.Sub(at) >= nonceExpiry {
			delete(c.seen, n)
		}
	}

	if _, ok := c.seen[nonce]; ok {
		return true
	}

	for len(c.seen) >= nonceCacheSize {
		var oldest uint64
		var oldestAt time.Time
		first := true
		for n, at := range c.seen {
			if first || at.Before(oldestAt) {
				oldest = n
				oldestAt = at
				first = false
			}
		}
		delete(c.seen, oldest)
	}

	c.seen[nonce] = now
	return false
}

// Clear empties the cache.
func (c *NonceCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[uint64]time.Time)
}
