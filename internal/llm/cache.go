package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

// cacheEntry represents a cached pass 2 score.
type cacheEntry struct {
	expiry time.Time
	score  model.Pass2Score
}

// scoreCache provides thread-safe caching of scores keyed by prompt.
type scoreCache struct {
	entries map[string]cacheEntry
	stopCh  chan struct{}
	ttl     time.Duration
	mu      sync.RWMutex
	once    sync.Once
}

// newScoreCache creates a new cache with the specified TTL.
func newScoreCache(ttl time.Duration) *scoreCache {
	if ttl == 0 {
		ttl = 15 * time.Minute
	}

	cache := &scoreCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		stopCh:  make(chan struct{}),
	}

	go cache.cleanup()

	return cache
}

func cacheKey(provider, prompt string) string {
	sum := sha256.Sum256([]byte(provider + "\x00" + prompt))
	return hex.EncodeToString(sum[:])
}

func (c *scoreCache) get(key string) (model.Pass2Score, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.entries[key]
	if !exists || time.Now().After(entry.expiry) {
		return model.Pass2Score{}, false
	}

	return entry.score, true
}

func (c *scoreCache) set(key string, score model.Pass2Score) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = cacheEntry{
		score:  score,
		expiry: time.Now().Add(c.ttl),
	}
}

// cleanup periodically removes expired entries.
func (c *scoreCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, entry := range c.entries {
				if now.After(entry.expiry) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

func (c *scoreCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Close stops the cleanup goroutine.
func (c *scoreCache) Close() {
	c.once.Do(func() { close(c.stopCh) })
}
