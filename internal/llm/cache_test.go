package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/pnl-categorizer/internal/model"
)

func TestScoreCache(t *testing.T) {
	t.Run("basic operations", func(t *testing.T) {
		cache := newScoreCache(5 * time.Minute)
		defer cache.Close()

		_, found := cache.get("non-existent")
		assert.False(t, found)

		score := model.Pass2Score{CategorySlug: "dtc_sales", Confidence: 0.95, Rationale: "order"}
		cache.set("key1", score)

		retrieved, found := cache.get("key1")
		assert.True(t, found)
		assert.Equal(t, score, retrieved)
		assert.Equal(t, 1, cache.size())
	})

	t.Run("expiration", func(t *testing.T) {
		cache := newScoreCache(50 * time.Millisecond)
		defer cache.Close()

		cache.set("key2", model.Pass2Score{CategorySlug: "bank_fees", Confidence: 0.85})

		_, found := cache.get("key2")
		assert.True(t, found)

		time.Sleep(100 * time.Millisecond)

		_, found = cache.get("key2")
		assert.False(t, found)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		cache := newScoreCache(time.Minute)
		cache.Close()
		assert.NotPanics(t, cache.Close)
	})
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, cacheKey("openai", "p"), cacheKey("openai", "p"))
	assert.NotEqual(t, cacheKey("openai", "p"), cacheKey("anthropic", "p"))
	assert.Len(t, cacheKey("openai", "p"), 64)
}
