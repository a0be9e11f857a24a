package embedding

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/patrickmn/go-cache"
)

// ContentCache is a content-addressed vector cache keyed by
// (sha256 of chunk text, model version). Re-ingesting unchanged content
// never hits the provider twice for the same model version.
type ContentCache struct {
	cache *cache.Cache
}

func NewContentCache(ttl time.Duration) *ContentCache {
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &ContentCache{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func cacheKey(text, modelVersion string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:]) + "|" + modelVersion
}

func (c *ContentCache) Get(text, modelVersion string) ([]float32, bool) {
	if x, found := c.cache.Get(cacheKey(text, modelVersion)); found {
		return x.([]float32), true
	}
	return nil, false
}

func (c *ContentCache) Set(text, modelVersion string, vector []float32) {
	c.cache.Set(cacheKey(text, modelVersion), vector, cache.DefaultExpiration)
}
