// Package store caches resolved play queries using an expirable LRU with a Bloom filter prefilter.
package store

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/PurpleQuas4r/Sthashior/internal/core"
)

// ResolveCache remembers what a normalised query resolved to, playlist name included.
// Only non-empty results are stored so a transient provider failure is retried next time.
type ResolveCache struct {
	lru                    *expirable.LRU[string, core.LoadResult]
	bloom                  *bloom.BloomFilter
	mutex                  sync.RWMutex
	maxEntries             int
	bloomFalsePositiveRate float64
	bloomAdds              int
}

// NewResolveCache creates a cache holding up to maxEntries queries for ttl each.
func NewResolveCache(maxEntries int, ttl time.Duration, bloomFalsePositiveRate float64) *ResolveCache {
	if maxEntries <= 0 {
		maxEntries = core.DefaultResolveCacheSize
	}

	return &ResolveCache{
		lru:                    expirable.NewLRU[string, core.LoadResult](maxEntries, nil, ttl),
		bloom:                  bloom.NewWithEstimates(uint(maxEntries), bloomFalsePositiveRate),
		maxEntries:             maxEntries,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
}

// Get returns a copy of the cached result for key.
func (rc *ResolveCache) Get(key string) (core.LoadResult, bool) {
	rc.mutex.RLock()
	seen := rc.bloom.TestString(key)
	rc.mutex.RUnlock()

	if !seen {
		return core.LoadResult{}, false
	}

	res, ok := rc.lru.Get(key)
	if !ok {
		return core.LoadResult{}, false
	}
	res.Tracks = append([]core.Track(nil), res.Tracks...)
	return res, true
}

// Add stores res under key. Results without tracks are ignored.
func (rc *ResolveCache) Add(key string, res core.LoadResult) {
	if len(res.Tracks) == 0 {
		return
	}

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	res.Tracks = append([]core.Track(nil), res.Tracks...)
	rc.lru.Add(key, res)
	rc.bloom.AddString(key)
	rc.bloomAdds++

	// The filter cannot forget evicted keys; rebuild it once it has seen
	// twice its capacity so the false positive rate stays near the target.
	if rc.bloomAdds > 2*rc.maxEntries {
		rc.rebuildBloom()
	}
}

// Remove drops key from the cache.
func (rc *ResolveCache) Remove(key string) {
	rc.lru.Remove(key)
}

// Len returns the number of cached queries.
func (rc *ResolveCache) Len() int {
	return rc.lru.Len()
}

// Purge removes all entries.
func (rc *ResolveCache) Purge() {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	rc.lru.Purge()
	rc.bloom = bloom.NewWithEstimates(uint(rc.maxEntries), rc.bloomFalsePositiveRate)
	rc.bloomAdds = 0
}

func (rc *ResolveCache) rebuildBloom() {
	rc.bloom = bloom.NewWithEstimates(uint(rc.maxEntries), rc.bloomFalsePositiveRate)
	rc.bloomAdds = 0
	for _, key := range rc.lru.Keys() {
		rc.bloom.AddString(key)
		rc.bloomAdds++
	}
}
