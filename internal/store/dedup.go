package store

import (
	"strconv"
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DedupCache is a thread-safe in-memory front for collection membership
// checks, layering a Bloom filter over an exact set so that most misses
// never touch the map. Capacity is bounded; the least recently added IDs
// are evicted first.
type DedupCache struct {
	ids               map[int64]struct{}
	bloom             *bloom.BloomFilter
	lru               *lru.Cache[int64, struct{}]
	mutex             sync.RWMutex
	maxMovies         int
	falsePositiveRate float64
}

// NewDedupCache creates a deduplication cache with the specified capacity
// and Bloom filter false positive rate.
func NewDedupCache(maxMovies int, falsePositiveRate float64) *DedupCache {
	lruCache, _ := lru.New[int64, struct{}](maxMovies)

	if maxMovies < 0 || maxMovies > int(^uint(0)>>1) {
		panic("maxMovies value out of range for uint conversion")
	}
	bloomFilter := bloom.NewWithEstimates(uint(maxMovies), falsePositiveRate)

	return &DedupCache{
		ids:               make(map[int64]struct{}),
		bloom:             bloomFilter,
		lru:               lruCache,
		maxMovies:         maxMovies,
		falsePositiveRate: falsePositiveRate,
	}
}

// Has checks if a TMDB ID is present in the cache.
func (dc *DedupCache) Has(tmdbID int64) bool {
	dc.mutex.RLock()
	defer dc.mutex.RUnlock()

	if !dc.bloom.TestString(bloomKey(tmdbID)) {
		return false
	}

	_, exists := dc.ids[tmdbID]
	return exists
}

// Add records a TMDB ID in the cache.
func (dc *DedupCache) Add(tmdbID int64) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if _, exists := dc.ids[tmdbID]; exists {
		return
	}

	dc.ids[tmdbID] = struct{}{}
	dc.bloom.AddString(bloomKey(tmdbID))
	dc.lru.Add(tmdbID, struct{}{})

	if len(dc.ids) > dc.maxMovies {
		dc.evictOldest()
	}
}

// Remove drops a TMDB ID from the cache. The Bloom filter does not support
// removal, so a removed ID may still cost a map lookup afterwards.
func (dc *DedupCache) Remove(tmdbID int64) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	if _, exists := dc.ids[tmdbID]; !exists {
		return
	}

	delete(dc.ids, tmdbID)
	dc.lru.Remove(tmdbID)
}

// Load clears the cache and fills it with the provided TMDB IDs.
func (dc *DedupCache) Load(tmdbIDs []int64) {
	dc.mutex.Lock()
	defer dc.mutex.Unlock()

	dc.ids = make(map[int64]struct{})
	dc.bloom = bloom.NewWithEstimates(uint(dc.maxMovies), dc.falsePositiveRate)
	dc.lru.Purge()

	for _, id := range tmdbIDs {
		dc.ids[id] = struct{}{}
		dc.bloom.AddString(bloomKey(id))
		dc.lru.Add(id, struct{}{})
	}

	for len(dc.ids) > dc.maxMovies {
		dc.evictOldest()
	}
}

// Size returns the number of IDs currently cached.
func (dc *DedupCache) Size() int {
	dc.mutex.RLock()
	defer dc.mutex.RUnlock()
	return len(dc.ids)
}

func (dc *DedupCache) evictOldest() {
	oldest, _, ok := dc.lru.GetOldest()
	if !ok {
		return
	}

	delete(dc.ids, oldest)
	dc.lru.Remove(oldest)
}

func bloomKey(tmdbID int64) string {
	return strconv.FormatInt(tmdbID, 10)
}
