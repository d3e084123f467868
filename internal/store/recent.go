// Package store holds the skill's local state: recently played tracks and
// the persisted user settings.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultFalsePositiveRate is the bloom filter target used by NewRecentTracks callers.
const DefaultFalsePositiveRate = 0.001

// RecentTracks is a bounded, thread-safe set of recently played track URIs.
// A bloom filter answers most misses without touching the LRU.
type RecentTracks struct {
	bloom                  *bloom.BloomFilter
	lru                    *lru.Cache[string, struct{}]
	mutex                  sync.RWMutex
	maxTracks              int
	bloomFalsePositiveRate float64
}

// NewRecentTracks creates a store remembering at most maxTracks URIs.
func NewRecentTracks(maxTracks int, bloomFalsePositiveRate float64) *RecentTracks {
	if maxTracks <= 0 {
		panic("maxTracks must be positive")
	}
	lruCache, _ := lru.New[string, struct{}](maxTracks)

	return &RecentTracks{
		bloom:                  bloom.NewWithEstimates(uint(maxTracks), bloomFalsePositiveRate),
		lru:                    lruCache,
		maxTracks:              maxTracks,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
}

// Seen reports whether uri was played recently.
func (rt *RecentTracks) Seen(uri string) bool {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()

	if !rt.bloom.TestString(uri) {
		return false
	}
	return rt.lru.Contains(uri)
}

// Add marks uri as the most recently played track. The oldest entry is
// evicted once the store is full.
func (rt *RecentTracks) Add(uris ...string) {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()
	rt.add(uris)
}

func (rt *RecentTracks) add(uris []string) {
	for _, uri := range uris {
		if uri == "" {
			continue
		}
		rt.bloom.AddString(uri)
		rt.lru.Add(uri, struct{}{})
	}
}

// Fresh returns uris with tracks that were not played recently first,
// preserving the relative order inside both groups.
func (rt *RecentTracks) Fresh(uris []string) []string {
	out := make([]string, 0, len(uris))
	var seen []string
	for _, uri := range uris {
		if rt.Seen(uri) {
			seen = append(seen, uri)
			continue
		}
		out = append(out, uri)
	}
	return append(out, seen...)
}

// Load clears the store and loads uris, oldest first.
func (rt *RecentTracks) Load(uris []string) {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()

	rt.clear()
	rt.add(uris)
}

// Recent returns the stored URIs from oldest to newest.
func (rt *RecentTracks) Recent() []string {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()
	return rt.lru.Keys()
}

// Size returns the number of URIs currently stored.
func (rt *RecentTracks) Size() int {
	rt.mutex.RLock()
	defer rt.mutex.RUnlock()
	return rt.lru.Len()
}

// Clear removes all URIs from the store.
func (rt *RecentTracks) Clear() {
	rt.mutex.Lock()
	defer rt.mutex.Unlock()
	rt.clear()
}

func (rt *RecentTracks) clear() {
	rt.bloom = bloom.NewWithEstimates(uint(rt.maxTracks), rt.bloomFalsePositiveRate)
	rt.lru.Purge()
}
