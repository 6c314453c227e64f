package suggest

import (
	"math"
	"sync"

	"github.com/charmbracelet/log"
)

// CandidateCache remembers candidate lists per key sequence and evicts the
// least recently used entry when full.
type CandidateCache struct {
	entries     map[string][]string
	accessTime  map[string]int64
	accessCount int64
	hits        int64
	maxEntries  int
	mu          sync.Mutex
}

func NewCandidateCache(maxEntries int) *CandidateCache {
	return &CandidateCache{
		entries:    make(map[string][]string, maxEntries),
		accessTime: make(map[string]int64, maxEntries),
		maxEntries: maxEntries,
	}
}

func (cc *CandidateCache) Get(key string) ([]string, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	words, ok := cc.entries[key]
	if !ok {
		return nil, false
	}
	cc.hits++
	cc.markAccessed(key)
	out := make([]string, len(words))
	copy(out, words)
	return out, true
}

func (cc *CandidateCache) Put(key string, words []string) {
	if cc.maxEntries <= 0 {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, exists := cc.entries[key]; !exists && len(cc.entries) >= cc.maxEntries {
		cc.evictLRU()
	}
	stored := make([]string, len(words))
	copy(stored, words)
	cc.entries[key] = stored
	cc.markAccessed(key)
}

// Purge drops every entry. Call it when the vocabulary changes.
func (cc *CandidateCache) Purge() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.entries = make(map[string][]string, cc.maxEntries)
	cc.accessTime = make(map[string]int64, cc.maxEntries)
}

func (cc *CandidateCache) Stats() map[string]int {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	return map[string]int{
		"cacheEntries":    len(cc.entries),
		"maxCacheEntries": cc.maxEntries,
		"cacheHits":       int(cc.hits),
	}
}

func (cc *CandidateCache) markAccessed(key string) {
	cc.accessCount++
	cc.accessTime[key] = cc.accessCount
}

func (cc *CandidateCache) evictLRU() {
	var oldestKey string
	var oldestTime int64 = math.MaxInt64

	for key, t := range cc.accessTime {
		if t < oldestTime {
			oldestTime = t
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(cc.entries, oldestKey)
		delete(cc.accessTime, oldestKey)
		log.Debugf("Evicted '%s' from candidate cache", oldestKey)
	}
}
