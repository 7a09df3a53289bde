// Package tracker counts backend and cache outcomes per provider for the run
// summary.
package tracker

import (
	"sort"
	"sync"
	"sync/atomic"
)

// Tracker tracks usage statistics per provider.
type Tracker struct {
	mu    sync.RWMutex
	stats map[string]*ProviderStats
}

// ProviderStats holds metrics for a specific provider.
// Fields are accessed atomically.
type ProviderStats struct {
	CacheHits   int64
	CacheMisses int64
	APISuccess  int64
	APIFailures int64
	APIThrottle int64
	EmptyAudio  int64
}

// New creates a new Tracker.
func New() *Tracker {
	return &Tracker{
		stats: make(map[string]*ProviderStats),
	}
}

func (t *Tracker) getStats(provider string) *ProviderStats {
	t.mu.RLock()
	s, ok := t.stats[provider]
	t.mu.RUnlock()
	if ok {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if s, ok = t.stats[provider]; ok {
		return s
	}
	s = &ProviderStats{}
	t.stats[provider] = s
	return s
}

// TrackCacheHit increments the cache hit counter. A nil tracker is a no-op,
// as are all Track methods.
func (t *Tracker) TrackCacheHit(provider string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(provider).CacheHits, 1)
}

func (t *Tracker) TrackCacheMiss(provider string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(provider).CacheMisses, 1)
}

func (t *Tracker) TrackAPISuccess(provider string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(provider).APISuccess, 1)
}

func (t *Tracker) TrackAPIFailure(provider string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(provider).APIFailures, 1)
}

func (t *Tracker) TrackThrottle(provider string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(provider).APIThrottle, 1)
}

func (t *Tracker) TrackEmptyAudio(provider string) {
	if t == nil {
		return
	}
	atomic.AddInt64(&t.getStats(provider).EmptyAudio, 1)
}

// Snapshot returns a copy of the current stats.
func (t *Tracker) Snapshot() map[string]ProviderStats {
	result := make(map[string]ProviderStats)
	if t == nil {
		return result
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	for k, v := range t.stats {
		result[k] = ProviderStats{
			CacheHits:   atomic.LoadInt64(&v.CacheHits),
			CacheMisses: atomic.LoadInt64(&v.CacheMisses),
			APISuccess:  atomic.LoadInt64(&v.APISuccess),
			APIFailures: atomic.LoadInt64(&v.APIFailures),
			APIThrottle: atomic.LoadInt64(&v.APIThrottle),
			EmptyAudio:  atomic.LoadInt64(&v.EmptyAudio),
		}
	}
	return result
}

// Providers returns the tracked provider names in sorted order.
func (t *Tracker) Providers() []string {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.stats))
	for k := range t.stats {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Reset zeroes all counters while keeping the known providers.
func (t *Tracker) Reset() {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for k := range t.stats {
		t.stats[k] = &ProviderStats{}
	}
}
