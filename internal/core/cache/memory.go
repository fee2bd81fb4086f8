// Package cache keeps parsed export files in memory between loads.
package cache

import (
	"sync"
	"time"

	"github.com/penwyp/go-timeline-chat/internal/core/model"
	"github.com/penwyp/go-timeline-chat/internal/util"
)

// MemoryCacheEntry is the parsed content of one file at one digest
type MemoryCacheEntry struct {
	Digest       string
	Segments     []model.Segment
	LastAccessed int64
}

// MemoryCache maps file paths to parsed segments. A reload writes into a shadow
// buffer that replaces the live entries only once the reload succeeded, so files
// that disappeared are evicted and a failed reload leaves the cache untouched.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]*MemoryCacheEntry

	// Double buffering support
	pendingClear  bool
	shadowEntries map[string]*MemoryCacheEntry

	hits   int
	misses int
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]*MemoryCacheEntry),
	}
}

// Get returns the cached segments of path if they were parsed from content with
// the same digest. Callers must not modify the returned slice.
func (mc *MemoryCache) Get(path, digest string) ([]model.Segment, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry, ok := mc.entries[path]
	if !ok || entry.Digest != digest {
		mc.misses++
		return nil, false
	}
	mc.hits++
	entry.LastAccessed = time.Now().Unix()
	if mc.pendingClear && mc.shadowEntries != nil {
		mc.shadowEntries[path] = entry
	}
	return entry.Segments, true
}

// Set stores segments for path. During a pending clear the entry goes to the shadow buffer.
func (mc *MemoryCache) Set(path, digest string, segments []model.Segment) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	entry := &MemoryCacheEntry{
		Digest:       digest,
		Segments:     segments,
		LastAccessed: time.Now().Unix(),
	}
	if mc.pendingClear && mc.shadowEntries != nil {
		mc.shadowEntries[path] = entry
	} else {
		mc.entries[path] = entry
	}
}

// Clear starts a reload. Live entries keep answering Get until CommitClear.
func (mc *MemoryCache) Clear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.pendingClear = true
	mc.shadowEntries = make(map[string]*MemoryCacheEntry)
	mc.hits, mc.misses = 0, 0
}

// CommitClear performs the actual cache clear after new data is loaded
func (mc *MemoryCache) CommitClear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if mc.pendingClear && mc.shadowEntries != nil {
		evicted := 0
		for path := range mc.entries {
			if _, ok := mc.shadowEntries[path]; !ok {
				evicted++
			}
		}
		mc.entries = mc.shadowEntries
		mc.shadowEntries = nil
		mc.pendingClear = false
		util.LogDebugf("MemoryCache: committed %d entries, evicted %d", len(mc.entries), evicted)
	}
}

// CancelClear cancels a pending clear operation
func (mc *MemoryCache) CancelClear() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.pendingClear = false
	mc.shadowEntries = nil
	util.LogDebug("MemoryCache: cancelled pending clear")
}

// Len returns the number of live entries
func (mc *MemoryCache) Len() int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries)
}

// Stats returns hits and misses since the last Clear
func (mc *MemoryCache) Stats() (hits, misses int) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return mc.hits, mc.misses
}
