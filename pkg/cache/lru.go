// Package cache provides a size-bounded LRU cache with cost-based eviction.
package cache

import (
	"crypto/sha256"
	"sync"
	"sync/atomic"
)

// DefaultMaxBytes is the default memory budget of an LRU (64 MB).
const DefaultMaxBytes = 64 * 1024 * 1024

// bytesPerKB is the number of bytes in a kilobyte.
const bytesPerKB = 1024.0

// evictionSampleSize is the number of tail entries compared on eviction.
const evictionSampleSize = 5

// Key identifies a cached value.
type Key [sha256.Size]byte

// NewKey hashes parts into a key. Parts are length-prefixed so that
// ("ab", "c") and ("a", "bc") differ.
func NewKey(parts ...[]byte) Key {
	h := sha256.New()

	var prefix [8]byte

	for _, part := range parts {
		n := uint64(len(part))
		for i := range prefix {
			prefix[i] = byte(n >> (8 * i))
		}

		h.Write(prefix[:])
		h.Write(part)
	}

	var key Key

	h.Sum(key[:0])

	return key
}

// LRU is a concurrency-safe cache bounded by the accounted size of its
// values. When full it evicts, among the least recently used entries, the
// one with the fewest accesses per KB.
type LRU[V any] struct {
	mu          sync.Mutex
	entries     map[Key]*lruEntry[V]
	head        *lruEntry[V] // Most recently used.
	tail        *lruEntry[V] // Least recently used.
	maxSize     int64
	currentSize int64

	hits   atomic.Int64
	misses atomic.Int64
}

type lruEntry[V any] struct {
	key         Key
	value       V
	size        int64
	accessCount int64
	prev        *lruEntry[V]
	next        *lruEntry[V]
}

// evictionCost is higher for entries that are more desirable to keep.
func (e *lruEntry[V]) evictionCost() float64 {
	sizeKB := float64(e.size) / bytesPerKB
	if sizeKB < 1 {
		sizeKB = 1
	}

	return float64(e.accessCount) / sizeKB
}

// NewLRU creates a cache holding at most maxSize accounted bytes. A
// non-positive maxSize selects DefaultMaxBytes.
func NewLRU[V any](maxSize int64) *LRU[V] {
	if maxSize <= 0 {
		maxSize = DefaultMaxBytes
	}

	return &LRU[V]{
		entries: make(map[Key]*lruEntry[V]),
		maxSize: maxSize,
	}
}

// Get returns the value stored under key.
func (c *LRU[V]) Get(key Key) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses.Add(1)

		var zero V

		return zero, false
	}

	c.hits.Add(1)

	entry.accessCount++
	c.moveToFront(entry)

	return entry.value, true
}

// Put stores value under key, accounted as size bytes. Values larger than
// the whole cache are not stored. An existing key keeps its value.
func (c *LRU[V]) Put(key Key, value V, size int64) {
	if size > c.maxSize {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.accessCount++
		c.moveToFront(entry)

		return
	}

	for c.currentSize+size > c.maxSize && c.tail != nil {
		c.evictLowestCost()
	}

	entry := &lruEntry[V]{
		key:         key,
		value:       value,
		size:        size,
		accessCount: 1,
	}

	c.entries[key] = entry
	c.currentSize += size
	c.addToFront(entry)
}

// Stats holds cache counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Entries     int
	CurrentSize int64
	MaxSize     int64
}

// HitRate returns hits over lookups, 0 when nothing was looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

// Stats returns a snapshot of the counters.
func (c *LRU[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Entries:     len(c.entries),
		CurrentSize: c.currentSize,
		MaxSize:     c.maxSize,
	}
}

// Clear removes every entry. Counters are kept.
func (c *LRU[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[Key]*lruEntry[V])
	c.head = nil
	c.tail = nil
	c.currentSize = 0
}

func (c *LRU[V]) moveToFront(entry *lruEntry[V]) {
	if entry == c.head {
		return
	}

	c.removeFromList(entry)
	c.addToFront(entry)
}

func (c *LRU[V]) addToFront(entry *lruEntry[V]) {
	entry.prev = nil
	entry.next = c.head

	if c.head != nil {
		c.head.prev = entry
	}

	c.head = entry

	if c.tail == nil {
		c.tail = entry
	}
}

func (c *LRU[V]) removeFromList(entry *lruEntry[V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}

	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
}

// evictLowestCost samples the tail and evicts the cheapest candidate.
func (c *LRU[V]) evictLowestCost() {
	var candidates [evictionSampleSize]*lruEntry[V]

	count := 0

	for entry := c.tail; entry != nil && count < evictionSampleSize; entry = entry.prev {
		candidates[count] = entry
		count++
	}

	if count == 0 {
		return
	}

	victim := candidates[0]
	lowestCost := victim.evictionCost()

	for _, candidate := range candidates[1:count] {
		if cost := candidate.evictionCost(); cost < lowestCost {
			lowestCost = cost
			victim = candidate
		}
	}

	c.removeFromList(victim)
	delete(c.entries, victim.key)
	c.currentSize -= victim.size
}
