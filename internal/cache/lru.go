// Package cache holds the bounded caches used by matcher runs.
package cache

import (
	"math"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// LRU is a least-recently-used cache that counts hits and misses. A zero or
// negative capacity means unbounded.
type LRU[K comparable, V any] struct {
	c      *lru.Cache[K, V]
	hits   atomic.Int64
	misses atomic.Int64
}

// NewLRU creates a cache holding at most capacity entries.
func NewLRU[K comparable, V any](capacity int) *LRU[K, V] {
	if capacity <= 0 {
		capacity = math.MaxInt
	}
	// lru.New only fails for a non-positive size.
	c, _ := lru.New[K, V](capacity)
	return &LRU[K, V]{c: c}
}

// Get returns the cached value and true, or the zero value and false.
func (l *LRU[K, V]) Get(key K) (V, bool) {
	v, ok := l.c.Get(key)
	if ok {
		l.hits.Add(1)
	} else {
		l.misses.Add(1)
	}
	return v, ok
}

// Put adds or replaces a value, evicting the least recently used entry when full.
func (l *LRU[K, V]) Put(key K, value V) {
	l.c.Add(key, value)
}

// Len returns the number of cached entries.
func (l *LRU[K, V]) Len() int {
	return l.c.Len()
}

// Stats returns cache hit and miss counts.
func (l *LRU[K, V]) Stats() (hits, misses int64) {
	return l.hits.Load(), l.misses.Load()
}
