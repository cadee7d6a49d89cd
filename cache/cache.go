// Package cache implements a segmented, concurrent associative cache with
// pluggable eviction policies, modeled on the lock-amortized design of
// Infinispan's BufferedConcurrentHashMap: readers walk immutable bucket
// chains without taking a lock, and eviction bookkeeping is batched through
// a small per-segment access buffer instead of being updated on every hit.
package cache

import (
	"github.com/Abiy-Samson/Blazegraph/logger"
	"github.com/Abiy-Samson/Blazegraph/metrics"
)

const (
	maxSegments        = 1 << 16
	retriesBeforeLock  = 2
	defaultConcurrency = 16
)

// Options configures a new Cache. The zero value is not usable; use New,
// which fills in defaults of load factor 0.75, concurrency level 16 and an
// initial capacity equal to the concurrency level.
type Options[K comparable, V any] struct {
	// InitialCapacity hints the total number of entries the cache should
	// size for up front, spread evenly across segments.
	InitialCapacity int
	// LoadFactor is the fraction of a segment's table length at which it
	// grows (EvictionNone). Under EvictionLRU it sets the recency list's
	// trim-down target (segment capacity * LoadFactor); EvictionLIRS does not
	// use it. With eviction enabled, a put runs an eviction pass once the
	// segment's count has reached its table length.
	LoadFactor float64
	// Concurrency is the target number of segments. Rounded up to the
	// next power of two and capped at maxSegments.
	Concurrency int
	// Eviction selects the per-segment eviction algorithm.
	Eviction Eviction
	// Hasher computes the key digest. Required.
	Hasher Hasher[K]
	// Equal compares two values for Replace/RemoveIfEqual/ContainsValue.
	// There is no default (Go's == cannot be applied to an arbitrary V), so
	// this must be supplied whenever those operations are used; they panic
	// without it.
	Equal func(a, b V) bool
	// Listener, if set, is invoked outside any segment lock whenever an
	// entry is evicted by policy (not by an explicit Remove).
	Listener EvictionListener[K, V]
	// Metrics, if set, observes hits, misses and evictions. Defaults to a
	// no-op sink.
	Metrics metrics.CacheSink
	// Logger, if set, receives a Debugf call for every policy eviction.
	// Defaults to logger.NopLogger.
	Logger logger.Logger
}

// Cache is a segmented associative cache safe for concurrent use. Retrieval
// operations do not take a lock, except that a Get whose segment's access
// buffer is full waits for the segment lock to drain it; writes lock only
// the segment they touch. See
// Options for construction defaults.
type Cache[K comparable, V any] struct {
	segments     []*segment[K, V]
	segmentShift uint
	segmentMask  uint32
	hasher       Hasher[K]
	equal        func(a, b V) bool
	metrics      metrics.CacheSink
}

// New constructs a Cache from opts, filling in defaults for any zero field.
func New[K comparable, V any](opts Options[K, V]) *Cache[K, V] {
	if opts.LoadFactor <= 0 {
		opts.LoadFactor = loadFactorDefault
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.InitialCapacity <= 0 {
		opts.InitialCapacity = opts.Concurrency
	}
	if opts.Hasher == nil {
		panic("cache: Options.Hasher is required")
	}
	sink := opts.Metrics
	if sink == nil {
		sink = metrics.NopCacheSink
	}
	log := opts.Logger
	if log == nil {
		log = logger.NopLogger
	}
	strategy := opts.Eviction.String()
	listener := opts.Listener
	wrappedListener := EvictionListener[K, V](func(key K, value V) {
		sink.Eviction(strategy)
		log.Debugf("cache: evicted key %v under %s policy", key, strategy)
		if listener != nil {
			listener(key, value)
		}
	})

	numSegments := 1
	segmentShift := uint(32)
	for numSegments < opts.Concurrency && numSegments < maxSegments {
		numSegments <<= 1
		segmentShift--
	}

	segmentCapacity := opts.InitialCapacity / numSegments
	if segmentCapacity*numSegments < opts.InitialCapacity {
		segmentCapacity++
	}
	cap := 1
	for cap < segmentCapacity {
		cap <<= 1
	}

	c := &Cache[K, V]{
		segments:     make([]*segment[K, V], numSegments),
		segmentShift: segmentShift,
		segmentMask:  uint32(numSegments - 1),
		hasher:       opts.Hasher,
		equal:        opts.Equal,
		metrics:      sink,
	}
	for i := range c.segments {
		c.segments[i] = newSegment[K, V](cap, opts.LoadFactor, opts.Eviction, wrappedListener)
	}
	return c
}

func (c *Cache[K, V]) hashOf(key K) uint32 {
	return spread(c.hasher(key))
}

func (c *Cache[K, V]) segmentFor(hash uint32) *segment[K, V] {
	idx := (hash >> c.segmentShift) & c.segmentMask
	return c.segments[idx]
}

// Get returns the value stored for key and whether it was found. A hit
// counts towards that segment's eviction bookkeeping.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	hash := c.hashOf(key)
	v, found := c.segmentFor(hash).get(key, hash)
	if found {
		c.metrics.Hit()
	} else {
		c.metrics.Miss()
	}
	return v, found
}

// ContainsKey reports whether key is present, without affecting recency.
func (c *Cache[K, V]) ContainsKey(key K) bool {
	hash := c.hashOf(key)
	return c.segmentFor(hash).containsKey(key, hash)
}

// ContainsValue scans every segment for a value equal to v under the
// Equal function supplied at construction. O(n) and weakly consistent: a
// concurrent modification may or may not be observed.
func (c *Cache[K, V]) ContainsValue(v V) bool {
	c.requireEqual()
	for _, s := range c.segments {
		if s.containsValue(v, c.equal) {
			return true
		}
	}
	return false
}

// Put stores value for key, returning the previous value if any.
func (c *Cache[K, V]) Put(key K, value V) (V, bool) {
	hash := c.hashOf(key)
	return c.segmentFor(hash).put(key, hash, value, false)
}

// PutIfAbsent stores value for key only if key is not already present,
// returning the existing value if it was.
func (c *Cache[K, V]) PutIfAbsent(key K, value V) (V, bool) {
	hash := c.hashOf(key)
	return c.segmentFor(hash).put(key, hash, value, true)
}

// Replace updates key's value only if it is currently mapped to oldValue,
// reporting whether the swap happened.
func (c *Cache[K, V]) Replace(key K, oldValue, newValue V) bool {
	c.requireEqual()
	hash := c.hashOf(key)
	return c.segmentFor(hash).replaceValue(key, hash, oldValue, newValue, c.equal)
}

// ReplaceAny updates key's value unconditionally if key is present,
// returning the previous value.
func (c *Cache[K, V]) ReplaceAny(key K, newValue V) (V, bool) {
	hash := c.hashOf(key)
	return c.segmentFor(hash).replace(key, hash, newValue)
}

// Remove deletes key unconditionally, returning its value if present.
func (c *Cache[K, V]) Remove(key K) (V, bool) {
	hash := c.hashOf(key)
	return c.segmentFor(hash).remove(key, hash, nil)
}

// RemoveIfEqual deletes key only if it is currently mapped to value,
// reporting whether the removal happened.
func (c *Cache[K, V]) RemoveIfEqual(key K, value V) bool {
	c.requireEqual()
	hash := c.hashOf(key)
	_, ok := c.segmentFor(hash).remove(key, hash, func(v V) bool { return c.equal(v, value) })
	return ok
}

// Clear empties every segment.
func (c *Cache[K, V]) Clear() {
	for _, s := range c.segments {
		s.clear()
	}
}

// Len returns the approximate number of entries across all segments. When
// segment counts appear to be changing concurrently with the scan, the
// scan is retried under every segment's lock held simultaneously (in
// ascending segment order, to avoid lock-ordering deadlocks) so the result
// is exact for that instant, matching ConcurrentHashMap.size()'s strategy.
func (c *Cache[K, V]) Len() int {
	for attempt := 0; attempt <= retriesBeforeLock; attempt++ {
		var sum, check int64
		for _, s := range c.segments {
			sum += int64(s.count.Load())
		}
		for _, s := range c.segments {
			check += int64(s.count.Load())
		}
		if sum == check {
			return int(sum)
		}
		if attempt == retriesBeforeLock {
			return int(c.lenLockedAll())
		}
	}
	return int(c.lenLockedAll())
}

func (c *Cache[K, V]) lenLockedAll() int64 {
	for _, s := range c.segments {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	var sum int64
	for _, s := range c.segments {
		sum += int64(s.count.Load())
	}
	return sum
}

// ReportSegmentMetrics pushes each segment's current entry count to the
// configured metrics sink. Not called automatically (Len() is on the hot
// path and must stay allocation-light); callers that want the gauge kept
// fresh should call this periodically, e.g. from a bench/serve loop.
func (c *Cache[K, V]) ReportSegmentMetrics() {
	for i, s := range c.segments {
		c.metrics.SegmentEntries(i, int(s.count.Load()))
	}
}

// IsEmpty reports whether the cache currently holds no entries.
func (c *Cache[K, V]) IsEmpty() bool {
	for _, s := range c.segments {
		if s.count.Load() != 0 {
			return false
		}
	}
	return true
}

func (c *Cache[K, V]) requireEqual() {
	if c.equal == nil {
		panic("cache: this operation requires Options.Equal to be set")
	}
}

// Keys returns a weakly consistent snapshot iterator over the keys present
// at some point during the call. Each segment's lock is held only while its
// bucket heads are copied; the chains are walked without any lock.
func (c *Cache[K, V]) Keys(yield func(K) bool) {
	for _, s := range c.snapshotSegments() {
		for _, first := range s {
			for e := first; e != nil; e = e.next {
				if !yield(e.key) {
					return
				}
			}
		}
	}
}

// Values returns a weakly consistent snapshot iterator over values, with
// the same consistency guarantees as Keys.
func (c *Cache[K, V]) Values(yield func(V) bool) {
	for _, s := range c.snapshotSegments() {
		for _, first := range s {
			for e := first; e != nil; e = e.next {
				if !yield(e.loadValue()) {
					return
				}
			}
		}
	}
}

// Entries returns a weakly consistent snapshot iterator over key/value
// pairs, with the same consistency guarantees as Keys.
func (c *Cache[K, V]) Entries(yield func(K, V) bool) {
	for _, s := range c.snapshotSegments() {
		for _, first := range s {
			for e := first; e != nil; e = e.next {
				if !yield(e.key, e.loadValue()) {
					return
				}
			}
		}
	}
}

func (c *Cache[K, V]) snapshotSegments() [][]*entry[K, V] {
	tables := make([][]*entry[K, V], len(c.segments))
	for i, s := range c.segments {
		s.mu.Lock()
		tab := make([]*entry[K, V], len(s.table))
		copy(tab, s.table)
		tables[i] = tab
		s.mu.Unlock()
	}
	return tables
}
