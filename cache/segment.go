package cache

import (
	"sync"
	"sync/atomic"
)

// segment is one shard of a Cache: its own bucket table, its own lock, and
// its own eviction policy instance. Splitting the keyspace into segments is
// what lets unrelated keys be written concurrently without contending on a
// single lock; splitting eviction bookkeeping the same way is what lets each
// segment amortize its own eviction batches independently.
type segment[K comparable, V any] struct {
	mu sync.Mutex

	// count is read by readers without the lock, as a fence: after loading
	// count, a reader is guaranteed to see any table/next-pointer writes
	// that happened-before the writer's own count increment. Every write
	// that changes the shape of the table bumps count last.
	count atomic.Uint32

	table      []*entry[K, V]
	threshold  int
	modCount   uint32
	loadFactor float64

	eviction evictionPolicy[K, V]
	listener EvictionListener[K, V]
}

const loadFactorDefault = 0.75

func newSegment[K comparable, V any](initialCapacity int, loadFactor float64, evictionKind Eviction, listener EvictionListener[K, V]) *segment[K, V] {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	s := &segment[K, V]{
		table:      make([]*entry[K, V], initialCapacity),
		loadFactor: loadFactor,
		listener:   listener,
	}
	s.threshold = int(float64(len(s.table)) * loadFactor)
	s.eviction = newEvictionPolicy[K, V](evictionKind, s, initialCapacity, loadFactor)
	return s
}

func (s *segment[K, V]) indexFor(hash uint32, tableLen int) int {
	return int(hash) & (tableLen - 1)
}

func (s *segment[K, V]) getFirst(hash uint32) *entry[K, V] {
	table := s.table
	return table[s.indexFor(hash, len(table))]
}

// get walks the bucket chain without acquiring the lock. count is read first
// as an acquire fence; any structural change a writer made before publishing
// its new count is guaranteed visible here. A hit records itself into the
// eviction policy and, if the batch crossed the opportunistic threshold,
// attempts a drain on the calling goroutine; that drain blocks on the lock
// only when the access buffer is full (see attemptEviction).
func (s *segment[K, V]) get(key K, hash uint32) (V, bool) {
	if s.count.Load() != 0 {
		e := s.getFirst(hash)
		for e != nil {
			if e.hash == uint64(hash) && keyEquals(e.key, key) {
				v := e.loadValue()
				if s.eviction.onEntryHit(e) {
					s.attemptEviction(false)
				}
				return v, true
			}
			e = e.next
		}
	}
	var zero V
	return zero, false
}

func (s *segment[K, V]) containsKey(key K, hash uint32) bool {
	if s.count.Load() != 0 {
		for e := s.getFirst(hash); e != nil; e = e.next {
			if e.hash == uint64(hash) && keyEquals(e.key, key) {
				return true
			}
		}
	}
	return false
}

func (s *segment[K, V]) containsValue(value V, equal func(a, b V) bool) bool {
	if s.count.Load() != 0 {
		for _, first := range s.table {
			for e := first; e != nil; e = e.next {
				if equal(e.loadValue(), value) {
					return true
				}
			}
		}
	}
	return false
}

// attemptEviction tries to drain the access buffer. It only blocks on the
// segment lock if lockedAlready is false and the policy reports its buffer
// is mandatorily full (thresholdExpired); otherwise it uses TryLock so a
// reader never stalls another goroutine's write just to flush a hint queue.
func (s *segment[K, V]) attemptEviction(lockedAlready bool) {
	var locked bool
	if !lockedAlready {
		if s.eviction.thresholdExpired() {
			s.mu.Lock()
			locked = true
		} else {
			locked = s.mu.TryLock()
		}
		if !locked {
			return
		}
	}
	evicted := func() []*entry[K, V] {
		if !lockedAlready {
			defer s.mu.Unlock()
		}
		return s.eviction.execute()
	}()
	for _, e := range evicted {
		if s.listener != nil {
			s.listener(e.key, e.loadValue())
		}
	}
}

func (s *segment[K, V]) put(key K, hash uint32, value V, onlyIfAbsent bool) (V, bool) {
	var evicted []*entry[K, V]
	s.mu.Lock()
	defer func() {
		s.mu.Unlock()
		for _, e := range evicted {
			if s.listener != nil {
				s.listener(e.key, e.loadValue())
			}
		}
	}()

	count := int(s.count.Load())
	if count+1 > s.threshold && s.eviction.kind() == EvictionNone {
		s.rehash()
	}

	table := s.table
	index := s.indexFor(hash, len(table))
	first := table[index]
	for e := first; e != nil; e = e.next {
		if e.hash == uint64(hash) && keyEquals(e.key, key) {
			old := e.loadValue()
			if !onlyIfAbsent {
				e.storeValue(value)
			}
			return old, true
		}
	}

	if s.eviction.kind() != EvictionNone && count >= len(table) {
		evicted = s.eviction.execute()
		table = s.table
		index = s.indexFor(hash, len(table))
		first = table[index]
	}

	e := newEntry[K, V](key, uint64(hash), first, value)
	table[index] = e
	s.eviction.onEntryMiss(e)
	s.modCount++
	// onEntryMiss (LIRS) and the eviction.execute() call above may have
	// removed entries synchronously via removeLocked, each already
	// decrementing s.count on its own; reload rather than reuse the count
	// captured at entry, or those decrements would be overwritten here.
	s.count.Store(s.count.Load() + 1)
	var zero V
	return zero, false
}

// rehash doubles the table and redistributes entries. Because next pointers
// are immutable once published, a trailing run of nodes that land in the
// same new bucket index as each other can be reused verbatim; only the nodes
// before that run need to be cloned.
func (s *segment[K, V]) rehash() {
	oldTable := s.table
	oldCapacity := len(oldTable)
	newCapacity := oldCapacity << 1
	newTable := make([]*entry[K, V], newCapacity)
	s.threshold = int(float64(newCapacity) * s.loadFactor)

	for i := 0; i < oldCapacity; i++ {
		e := oldTable[i]
		if e == nil {
			continue
		}
		next := e.next
		idx := s.indexFor(uint32(e.hash), newCapacity)

		if next == nil {
			newTable[idx] = e
		} else {
			lastIdx := idx
			lastRun := e
			for last := next; last != nil; last = last.next {
				lastIdx2 := s.indexFor(uint32(last.hash), newCapacity)
				if lastIdx2 != lastIdx {
					lastIdx = lastIdx2
					lastRun = last
				}
			}
			newTable[lastIdx] = lastRun

			for p := e; p != lastRun; p = p.next {
				pIdx := s.indexFor(uint32(p.hash), newCapacity)
				newTable[pIdx] = newEntry[K, V](p.key, p.hash, newTable[pIdx], p.loadValue())
			}
		}
	}
	s.table = newTable
}

// remove acquires the segment lock and delegates to removeLocked. Exposed
// for callers outside the eviction path.
func (s *segment[K, V]) remove(key K, hash uint32, matchValue func(V) bool) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeLocked(key, hash, matchValue)
}

// removeLocked assumes the caller already holds s.mu. Eviction policies call
// this directly from execute()/onEntryMiss(), which always run with the
// segment lock already held; going through remove() there would deadlock
// since sync.Mutex, unlike java.util.concurrent.locks.ReentrantLock, is not
// reentrant.
//
// Every node preceding the removed node is cloned (since next is immutable),
// with onEntryRemove fired for each original and onEntryMiss for each clone;
// the suffix after the removed node is shared unchanged.
func (s *segment[K, V]) removeLocked(key K, hash uint32, matchValue func(V) bool) (V, bool) {
	count := int(s.count.Load())
	table := s.table
	index := s.indexFor(hash, len(table))
	first := table[index]

	e := first
	for e != nil && !(e.hash == uint64(hash) && keyEquals(e.key, key)) {
		e = e.next
	}

	var zero V
	if e == nil {
		return zero, false
	}
	oldValue := e.loadValue()
	if matchValue != nil && !matchValue(oldValue) {
		return zero, false
	}

	s.modCount++
	s.eviction.onEntryRemove(e)

	newFirst := e.next
	for p := first; p != e; p = p.next {
		s.eviction.onEntryRemove(p)
		clone := newEntry[K, V](p.key, p.hash, newFirst, p.loadValue())
		newFirst = clone
		s.eviction.onEntryMiss(clone)
	}
	table[index] = newFirst
	s.count.Store(uint32(count - 1))
	return oldValue, true
}

func (s *segment[K, V]) replaceValue(key K, hash uint32, oldValue V, newValue V, equal func(a, b V) bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := s.getFirst(hash); e != nil; e = e.next {
		if e.hash == uint64(hash) && keyEquals(e.key, key) {
			if !equal(e.loadValue(), oldValue) {
				return false
			}
			e.storeValue(newValue)
			return true
		}
	}
	return false
}

func (s *segment[K, V]) replace(key K, hash uint32, newValue V) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for e := s.getFirst(hash); e != nil; e = e.next {
		if e.hash == uint64(hash) && keyEquals(e.key, key) {
			old := e.loadValue()
			e.storeValue(newValue)
			return old, true
		}
	}
	var zero V
	return zero, false
}

func (s *segment[K, V]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.count.Load() != 0 {
		s.table = make([]*entry[K, V], len(s.table))
		s.modCount++
		s.eviction.clear()
		s.count.Store(0)
	}
}

func keyEquals[K comparable](a, b K) bool { return a == b }
