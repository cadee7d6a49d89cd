package cache

import (
	"sync/atomic"

	cacheerrors "github.com/Abiy-Samson/Blazegraph/errors"
)

// recency is the LIRS residency classification of an entry. It is only
// mutated under the owning segment's lock (during a drain or a write), so it
// needs no atomic protection of its own.
type recency uint8

const (
	hirResident recency = iota
	lirResident
	hirNonResident
)

func (r recency) String() string {
	switch r {
	case hirResident:
		return "HIR_RESIDENT"
	case lirResident:
		return "LIR_RESIDENT"
	case hirNonResident:
		return "HIR_NONRESIDENT"
	default:
		return "UNKNOWN"
	}
}

// entry is one bucket-chain link. key, hash and next are immutable once
// published, which is what lets readers walk a chain without holding the
// segment lock: a reader either sees a node or it doesn't, and once seen its
// next pointer never changes underneath it. value is stored behind an
// atomic.Pointer so a concurrent reader observes either the old or the new
// value, never a torn one.
type entry[K comparable, V any] struct {
	key  K
	hash uint64
	next *entry[K, V]

	value atomic.Pointer[V]
	state recency
}

func newEntry[K comparable, V any](key K, hash uint64, next *entry[K, V], value V) *entry[K, V] {
	e := &entry[K, V]{key: key, hash: hash, next: next, state: hirResident}
	e.value.Store(&value)
	return e
}

func (e *entry[K, V]) loadValue() V {
	return *e.value.Load()
}

func (e *entry[K, V]) storeValue(v V) {
	e.value.Store(&v)
}

func (e *entry[K, V]) recencyState() recency { return e.state }

// The transition methods assert the source state, mirroring the state
// machine in the eviction-policy design: HIR_RESIDENT is the only
// initial state, and every other transition must originate from a specific
// state or it indicates a broken invariant in the policy implementation.

func (e *entry[K, V]) transitionHIRResidentToLIRResident() {
	assertState(e, hirResident)
	e.state = lirResident
}

func (e *entry[K, V]) transitionHIRResidentToHIRNonResident() {
	assertState(e, hirResident)
	e.state = hirNonResident
}

func (e *entry[K, V]) transitionHIRNonResidentToLIRResident() {
	assertState(e, hirNonResident)
	e.state = lirResident
}

func (e *entry[K, V]) transitionLIRResidentToHIRResident() {
	assertState(e, lirResident)
	e.state = hirResident
}

func assertState[K comparable, V any](e *entry[K, V], want recency) {
	if e.state != want {
		panic(cacheerrors.Newf(cacheerrors.InvariantViolation,
			"cache: entry recency transition requires state %s, found %s", want, e.state))
	}
}
