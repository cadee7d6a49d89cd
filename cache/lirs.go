package cache

// minHIRSize is the floor on the HIR budget: LIRS needs at least a couple of
// resident HIR slots for the algorithm's promotion/demotion cycle to make
// forward progress.
const minHIRSize = 2

// lirsPolicy implements LIRS (Low Inter-reference Recency Set) bounded to a
// resident HIR set. stack is S: the ordered history of LIR entries plus
// whatever HIR entries (resident or not) were referenced recently enough to
// still matter for promotion decisions. queue is Q: the resident HIR entries
// in access order, used as a plain FIFO of eviction candidates.
type lirsPolicy[K comparable, V any] struct {
	segment *segment[K, V]

	accessBuf *accessBuffer[K, V]
	stack     *keyedList[K, V] // S
	queue     *keyedList[K, V] // Q

	lirSizeLimit   int
	hirSizeLimit   int
	currentLIRSize int
}

func newLIRSPolicy[K comparable, V any](s *segment[K, V], capacity int, loadFactor float64) *lirsPolicy[K, V] {
	lir := int(float64(capacity) * 0.9)
	hir := capacity - lir
	if hir < minHIRSize {
		// The HIR floor is a hard minimum, not traded back against LIR: a
		// small capacity can end up provisioning LIR+HIR slightly above
		// capacity rather than starving the HIR set below minHIRSize.
		hir = minHIRSize
	}
	return &lirsPolicy[K, V]{
		segment:      s,
		accessBuf:    newAccessBuffer[K, V](maxBatchSize),
		stack:        newKeyedList[K, V](),
		queue:        newKeyedList[K, V](),
		lirSizeLimit: lir,
		hirSizeLimit: hir,
	}
}

func (p *lirsPolicy[K, V]) kind() Eviction { return EvictionLIRS }

func (p *lirsPolicy[K, V]) onEntryHit(e *entry[K, V]) bool {
	n := p.accessBuf.add(e)
	return float64(n) >= float64(maxBatchSize)*batchThresholdFactor
}

func (p *lirsPolicy[K, V]) thresholdExpired() bool {
	return p.accessBuf.len() >= maxBatchSize
}

func (p *lirsPolicy[K, V]) present(e *entry[K, V]) bool {
	if _, ok := p.stack.Get(e.hash); ok {
		return true
	}
	return p.queue.Contains(e)
}

// execute replays the buffered hits against S and Q, then evicts from the
// segment whatever fell out of both structures.
func (p *lirsPolicy[K, V]) execute() []*entry[K, V] {
	var evicted []*entry[K, V]
	for _, e := range p.accessBuf.drain() {
		if !p.present(e) {
			continue
		}
		switch e.recencyState() {
		case lirResident:
			p.handleLIRHit(e, &evicted)
		case hirResident:
			p.handleHIRHit(e, &evicted)
		}
	}
	for _, e := range evicted {
		p.segment.removeLocked(e.key, uint32(e.hash), nil)
	}
	return evicted
}

// handleLIRHit moves e to the top of S, then prunes any non-LIR entries
// exposed at the bottom until the next LIR entry is reached.
func (p *lirsPolicy[K, V]) handleLIRHit(e *entry[K, V], evicted *[]*entry[K, V]) {
	p.stack.Remove(e)
	p.stack.PushFront(e)
	p.stack.EachFromBack(func(x *entry[K, V], remove func()) bool {
		if x.recencyState() == lirResident {
			return false
		}
		remove()
		*evicted = append(*evicted, x)
		return true
	})
}

// handleHIRHit promotes a re-referenced HIR entry found in S to LIR,
// demoting the bottommost LIR in its place; an HIR entry not found in S is
// pushed to the top of S and moved to the tail of Q.
//
// NOTE: mirrors the upstream Java implementation, which unconditionally
// removes e from Q and (in the "not in stack" branch) re-appends it, rather
// than checking membership first. Whether this is an intentional no-op
// re-insertion or a latent bug in the source algorithm is not resolved here
// -- see the LIRS hit-to-LIR open question. Flagged, not silently changed.
func (p *lirsPolicy[K, V]) handleHIRHit(e *entry[K, V], evicted *[]*entry[K, V]) {
	_, inStack := p.stack.Get(e.hash)
	if inStack {
		p.stack.Remove(e)
	}
	p.stack.PushFront(e)

	if inStack {
		p.queue.Remove(e)
		e.transitionHIRResidentToLIRResident()
		p.switchBottomostLIRtoHIRAndPrune(evicted)
	} else {
		p.queue.Remove(e)
		p.queue.PushBack(e)
	}
}

func (p *lirsPolicy[K, V]) switchBottomostLIRtoHIRAndPrune(evicted *[]*entry[K, V]) {
	seenFirstLIR := false
	p.stack.EachFromBack(func(x *entry[K, V], remove func()) bool {
		if x.recencyState() == lirResident {
			if seenFirstLIR {
				return false
			}
			seenFirstLIR = true
			remove()
			x.transitionLIRResidentToHIRResident()
			p.queue.PushBack(x)
			return true
		}
		remove()
		*evicted = append(*evicted, x)
		return true
	})
}

func (p *lirsPolicy[K, V]) onEntryMiss(e *entry[K, V]) {
	if p.currentLIRSize+1 < p.lirSizeLimit {
		p.currentLIRSize++
		e.transitionHIRResidentToLIRResident()
		p.stack.Put(e)
		return
	}

	if p.queue.Len() < p.hirSizeLimit {
		p.queue.PushBack(e)
		return
	}

	_, inStack := p.stack.Get(e.hash)

	first := p.queue.PopFront()
	first.transitionHIRResidentToHIRNonResident()

	p.stack.Put(e)

	if inStack {
		e.transitionHIRResidentToLIRResident()
		var evicted []*entry[K, V]
		p.switchBottomostLIRtoHIRAndPrune(&evicted)
		for _, ev := range evicted {
			p.segment.removeLocked(ev.key, uint32(ev.hash), nil)
		}
	} else {
		p.queue.PushBack(e)
	}

	p.segment.removeLocked(first.key, uint32(first.hash), nil)
}

func (p *lirsPolicy[K, V]) onEntryRemove(e *entry[K, V]) {
	if removed, ok := p.stack.Get(e.hash); ok {
		wasLIR := removed.recencyState() == lirResident
		p.stack.Remove(removed)
		if wasLIR {
			p.currentLIRSize--
		}
	}
	p.queue.Remove(e)
	p.accessBuf.removeAll(e)
}

func (p *lirsPolicy[K, V]) clear() {
	p.stack.Clear()
	p.queue.Clear()
	p.currentLIRSize = 0
	p.accessBuf.drain()
}
