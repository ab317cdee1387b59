package sift

import "sync"

// Barrier is a reusable synchronization point for a fixed number of
// parties. Await blocks until all parties have arrived, then releases
// them together and resets for the next phase. This is the group
// synchronization construct backing Group.Sync: lane-local state plus a
// barrier replaces shared mutable state guarded by a lock.
type Barrier struct {
	mu      sync.Mutex
	cond    *sync.Cond
	parties int
	waiting int
	phase   uint64
	broken  bool
}

// NewBarrier creates a barrier for the given number of parties.
// parties must be at least 1.
func NewBarrier(parties int) *Barrier {
	if parties < 1 {
		panic("sift: barrier needs at least one party")
	}
	b := &Barrier{parties: parties}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// Await blocks until all parties have called Await for the current phase.
// The last arriving party advances the phase and wakes the rest.
// On a broken barrier Await returns immediately.
func (b *Barrier) Await() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.broken {
		return
	}

	b.waiting++
	if b.waiting == b.parties {
		b.waiting = 0
		b.phase++
		b.cond.Broadcast()
		return
	}

	arrival := b.phase
	for arrival == b.phase && !b.broken {
		b.cond.Wait()
	}
}

// Break permanently releases all current and future waiters. Used when a
// party fails mid-phase and the remaining parties must not deadlock.
func (b *Barrier) Break() {
	b.mu.Lock()
	b.broken = true
	b.cond.Broadcast()
	b.mu.Unlock()
}

// Broken reports whether the barrier has been broken.
func (b *Barrier) Broken() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.broken
}
