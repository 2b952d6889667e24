// Package crdt implements the nestable LiveObject/LiveMap/LiveList storage
// tree: a Lamport-clocked, op-based CRDT with last-writer-wins field
// semantics and fractional-index list ordering.
package crdt

import "sync"

// Clock is a Lamport logical timestamp value.
type Clock = int64

// LamportClock is a monotonic counter used to order storage mutations.
// Local mutations call Tick; applying a remote op calls Merge so the local
// clock never falls behind a value it has observed.
type LamportClock struct {
	mu      sync.Mutex
	counter Clock
}

// NewLamportClock returns a clock starting at zero.
func NewLamportClock() *LamportClock {
	return &LamportClock{}
}

// Tick increments the clock for a locally-generated op and returns the new value.
func (c *LamportClock) Tick() Clock {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter++
	return c.counter
}

// Merge raises the local clock to at least remote, matching Lamport's rule
// that observing a remote timestamp never decreases the local clock.
func (c *LamportClock) Merge(remote Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if remote > c.counter {
		c.counter = remote
	}
}

// Current returns the clock's present value without advancing it.
func (c *LamportClock) Current() Clock {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counter
}

// Reset forces the clock to value, used when rehydrating a document from a
// snapshot so new local ticks continue past the highest clock it contains.
func (c *LamportClock) Reset(value Clock) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counter = value
}
