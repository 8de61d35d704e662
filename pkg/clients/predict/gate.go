package predict

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// ConcurrencyGate bounds the number of batches in flight. Waiters are served
// in FIFO order.
type ConcurrencyGate struct {
	sem      *semaphore.Weighted
	capacity int64
	active   atomic.Int64
	peak     atomic.Int64
}

// NewConcurrencyGate returns a gate with the given capacity; anything below
// one is treated as one (fully serial).
func NewConcurrencyGate(capacity int) *ConcurrencyGate {
	if capacity < 1 {
		capacity = 1
	}
	return &ConcurrencyGate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Acquire blocks until a slot is free and takes it.
func (g *ConcurrencyGate) Acquire() {
	// Acquire only fails on context cancellation.
	_ = g.sem.Acquire(context.Background(), 1)
	active := g.active.Add(1)
	for {
		peak := g.peak.Load()
		if active <= peak || g.peak.CompareAndSwap(peak, active) {
			break
		}
	}
}

// Release frees one slot and wakes a waiter. Every Acquire must be paired
// with exactly one Release.
func (g *ConcurrencyGate) Release() {
	g.active.Add(-1)
	g.sem.Release(1)
}

func (g *ConcurrencyGate) Active() int {
	return int(g.active.Load())
}

// Peak is the highest number of slots held at once since creation.
func (g *ConcurrencyGate) Peak() int {
	return int(g.peak.Load())
}

func (g *ConcurrencyGate) Capacity() int {
	return int(g.capacity)
}
