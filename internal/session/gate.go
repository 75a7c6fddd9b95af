package session

import (
	"context"
	"fmt"

	"golang.org/x/sync/semaphore"
)

// Gate bounds the number of simultaneous outbound generation calls,
// process-wide, shared by all rooms. Acquisition waits for a free slot
// rather than failing: the gated call is one the human is already waiting
// on, so bounded waiting is acceptable here and nowhere else in the core.
// No fairness guarantee beyond the semaphore's own wait queue.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
}

// NewGate creates a gate with the given capacity. Non-positive capacity
// falls back to DefaultGateCapacity.
func NewGate(capacity int) *Gate {
	if capacity <= 0 {
		capacity = DefaultGateCapacity
	}
	return &Gate{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: capacity,
	}
}

// Acquire blocks until a slot frees or ctx is done. The returned release
// func must be called exactly once when the gated call finishes.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("session.Gate.Acquire: %w", err)
	}
	return func() { g.sem.Release(1) }, nil
}

// Capacity returns the fixed slot count.
func (g *Gate) Capacity() int {
	return g.capacity
}
