// Package gate bounds how many tasks run at once.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

type Gate struct {
	sem  *semaphore.Weighted
	size int
}

// New returns a gate with the given ceiling. Values below 1 are raised to 1.
func New(size int) *Gate {
	if size < 1 {
		size = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(size)), size: size}
}

func (g *Gate) Size() int {
	return g.size
}

// WithSlot waits for a free slot, runs task and releases the slot when task
// returns or panics. Waiters are served in arrival order. The task's error is
// returned untouched; ctx.Err() is returned if ctx ends before a slot frees.
func (g *Gate) WithSlot(ctx context.Context, task func(ctx context.Context) error) error {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer g.sem.Release(1)
	return task(ctx)
}
