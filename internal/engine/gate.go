package engine

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// gate is a token pool bounding how many units run at once in a scope.
// A nil gate admits everything.
type gate struct {
	sem *semaphore.Weighted
}

func newGate(limit int) *gate {
	if limit <= 0 {
		return nil
	}
	return &gate{sem: semaphore.NewWeighted(int64(limit))}
}

// acquire blocks until a token is free or ctx is done.
func (g *gate) acquire(ctx context.Context) error {
	if g == nil {
		return ctx.Err()
	}
	return g.sem.Acquire(ctx, 1)
}

func (g *gate) release() {
	if g != nil {
		g.sem.Release(1)
	}
}
