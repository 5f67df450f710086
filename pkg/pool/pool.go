// Package pool provides a bounded-concurrency worker pool, adapted from
// the teacher's pkg/pool.Pool (the worker pool threaded through
// protocol.StartFunc in the elliptic-curve threshold protocols) into a
// generic fan-out helper used here to run PassiveRuntime's per-cell
// await/compute/reshare work (MatrixProd, Gauss) with a bounded number of
// goroutines, rather than one goroutine per cell.
package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Pool bounds how many jobs submitted via Parallel run concurrently. A zero
// Pool has no limit.
type Pool struct {
	limit int
}

// New returns a Pool that runs at most limit jobs concurrently. limit <= 0
// means unbounded.
func New(limit int) *Pool {
	return &Pool{limit: limit}
}

// Parallel runs fn(i) for i in [0, n), fanning out across the pool's
// concurrency limit, and returns the first error encountered (if any),
// cancelling the shared context for the remaining jobs.
func (p *Pool) Parallel(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if p != nil && p.limit > 0 {
		g.SetLimit(p.limit)
	}
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(gctx, i)
		})
	}
	return g.Wait()
}
