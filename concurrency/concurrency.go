// Package concurrency implements the dispatch harness for chunk I/O
// operations (spec section 4.7): an async-native fan-out of independent
// tasks with first-error-wins/sibling-cancellation semantics and an
// optional concurrency bound, plus a synchronous façade backed by a
// persistent, lazily-initialized, process-wide event loop. Grounded on
// golang.org/x/sync's errgroup and semaphore packages, which appear broadly
// across the retrieval pack as the idiomatic Go substitute for a
// future/promise-composition runtime.
package concurrency

import (
	"context"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Harness dispatches independent tasks against a store with an optional
// concurrency bound (spec section 4.7: "default unlimited within a single
// request").
type Harness struct {
	sem *semaphore.Weighted
}

// NewHarness builds a harness with the given concurrency bound. A limit of
// 0 or less means unlimited in-flight operations.
func NewHarness(limit int) *Harness {
	if limit <= 0 {
		return &Harness{}
	}
	return &Harness{sem: semaphore.NewWeighted(int64(limit))}
}

// Run executes tasks concurrently against ctx. If any task returns an
// error, the remaining tasks are cancelled (best-effort, cooperative via
// ctx) and the first error is returned (spec section 4.7/5: "first error
// wins and remaining tasks are cancelled").
func (h *Harness) Run(ctx context.Context, tasks []func(ctx context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if h.sem != nil {
				if err := h.sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer h.sem.Release(1)
			}
			return task(gctx)
		})
	}
	return g.Wait()
}

// RunIndexed executes n independent tasks, each identified by its index,
// concurrently, with the same first-error-wins/cancellation semantics as
// Run. Useful for dispatching over a slice of chunk projections without
// allocating a closure slice up front.
func (h *Harness) RunIndexed(ctx context.Context, n int, task func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if h.sem != nil {
				if err := h.sem.Acquire(gctx, 1); err != nil {
					return err
				}
				defer h.sem.Release(1)
			}
			return task(gctx, i)
		})
	}
	return g.Wait()
}
