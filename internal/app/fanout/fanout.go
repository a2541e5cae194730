// Package fanout runs one function over a slice of inputs with a bounded
// number of goroutines. The reconciler uses it to re-project a ticket onto
// every board that holds it.
package fanout

import (
	"context"
	"sync"
)

// Result holds the outcome for one input. Either Value is populated or Err
// is non-nil.
type Result[R any] struct {
	Value R
	Err   error
}

// Run calls fn for each item with at most maxWorkers calls in flight and
// returns the results in input order. A non-positive maxWorkers runs the
// items one at a time.
//
// Items still waiting for a slot when ctx is done record ctx.Err() and fn is
// not called for them. Calls already running are left to observe ctx
// themselves. Run returns an empty non-nil slice for empty input.
func Run[T, R any](ctx context.Context, maxWorkers int, items []T, fn func(context.Context, T) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	sem := make(chan struct{}, min(max(maxWorkers, 1), len(items)))
	var wg sync.WaitGroup

	for i, item := range items {
		wg.Go(func() {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result[R]{Err: ctx.Err()}
				return
			}

			val, err := fn(ctx, item)
			results[i] = Result[R]{Value: val, Err: err}
		})
	}

	wg.Wait()
	return results
}
