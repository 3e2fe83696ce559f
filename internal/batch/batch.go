// Package batch provides the bounded worker pool used for multi-application
// analysis runs.
package batch

import (
	"context"
	gosync "sync"
	"sync/atomic"
)

// Result pairs one processed item with its outcome. Index is the item's
// position in the input slice.
type Result[R any] struct {
	Index int
	Value R
	Err   error
}

// Map processes items in parallel with the specified number of workers and
// returns one result per item, in input order.
//
// A failing item records its error and processing continues; one bad
// application must not sink the rest of a batch. Only context cancellation
// stops the run early, in which case the context error is returned and
// unprocessed items carry it as their result error.
//
// The onProgress callback is called after each item completes.
func Map[T any, R any](
	ctx context.Context,
	items []T,
	workers int,
	process func(ctx context.Context, item T) (R, error),
	onProgress func(done int64, total int64),
) ([]Result[R], error) {
	if len(items) == 0 {
		return nil, nil
	}

	workers = normalizeWorkers(workers, len(items))
	total := int64(len(items))

	jobs := make(chan int, len(items))
	out := make([]Result[R], len(items))
	var done int64

	var wg gosync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				if err := ctx.Err(); err != nil {
					out[idx] = Result[R]{Index: idx, Err: err}
					continue
				}
				value, err := process(ctx, items[idx])
				out[idx] = Result[R]{Index: idx, Value: value, Err: err}
				n := atomic.AddInt64(&done, 1)
				if onProgress != nil {
					onProgress(n, total)
				}
			}
		}()
	}

	for idx := range items {
		jobs <- idx
	}
	close(jobs)
	wg.Wait()

	return out, ctx.Err()
}

// Failed returns the results whose processing returned an error.
func Failed[R any](results []Result[R]) []Result[R] {
	var out []Result[R]
	for _, res := range results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// normalizeWorkers ensures worker count is between 1 and item count.
func normalizeWorkers(workers, itemCount int) int {
	if workers < 1 {
		workers = 1
	}
	if workers > itemCount {
		workers = itemCount
	}
	return workers
}
