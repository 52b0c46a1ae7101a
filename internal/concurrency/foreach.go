// Package concurrency runs independent side effects with a bounded worker pool.
package concurrency

import (
	"context"
	"sync"
)

type Options struct {
	// MaxWorkers caps concurrent calls; <= 0 means DefaultWorkers.
	MaxWorkers int
}

const DefaultWorkers = 4

func DefaultOptions() Options {
	return Options{MaxWorkers: DefaultWorkers}
}

// ForEach calls fn for every item and waits for all calls to return.
// The returned slice holds the non-nil errors in item order.
// Items not yet started when ctx is canceled are skipped and report ctx.Err().
func ForEach[T any](
	ctx context.Context,
	items []T,
	opts Options,
	fn func(ctx context.Context, index int, item T) error,
) []error {
	if len(items) == 0 {
		return nil
	}

	workers := opts.MaxWorkers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, len(items))

	jobs := make(chan int)
	errs := make([]error, len(items))

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if err := ctx.Err(); err != nil {
					errs[i] = err
					continue
				}
				errs[i] = fn(ctx, i, items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var out []error
	for _, err := range errs {
		if err != nil {
			out = append(out, err)
		}
	}
	return out
}
