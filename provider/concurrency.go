package provider

import (
	"context"
	"sync"
)

// fanOut runs fn(items[i]) for every i with up to maxConcurrency goroutines
// in flight at once, chunking items into batches of maxConcurrency and
// serializing the chunks (spec §5, "Concurrency bound" / §4.5
// "Concurrency policy"). Every item of a chunk runs to completion; if any
// of them failed, the error of the lowest-indexed failing item is returned
// and later chunks are not started. There is no per-request
// retry (spec §4.5) -- a failed chunk fails the whole call.
func fanOut(ctx context.Context, n int, maxConcurrency int, fn func(ctx context.Context, i int) error) error {
	if maxConcurrency <= 0 {
		maxConcurrency = 1
	}
	for start := 0; start < n; start += maxConcurrency {
		end := start + maxConcurrency
		if end > n {
			end = n
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		var wg sync.WaitGroup
		errs := make([]error, end-start)
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()
				errs[idx-start] = fn(ctx, idx)
			}(i)
		}
		wg.Wait()
		for _, err := range errs {
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// blockRange enumerates the inclusive block range [from, to] stepping by
// inc, matching the range semantics of BlockSampledDatalake (spec §3).
func blockRange(from, to, inc uint64) []uint64 {
	if inc == 0 {
		inc = 1
	}
	if to < from {
		return nil
	}
	out := make([]uint64, 0, (to-from)/inc+1)
	for b := from; b <= to; b += inc {
		out = append(out, b)
	}
	return out
}
