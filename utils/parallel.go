package utils

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ParallelRange splits [0, n) into contiguous chunks of at most chunk
// iterations and runs fn over the chunks from a worker group bounded by
// GOMAXPROCS. Each chunk owns its index range exclusively, so fn may write
// disjoint output rows without locking. Within a chunk the iteration order
// is sequential, which keeps floating-point accumulation deterministic for
// any worker count.
func ParallelRange(n, chunk int, fn func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if chunk < 1 {
		chunk = 1
	}
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for lo := 0; lo < n; lo += chunk {
		hi := min(lo+chunk, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	// Workers never return errors; Wait only synchronizes completion.
	_ = g.Wait()
}
