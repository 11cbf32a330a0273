package utils

import (
	"sync/atomic"
	"testing"
)

func TestParallelRangeCoversAllIndices(t *testing.T) {
	for _, tc := range []struct{ n, chunk int }{
		{0, 4}, {1, 4}, {7, 3}, {16, 4}, {17, 4}, {5, 100}, {10, 0},
	} {
		visits := make([]int32, tc.n)
		ParallelRange(tc.n, tc.chunk, func(lo, hi int) {
			if lo < 0 || hi > tc.n || lo >= hi {
				t.Errorf("n=%d chunk=%d: bad range [%d,%d)", tc.n, tc.chunk, lo, hi)
				return
			}
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&visits[i], 1)
			}
		})
		for i, v := range visits {
			if v != 1 {
				t.Errorf("n=%d chunk=%d: index %d visited %d times", tc.n, tc.chunk, i, v)
			}
		}
	}
}

func TestParallelRangeChunkBounds(t *testing.T) {
	var maxSeen atomic.Int64
	ParallelRange(100, 7, func(lo, hi int) {
		if n := int64(hi - lo); n > maxSeen.Load() {
			maxSeen.Store(n)
		}
	})
	if maxSeen.Load() > 7 {
		t.Errorf("chunk of size %d exceeds limit 7", maxSeen.Load())
	}
}
