package physics

import (
	"golang.org/x/sync/errgroup"
)

// minChunk is the smallest per-worker slice handed out by dispatch.
const minChunk = 64

// dispatch runs kernel over [0,n) split into contiguous chunks, one goroutine
// per chunk, and returns only once every chunk has finished. Kernels may write
// freely to per-index slots inside their own chunk; anything shared must be
// read-only for the duration of the launch.
func dispatch(workers, n int, kernel func(lo, hi int)) {
	if n <= 0 {
		return
	}
	if workers <= 1 || n <= minChunk {
		kernel(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo := lo
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			kernel(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// reduceMax runs a per-chunk max reduction over [0,n).
func reduceMax(workers, n int, kernel func(lo, hi int) float64) float64 {
	if n <= 0 {
		return 0
	}
	if workers <= 1 || n <= minChunk {
		return kernel(0, n)
	}
	chunk := (n + workers - 1) / workers
	if chunk < minChunk {
		chunk = minChunk
	}
	parts := make([]float64, (n+chunk-1)/chunk)
	var g errgroup.Group
	g.SetLimit(workers)
	for p := range parts {
		p := p
		lo := p * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		g.Go(func() error {
			parts[p] = kernel(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
	best := parts[0]
	for _, v := range parts[1:] {
		if v > best {
			best = v
		}
	}
	return best
}
