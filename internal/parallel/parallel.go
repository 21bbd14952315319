// Package parallel splits index ranges across goroutines.
package parallel

import (
	"runtime"
	"sync"
)

// Workers normalizes a requested worker count: values below one mean
// "use every CPU", and there are never more workers than items.
func Workers(requested, n int) int {
	w := requested
	if w < 1 {
		w = runtime.NumCPU()
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// For calls fn(worker, lo, hi) for disjoint, contiguous ranges [lo, hi)
// covering [0, n), one range per worker, and waits for all of them. The
// ranges never overlap, so fn may write to its own slice elements without
// locking. worker is in [0, Workers(workers, n)).
func For(n, workers int, fn func(worker, lo, hi int)) {
	if n <= 0 {
		return
	}
	w := Workers(workers, n)
	if w == 1 {
		fn(0, 0, n)
		return
	}

	chunk := (n + w - 1) / w
	var wg sync.WaitGroup
	for k := 0; k < w; k++ {
		lo := k * chunk
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(worker, lo, hi int) {
			defer wg.Done()
			fn(worker, lo, hi)
		}(k, lo, hi)
	}
	wg.Wait()
}
