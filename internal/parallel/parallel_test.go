package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestWorkers(t *testing.T) {
	tests := []struct {
		requested, n, want int
	}{
		{4, 100, 4},
		{4, 2, 2},
		{0, 1, 1},
		{3, 0, 1},
	}
	for _, tt := range tests {
		if got := Workers(tt.requested, tt.n); got != tt.want {
			t.Errorf("Workers(%d, %d) = %d, want %d", tt.requested, tt.n, got, tt.want)
		}
	}
	if got := Workers(-1, 1<<20); got != runtime.NumCPU() {
		t.Errorf("Workers(-1, big) = %d, want NumCPU %d", got, runtime.NumCPU())
	}
}

func TestForCoversEveryIndexOnce(t *testing.T) {
	for _, workers := range []int{1, 3, 8, 50} {
		n := 37
		hits := make([]int32, n)
		var calls int32

		For(n, workers, func(worker, lo, hi int) {
			atomic.AddInt32(&calls, 1)
			if worker < 0 || worker >= Workers(workers, n) {
				t.Errorf("worker index %d out of range", worker)
			}
			for i := lo; i < hi; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})

		for i, h := range hits {
			if h != 1 {
				t.Errorf("workers=%d: index %d visited %d times", workers, i, h)
			}
		}
		if int(calls) > Workers(workers, n) {
			t.Errorf("workers=%d: %d ranges for %d workers", workers, calls, Workers(workers, n))
		}
	}
}

func TestForEmpty(t *testing.T) {
	For(0, 4, func(worker, lo, hi int) {
		t.Error("fn must not be called for n = 0")
	})
}
