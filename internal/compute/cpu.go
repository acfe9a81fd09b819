package compute

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"gonum.org/v1/gonum/floats"
)

// DefaultMinChunk is the smallest chunk handed to a worker goroutine.
const DefaultMinChunk = 4096

type CPUBackend struct {
	workers  int
	minChunk int
	partial  []float64
	bad      []bool
}

func NewCPUBackend() *CPUBackend {
	return NewCPUBackendWorkers(runtime.NumCPU())
}

func NewCPUBackendWorkers(workers int) *CPUBackend {
	if workers < 1 {
		workers = 1
	}
	return &CPUBackend{
		workers:  workers,
		minChunk: DefaultMinChunk,
		partial:  make([]float64, workers),
		bad:      make([]bool, workers),
	}
}

// SetMinChunk changes the parallel threshold; tests use it to force the
// chunked path on short vectors.
func (c *CPUBackend) SetMinChunk(n int) {
	if n < 1 {
		n = 1
	}
	c.minChunk = n
}

func (c *CPUBackend) Name() string {
	if c.workers == 1 {
		return "cpu (serial)"
	}
	return fmt.Sprintf("cpu (%d workers)", c.workers)
}

func (c *CPUBackend) Available() bool { return true }
func (c *CPUBackend) Cleanup()        {}

// parallelFor runs fn over [0, n) split into at most c.workers chunks and
// waits for all of them.
func (c *CPUBackend) parallelFor(n int, fn func(worker, start, end int)) int {
	workers := c.workers
	if n/c.minChunk < workers {
		workers = n / c.minChunk
	}
	if workers <= 1 {
		fn(0, 0, n)
		return 1
	}

	chunkSize := (n + workers - 1) / workers
	workers = (n + chunkSize - 1) / chunkSize

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		go func(worker, s, e int) {
			defer wg.Done()
			fn(worker, s, e)
		}(w, start, end)
	}
	wg.Wait()
	return workers
}

func (c *CPUBackend) Copy(dst, src []float64) {
	c.parallelFor(len(dst), func(_, s, e int) {
		copy(dst[s:e], src[s:e])
	})
}

func (c *CPUBackend) Scale(dst []float64, a float64, x []float64) {
	c.parallelFor(len(dst), func(_, s, e int) {
		floats.ScaleTo(dst[s:e], a, x[s:e])
	})
}

func (c *CPUBackend) Axpy(dst []float64, a float64, x []float64) {
	c.parallelFor(len(dst), func(_, s, e int) {
		floats.AddScaled(dst[s:e], a, x[s:e])
	})
}

func (c *CPUBackend) LinearSum(dst []float64, a float64, x []float64, b float64, y []float64) {
	c.parallelFor(len(dst), func(_, s, e int) {
		for i := s; i < e; i++ {
			dst[i] = a*x[i] + b*y[i]
		}
	})
}

func (c *CPUBackend) Weights(dst, y, absTol []float64, relTol float64) error {
	used := c.parallelFor(len(dst), func(w, s, e int) {
		bad := false
		for i := s; i < e; i++ {
			den := relTol*math.Abs(y[i]) + absTol[i]
			if den <= 0 {
				bad = true
				dst[i] = 0
				continue
			}
			dst[i] = 1 / den
		}
		c.bad[w] = bad
	})
	for w := 0; w < used; w++ {
		if c.bad[w] {
			return ErrNonPositiveTolerance
		}
	}
	return nil
}

func (c *CPUBackend) WeightedRMS(x, w []float64) float64 {
	n := len(x)
	if n == 0 {
		return 0
	}
	used := c.parallelFor(n, func(worker, s, e int) {
		sum := 0.0
		for i := s; i < e; i++ {
			v := x[i] * w[i]
			sum += v * v
		}
		c.partial[worker] = sum
	})
	total := floats.Sum(c.partial[:used])
	return math.Sqrt(total / float64(n))
}

func (c *CPUBackend) MaxNorm(x, w []float64) float64 {
	used := c.parallelFor(len(x), func(worker, s, e int) {
		m := 0.0
		for i := s; i < e; i++ {
			if v := math.Abs(x[i] * w[i]); v > m {
				m = v
			}
		}
		c.partial[worker] = m
	})
	if used == 0 {
		return 0
	}
	return floats.Max(c.partial[:used])
}
