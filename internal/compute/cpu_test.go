package compute

import (
	"errors"
	"math"
	"testing"
)

func backends() map[string]*CPUBackend {
	serial := NewCPUBackendWorkers(1)
	chunked := NewCPUBackendWorkers(4)
	chunked.SetMinChunk(3)
	return map[string]*CPUBackend{"serial": serial, "chunked": chunked}
}

func ramp(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = float64(i+1) * 0.5
	}
	return v
}

func TestVectorPrimitives(t *testing.T) {
	for name, be := range backends() {
		t.Run(name, func(t *testing.T) {
			n := 17
			x := ramp(n)
			y := make([]float64, n)

			be.Scale(y, 2, x)
			for i := range y {
				if y[i] != 2*x[i] {
					t.Fatalf("Scale: y[%d] = %v, want %v", i, y[i], 2*x[i])
				}
			}

			be.Axpy(y, -1, x)
			for i := range y {
				if y[i] != x[i] {
					t.Fatalf("Axpy: y[%d] = %v, want %v", i, y[i], x[i])
				}
			}

			be.LinearSum(y, 3, x, -2, y)
			for i := range y {
				if math.Abs(y[i]-x[i]) > 1e-15 {
					t.Fatalf("LinearSum: y[%d] = %v, want %v", i, y[i], x[i])
				}
			}

			z := make([]float64, n)
			be.Copy(z, x)
			for i := range z {
				if z[i] != x[i] {
					t.Fatalf("Copy: z[%d] = %v", i, z[i])
				}
			}
		})
	}
}

func TestChunksPartitionShortVectors(t *testing.T) {
	be := NewCPUBackendWorkers(4)
	be.SetMinChunk(1)
	for _, n := range []int{1, 2, 5, 6, 7, 9, 10, 13} {
		hits := make([]int, n)
		used := be.parallelFor(n, func(_, start, end int) {
			if start < 0 || start >= end || end > n {
				t.Errorf("n=%d: chunk [%d, %d)", n, start, end)
				return
			}
			for i := start; i < end; i++ {
				hits[i]++
			}
		})
		if used > 4 {
			t.Errorf("n=%d: %d workers", n, used)
		}
		for i, h := range hits {
			if h != 1 {
				t.Errorf("n=%d: index %d visited %d times", n, i, h)
			}
		}
	}
}

func TestOddLengthsMatchSerial(t *testing.T) {
	serial := NewCPUBackendWorkers(1)
	chunked := NewCPUBackendWorkers(4)
	chunked.SetMinChunk(1)
	for _, n := range []int{5, 7} {
		x := ramp(n)
		w := make([]float64, n)
		for i := range w {
			w[i] = 1 / x[i]
		}
		want := make([]float64, n)
		got := make([]float64, n)

		serial.LinearSum(want, 2, x, -0.5, w)
		chunked.LinearSum(got, 2, x, -0.5, w)
		serial.Axpy(want, 3, x)
		chunked.Axpy(got, 3, x)
		serial.Scale(want, 0.25, want)
		chunked.Scale(got, 0.25, got)
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("n=%d: got[%d] = %v, want %v", n, i, got[i], want[i])
			}
		}

		chunked.Copy(got, x)
		for i := range x {
			if got[i] != x[i] {
				t.Fatalf("n=%d: Copy[%d] = %v", n, i, got[i])
			}
		}

		if a, b := chunked.WeightedRMS(x, w), serial.WeightedRMS(x, w); math.Abs(a-b) > 1e-15 {
			t.Errorf("n=%d: WeightedRMS %v, serial %v", n, a, b)
		}
		if a, b := chunked.MaxNorm(x, w), serial.MaxNorm(x, w); a != b {
			t.Errorf("n=%d: MaxNorm %v, serial %v", n, a, b)
		}
	}
}

func TestWeightedRMS(t *testing.T) {
	for name, be := range backends() {
		t.Run(name, func(t *testing.T) {
			x := []float64{3, 4, 0, 0}
			w := []float64{1, 1, 1, 1}
			if got := be.WeightedRMS(x, w); math.Abs(got-2.5) > 1e-15 {
				t.Errorf("WeightedRMS = %v, want 2.5", got)
			}

			zero := make([]float64, 4)
			if got := be.WeightedRMS(zero, w); got != 0 {
				t.Errorf("norm of zero vector = %v", got)
			}

			if got := be.WeightedRMS(nil, nil); got != 0 {
				t.Errorf("norm of empty vector = %v", got)
			}
		})
	}
}

func TestWeightedRMSPermutationInvariant(t *testing.T) {
	be := backends()["chunked"]
	x := ramp(23)
	w := make([]float64, 23)
	for i := range w {
		w[i] = 0.7
	}
	base := be.WeightedRMS(x, w)

	perm := make([]float64, len(x))
	for i := range x {
		perm[i] = x[(i*5+3)%len(x)]
	}
	if got := be.WeightedRMS(perm, w); math.Abs(got-base) > 1e-12*base {
		t.Errorf("permuted norm %v differs from %v", got, base)
	}
}

func TestWeights(t *testing.T) {
	for name, be := range backends() {
		t.Run(name, func(t *testing.T) {
			y := []float64{1, -2, 0, 4}
			abs := []float64{1e-3, 1e-3, 1e-3, 1e-3}
			w := make([]float64, 4)
			if err := be.Weights(w, y, abs, 1e-2); err != nil {
				t.Fatalf("Weights failed: %v", err)
			}
			for i := range y {
				want := 1 / (1e-2*math.Abs(y[i]) + 1e-3)
				if math.Abs(w[i]-want) > 1e-12*want {
					t.Errorf("w[%d] = %v, want %v", i, w[i], want)
				}
			}

			abs[2] = 0
			if err := be.Weights(w, y, abs, 1e-2); !errors.Is(err, ErrNonPositiveTolerance) {
				t.Errorf("expected ErrNonPositiveTolerance, got %v", err)
			}
		})
	}
}

func TestMaxNorm(t *testing.T) {
	for name, be := range backends() {
		t.Run(name, func(t *testing.T) {
			x := ramp(11)
			x[6] = -40
			w := make([]float64, 11)
			for i := range w {
				w[i] = 0.5
			}
			if got := be.MaxNorm(x, w); got != 20 {
				t.Errorf("MaxNorm = %v, want 20", got)
			}
		})
	}
}

func TestByName(t *testing.T) {
	for _, name := range ListBackends() {
		be, err := ByName(name, 2)
		if err != nil {
			t.Errorf("ByName(%q): %v", name, err)
			continue
		}
		if !be.Available() {
			t.Errorf("backend %q not available", name)
		}
	}
	if _, err := ByName("opencl", 0); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func BenchmarkWeightedRMS(b *testing.B) {
	be := NewCPUBackend()
	x := ramp(1 << 20)
	w := make([]float64, len(x))
	for i := range w {
		w[i] = 1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		be.WeightedRMS(x, w)
	}
}

func BenchmarkAxpy(b *testing.B) {
	be := NewCPUBackend()
	x := ramp(1 << 20)
	y := make([]float64, len(x))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		be.Axpy(y, 1e-6, x)
	}
}
