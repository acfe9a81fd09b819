package nonlinear

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/bdfsim/internal/ode"
	"github.com/san-kum/bdfsim/internal/sparse"
)

// linearResidual is G(u) = A u - b.
type linearResidual struct {
	a   *sparse.COO
	b   []float64
	tol float64
}

func (l *linearResidual) Dim() int { return len(l.b) }

func (l *linearResidual) Residual(dst, u []float64) {
	l.a.MulVec(dst, u)
	for i := range dst {
		dst[i] -= l.b[i]
	}
}

func (l *linearResidual) Jacobian(_ []float64, dst *sparse.COO) {
	dst.Reset()
	for k, v := range l.a.Values {
		dst.Append(l.a.RowIdx[k], l.a.ColIdx[k], v)
	}
}

func (l *linearResidual) Norm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum / float64(len(v)))
}

func (l *linearResidual) Tolerance() float64 { return l.tol }

// sqrtResidual is G(u) = u^2 - c, componentwise.
type sqrtResidual struct {
	c   []float64
	tol float64
}

func (s *sqrtResidual) Dim() int { return len(s.c) }

func (s *sqrtResidual) Residual(dst, u []float64) {
	for i := range dst {
		dst[i] = u[i]*u[i] - s.c[i]
	}
}

func (s *sqrtResidual) Jacobian(u []float64, dst *sparse.COO) {
	dst.Reset()
	for i := range u {
		dst.Append(i, i, 2*u[i])
	}
}

func (s *sqrtResidual) Norm(v []float64) float64 {
	m := 0.0
	for _, x := range v {
		m = math.Max(m, math.Abs(x))
	}
	return m
}

func (s *sqrtResidual) Tolerance() float64 { return s.tol }

func laplacian(n int, shift float64) *sparse.COO {
	m := sparse.NewCOO(n, n, 3*n)
	for i := 0; i < n; i++ {
		m.Append(i, i, 2+shift)
		if i > 0 {
			m.Append(i, i-1, -1)
		}
		if i < n-1 {
			m.Append(i, i+1, -1)
		}
	}
	return m
}

func TestNewtonLinearOneIteration(t *testing.T) {
	solvers := []LinearSolver{NewDenseLU(), NewBiCGStab(1e-12, 0)}
	for _, ls := range solvers {
		t.Run(ls.Name(), func(t *testing.T) {
			n := 20
			r := &linearResidual{a: laplacian(n, 1), b: make([]float64, n), tol: 1e-8}
			for i := range r.b {
				r.b[i] = float64(i%5) - 2
			}
			u := make([]float64, n)

			st, err := NewNewton(ls).Solve(r, u)
			if err != nil {
				t.Fatalf("solve failed: %v", err)
			}
			if !st.Converged {
				t.Fatalf("not converged: %+v", st)
			}
			if st.Iterations != 1 {
				t.Errorf("linear problem took %d iterations, want 1", st.Iterations)
			}

			check := make([]float64, n)
			r.Residual(check, u)
			if r.Norm(check) > 1e-10 {
				t.Errorf("residual norm %v after solve", r.Norm(check))
			}
		})
	}
}

func TestNewtonNonlinear(t *testing.T) {
	r := &sqrtResidual{c: []float64{2, 9, 0.25}, tol: 1e-10}
	u := []float64{1.5, 2.8, 0.52}
	nw := NewNewton(NewDenseLU())
	nw.MaxIter = 20

	st, err := nw.Solve(r, u)
	if err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	if !st.Converged {
		t.Fatalf("not converged after %d iterations", st.Iterations)
	}
	// The matrix is frozen at the guess, so convergence is linear.
	if st.Iterations < 2 {
		t.Errorf("expected several iterations, got %d", st.Iterations)
	}
	want := []float64{math.Sqrt2, 3, 0.5}
	for i := range want {
		if math.Abs(u[i]-want[i]) > 1e-8 {
			t.Errorf("u[%d] = %v, want %v", i, u[i], want[i])
		}
	}
}

func TestNewtonIterationLimit(t *testing.T) {
	r := &sqrtResidual{c: []float64{1e6}, tol: 1e-14}
	u := []float64{1}
	nw := NewNewton(NewDenseLU())
	nw.MaxIter = 2

	st, err := nw.Solve(r, u)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Converged {
		t.Error("expected failure to converge")
	}
	if st.Iterations > 2 {
		t.Errorf("iterations %d exceed limit", st.Iterations)
	}
}

func TestDenseLUSingular(t *testing.T) {
	a := sparse.NewCOO(2, 2, 4)
	a.Append(0, 0, 1)
	a.Append(0, 1, 2)
	a.Append(1, 0, 2)
	a.Append(1, 1, 4)

	err := NewDenseLU().Factor(a)
	if !errors.Is(err, ode.ErrSingular) {
		t.Errorf("expected ErrSingular, got %v", err)
	}
}

func TestNewtonDimensionMismatch(t *testing.T) {
	r := &sqrtResidual{c: []float64{1, 2}, tol: 1e-8}
	_, err := NewNewton(NewDenseLU()).Solve(r, []float64{1})
	if !errors.Is(err, ode.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestBiCGStabNonsymmetric(t *testing.T) {
	n := 50
	a := laplacian(n, 0.5)
	for i := 0; i < n-1; i++ {
		a.Append(i, i+1, 0.3)
	}
	want := make([]float64, n)
	for i := range want {
		want[i] = math.Cos(float64(i))
	}
	b := make([]float64, n)
	a.MulVec(b, want)

	ls := NewBiCGStab(1e-12, 0)
	if err := ls.Factor(a); err != nil {
		t.Fatal(err)
	}
	x := make([]float64, n)
	if err := ls.Solve(x, b); err != nil {
		t.Fatalf("solve failed: %v", err)
	}
	for i := range want {
		if math.Abs(x[i]-want[i]) > 1e-8 {
			t.Fatalf("x[%d] = %v, want %v (after %d iterations)", i, x[i], want[i], ls.Iterations())
		}
	}
	if ls.Iterations() >= n {
		t.Errorf("took %d iterations on a well-conditioned system", ls.Iterations())
	}
}

func TestBiCGStabZeroDiagonal(t *testing.T) {
	a := sparse.NewCOO(2, 2, 2)
	a.Append(0, 1, 1)
	a.Append(1, 0, 1)
	if err := NewBiCGStab(0, 0).Factor(a); !errors.Is(err, ode.ErrSingular) {
		t.Errorf("expected ErrSingular, got %v", err)
	}
}

func BenchmarkNewtonDenseLU(b *testing.B) {
	n := 200
	r := &linearResidual{a: laplacian(n, 1), b: make([]float64, n), tol: 1e-8}
	for i := range r.b {
		r.b[i] = 1
	}
	nw := NewNewton(NewDenseLU())
	u := make([]float64, n)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		for j := range u {
			u[j] = 0
		}
		if _, err := nw.Solve(r, u); err != nil {
			b.Fatal(err)
		}
	}
}
