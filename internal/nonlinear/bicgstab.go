package nonlinear

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/bdfsim/internal/ode"
	"github.com/san-kum/bdfsim/internal/sparse"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrBreakdown     = errors.New("nonlinear: BiCGStab breakdown")
	ErrNoConvergence = errors.New("nonlinear: linear iteration did not converge")
)

// breakdown is the smallest |rho| or |omega| the iteration continues with.
const breakdown = 1e-300

// BiCGStab solves with the Jacobi-preconditioned BiConjugate Gradient
// Stabilized method on the CSR form of the matrix. It suits large sparse
// iteration matrices, which are diagonally dominant for small gamma.
type BiCGStab struct {
	// Tol is the relative residual ||r|| / ||b|| to reach.
	Tol float64
	// MaxIter bounds the iterations per Solve; 0 means 2n.
	MaxIter int

	csr     *sparse.CSR
	invDiag []float64
	r, rt   []float64
	p, v    []float64
	s, t    []float64
	ph, sh  []float64

	iterations int
}

func NewBiCGStab(tol float64, maxIter int) *BiCGStab {
	if tol <= 0 {
		tol = 1e-10
	}
	return &BiCGStab{Tol: tol, MaxIter: maxIter}
}

func (b *BiCGStab) Name() string { return "bicgstab" }

// Iterations reports the iterations used by the last Solve.
func (b *BiCGStab) Iterations() int { return b.iterations }

func (b *BiCGStab) Factor(a *sparse.COO) error {
	if a.Rows != a.Cols {
		return fmt.Errorf("%w: %dx%d iteration matrix", ode.ErrDimensionMismatch, a.Rows, a.Cols)
	}
	b.csr = a.ToCSR(b.csr)
	n := a.Rows
	if len(b.invDiag) != n {
		b.invDiag = make([]float64, n)
		b.r, b.rt = make([]float64, n), make([]float64, n)
		b.p, b.v = make([]float64, n), make([]float64, n)
		b.s, b.t = make([]float64, n), make([]float64, n)
		b.ph, b.sh = make([]float64, n), make([]float64, n)
	}
	b.csr.Diagonal(b.invDiag)
	for i, d := range b.invDiag {
		if d == 0 {
			return fmt.Errorf("%w: zero diagonal in row %d", ode.ErrSingular, i)
		}
		b.invDiag[i] = 1 / d
	}
	return nil
}

func (b *BiCGStab) precondition(dst, src []float64) {
	floats.MulTo(dst, b.invDiag, src)
}

func (b *BiCGStab) Solve(x, rhs []float64) error {
	n := len(rhs)
	maxIter := b.MaxIter
	if maxIter <= 0 {
		maxIter = 2 * n
	}
	b.iterations = 0

	for i := range x {
		x[i] = 0
	}
	bnorm := floats.Norm(rhs, 2)
	if bnorm == 0 {
		return nil
	}
	tol := b.Tol * bnorm

	copy(b.r, rhs)
	copy(b.rt, b.r)
	for i := range b.p {
		b.p[i], b.v[i] = 0, 0
	}
	rhoPrev, alpha, omega := 1.0, 1.0, 1.0

	for b.iterations < maxIter {
		b.iterations++
		rho := floats.Dot(b.rt, b.r)
		if math.Abs(rho) < breakdown {
			return ErrBreakdown
		}
		if b.iterations == 1 {
			copy(b.p, b.r)
		} else {
			beta := (rho / rhoPrev) * (alpha / omega)
			floats.AddScaled(b.p, -omega, b.v)
			floats.Scale(beta, b.p)
			floats.Add(b.p, b.r)
		}

		b.precondition(b.ph, b.p)
		b.csr.MulVec(b.v, b.ph)
		alpha = rho / floats.Dot(b.rt, b.v)
		floats.AddScaledTo(b.s, b.r, -alpha, b.v)
		if floats.Norm(b.s, 2) <= tol {
			floats.AddScaled(x, alpha, b.ph)
			return nil
		}

		b.precondition(b.sh, b.s)
		b.csr.MulVec(b.t, b.sh)
		tt := floats.Dot(b.t, b.t)
		if tt == 0 {
			return ErrBreakdown
		}
		omega = floats.Dot(b.t, b.s) / tt
		floats.AddScaled(x, alpha, b.ph)
		floats.AddScaled(x, omega, b.sh)
		floats.AddScaledTo(b.r, b.s, -omega, b.t)
		if floats.Norm(b.r, 2) <= tol {
			return nil
		}
		if math.Abs(omega) < breakdown {
			return ErrBreakdown
		}
		rhoPrev = rho
	}
	return fmt.Errorf("%w after %d iterations", ErrNoConvergence, b.iterations)
}
