package nonlinear

import (
	"fmt"
	"math"

	"github.com/san-kum/bdfsim/internal/ode"
	"github.com/san-kum/bdfsim/internal/sparse"
)

const (
	// DefaultMaxIter is the Newton iteration limit per solve.
	DefaultMaxIter = 3

	// rateDecay damps the previous convergence-rate estimate.
	rateDecay = 0.3
	// divergence is the growth of successive updates treated as divergence.
	divergence = 2.0
)

// Newton is a modified Newton iteration: the iteration matrix is
// evaluated and factored once per Solve at the initial guess.
type Newton struct {
	MaxIter int
	Linear  LinearSolver

	jac *sparse.COO
	res []float64
	del []float64
}

func NewNewton(linear LinearSolver) *Newton {
	return &Newton{MaxIter: DefaultMaxIter, Linear: linear}
}

func (nw *Newton) ensure(n int) {
	if len(nw.res) == n {
		return
	}
	nw.jac = sparse.NewCOO(n, n, 4*n)
	nw.res = make([]float64, n)
	nw.del = make([]float64, n)
}

// Solve drives r.Residual(u) to zero. At least one correction is always
// applied. Convergence is declared when the residual norm or the
// rate-scaled update norm falls below r.Tolerance().
func (nw *Newton) Solve(r ode.Residual, u []float64) (ode.SolveStats, error) {
	n := r.Dim()
	if len(u) != n {
		return ode.SolveStats{}, fmt.Errorf("%w: guess has %d components, residual %d", ode.ErrDimensionMismatch, len(u), n)
	}
	nw.ensure(n)
	maxIter := nw.MaxIter
	if maxIter < 1 {
		maxIter = DefaultMaxIter
	}
	tol := r.Tolerance()

	r.Residual(nw.res, u)
	r.Jacobian(u, nw.jac)
	if err := nw.Linear.Factor(nw.jac); err != nil {
		return ode.SolveStats{}, err
	}

	var st ode.SolveStats
	rate, delPrev := 1.0, 0.0
	for m := 1; m <= maxIter; m++ {
		st.Iterations = m
		if err := nw.Linear.Solve(nw.del, nw.res); err != nil {
			return st, err
		}
		for i := range u {
			u[i] -= nw.del[i]
		}
		del := r.Norm(nw.del)

		r.Residual(nw.res, u)
		st.ResidualNorm = r.Norm(nw.res)
		if math.IsNaN(st.ResidualNorm) || math.IsInf(st.ResidualNorm, 0) {
			return st, fmt.Errorf("%w: residual norm %g", ode.ErrInvalidState, st.ResidualNorm)
		}

		if m > 1 {
			rate = math.Max(rateDecay*rate, del/delPrev)
		}
		st.Rate = rate
		if st.ResidualNorm <= tol || del*math.Min(1, rate) <= tol {
			st.Converged = true
			return st, nil
		}
		if m > 1 && del > divergence*delPrev {
			return st, nil
		}
		delPrev = del
	}
	return st, nil
}
