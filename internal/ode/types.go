package ode

import (
	"context"
	"math"

	"github.com/san-kum/bdfsim/internal/sparse"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// System is a first-order ODE system y' = F(t, y).
type System interface {
	Dim() int
	// Eval writes F(t, y) into dst.
	Eval(t float64, y, dst []float64)
	// Jacobian appends the entries of dF/dy at (t, y) to jac, which the
	// caller has reset.
	Jacobian(t float64, y []float64, jac *sparse.COO)
}

// Residual is the nonlinear system G(u) = 0 solved once per attempted step,
// together with its iteration matrix H = dG/du.
type Residual interface {
	Dim() int
	Residual(dst, u []float64)
	// Jacobian writes H(u) into dst after resetting it.
	Jacobian(u []float64, dst *sparse.COO)
	// Norm is the weighted norm convergence is measured in.
	Norm(v []float64) float64
	// Tolerance is the bound on Norm for a converged iterate.
	Tolerance() float64
}

// SolveStats reports one nonlinear solve.
type SolveStats struct {
	Iterations   int
	Converged    bool
	ResidualNorm float64
	// Rate is the estimated convergence rate of the last iterations.
	Rate float64
}

// NonlinearSolver solves r.Residual(u) = 0 starting from u, overwriting u.
// A returned error means the iteration could not proceed; callers treat it
// like a failure to converge.
type NonlinearSolver interface {
	Solve(r Residual, u []float64) (SolveStats, error)
}

// StepInfo describes one accepted internal step.
type StepInfo struct {
	Step         int
	Time         float64
	Dt           float64
	DtNext       float64
	Order        int
	OrderNext    int
	ErrorEst     float64
	ErrTestFails int
	ConvFails    int
}

type StepObserver interface {
	OnStep(info StepInfo)
}

// ObserverFunc adapts a function to StepObserver.
type ObserverFunc func(StepInfo)

func (f ObserverFunc) OnStep(info StepInfo) { f(info) }

// Workspace is caller-owned scratch for one integration: Fv receives
// F(t, y), Jv the Jacobian, D holds difference quotients for the
// first-step estimate.
type Workspace struct {
	Fv []float64
	Jv *sparse.COO
	D  []float64
}

func NewWorkspace(n int) *Workspace {
	return &Workspace{
		Fv: make([]float64, n),
		Jv: sparse.NewCOO(n, n, 3*n),
		D:  make([]float64, n),
	}
}

// Fits reports whether ws can serve a system of dimension n.
func (ws *Workspace) Fits(n int) bool {
	return ws != nil && len(ws.Fv) == n && len(ws.D) == n &&
		ws.Jv != nil && ws.Jv.Rows == n && ws.Jv.Cols == n
}

// Stepper advances a solution in time.
type Stepper interface {
	// Compute integrates to tmax and writes the solution there into y.
	Compute(ctx context.Context, sys System, ws *Workspace, y []float64, tmax float64) error
	// Step takes one internal step toward tmax.
	Step(ctx context.Context, sys System, ws *Workspace, tmax float64) error
	Time() float64
}

// OrderController exposes the current and scheduled method order and step size.
type OrderController interface {
	Order() int
	NextOrder() int
	StepSize() float64
	NextStepSize() float64
}
