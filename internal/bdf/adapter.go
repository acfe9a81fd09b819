package bdf

import (
	"github.com/san-kum/bdfsim/internal/compute"
	"github.com/san-kum/bdfsim/internal/ode"
	"github.com/san-kum/bdfsim/internal/sparse"
)

// Adapter presents one corrector equation to a nonlinear solver:
//
//	G(u) = (u - zn0) - gamma*(F(t, u) - zn1/dt)
//	H(u) = I - gamma*J(t, u)
//
// where zn0 and zn1 are the predicted history columns. The solver points
// it at a new step with refresh before each solve.
type Adapter struct {
	be      compute.Backend
	hist    *History
	weights []float64

	sys   ode.System
	ws    *ode.Workspace
	t     float64
	dt    float64
	gamma float64
	tol   float64

	rhsEvals int
	jacEvals int
}

func newAdapter(be compute.Backend, hist *History, weights []float64) *Adapter {
	return &Adapter{be: be, hist: hist, weights: weights}
}

func (a *Adapter) refresh(sys ode.System, ws *ode.Workspace, t, dt, gamma, tol float64) {
	a.sys = sys
	a.ws = ws
	a.t = t
	a.dt = dt
	a.gamma = gamma
	a.tol = tol
}

func (a *Adapter) Dim() int { return a.hist.N() }

func (a *Adapter) Residual(dst, u []float64) {
	a.sys.Eval(a.t, u, a.ws.Fv)
	a.rhsEvals++
	a.be.LinearSum(dst, 1, u, -1, a.hist.Col(0))
	a.be.Axpy(dst, -a.gamma, a.ws.Fv)
	a.be.Axpy(dst, a.gamma/a.dt, a.hist.Col(1))
}

func (a *Adapter) Jacobian(u []float64, dst *sparse.COO) {
	jac := a.ws.Jv
	jac.Reset()
	a.sys.Jacobian(a.t, u, jac)
	a.jacEvals++

	dst.Reset()
	for i := 0; i < a.hist.N(); i++ {
		dst.Append(i, i, 1)
	}
	for k, v := range jac.Values {
		dst.Append(jac.RowIdx[k], jac.ColIdx[k], -a.gamma*v)
	}
}

func (a *Adapter) Norm(v []float64) float64 {
	return a.be.WeightedRMS(v, a.weights)
}

func (a *Adapter) Tolerance() float64 { return a.tol }

// Gamma is the current implicit coupling dt/L[1].
func (a *Adapter) Gamma() float64 { return a.gamma }

// Time is the time level the residual is evaluated at.
func (a *Adapter) Time() float64 { return a.t }
