package nonlinear

import (
	"fmt"

	"github.com/san-kum/bdfsim/internal/ode"
	"github.com/san-kum/bdfsim/internal/sparse"
	"gonum.org/v1/gonum/mat"
)

// LinearSolver factors an iteration matrix once and solves against it
// any number of times.
type LinearSolver interface {
	Name() string
	Factor(a *sparse.COO) error
	// Solve computes dst = A^-1 b for the last factored A.
	Solve(dst, b []float64) error
}

// maxCondition is the largest condition number accepted by DenseLU.
const maxCondition = 1e16

// DenseLU factors the matrix densely with gonum's LU decomposition.
type DenseLU struct {
	dense *mat.Dense
	lu    mat.LU
	n     int
}

func NewDenseLU() *DenseLU { return &DenseLU{} }

func (d *DenseLU) Name() string { return "lu" }

func (d *DenseLU) Factor(a *sparse.COO) error {
	if a.Rows != a.Cols {
		return fmt.Errorf("%w: %dx%d iteration matrix", ode.ErrDimensionMismatch, a.Rows, a.Cols)
	}
	if d.dense == nil || d.n != a.Rows {
		d.dense = mat.NewDense(a.Rows, a.Cols, nil)
		d.n = a.Rows
	}
	a.Dense(d.dense)
	d.lu.Factorize(d.dense)
	if cond := d.lu.Cond(); cond > maxCondition {
		return fmt.Errorf("%w: condition number %g", ode.ErrSingular, cond)
	}
	return nil
}

func (d *DenseLU) Solve(dst, b []float64) error {
	x := mat.NewVecDense(d.n, dst)
	if err := d.lu.SolveVecTo(x, false, mat.NewVecDense(d.n, b)); err != nil {
		return fmt.Errorf("%w: %v", ode.ErrSingular, err)
	}
	return nil
}
