package problems

import (
	"github.com/san-kum/bdfsim/internal/sparse"
	"gonum.org/v1/gonum/mat"
)

// Linear is y' = A y with a constant matrix. Its exact solution is
// exp(tA) y0.
type Linear struct {
	a   *mat.Dense
	y0  []float64
	jac *sparse.COO

	exp mat.Dense
	tmp mat.Dense
}

func NewLinear(a *mat.Dense, y0 []float64) *Linear {
	n, _ := a.Dims()
	if len(y0) != n {
		panic("problems: initial state does not match matrix")
	}
	return &Linear{
		a:   mat.DenseCopyOf(a),
		y0:  append([]float64(nil), y0...),
		jac: sparse.FromDense(a),
	}
}

// NewStiffLinear is a lower-triangular 3x3 system with eigenvalues -1,
// -100 and -10000.
func NewStiffLinear() *Linear {
	a := mat.NewDense(3, 3, []float64{
		-1, 0, 0,
		99, -100, 0,
		0, 9900, -10000,
	})
	return NewLinear(a, []float64{1, 1, 1})
}

func (l *Linear) Name() string        { return "linear" }
func (l *Linear) Description() string { return "y' = A y, constant A" }
func (l *Linear) Dim() int            { return len(l.y0) }
func (l *Linear) TEnd() float64       { return 10 }

func (l *Linear) Initial() []float64 { return append([]float64(nil), l.y0...) }

func (l *Linear) Eval(_ float64, y, dst []float64) {
	l.jac.MulVec(dst, y)
}

func (l *Linear) Jacobian(_ float64, _ []float64, jac *sparse.COO) {
	for k, v := range l.jac.Values {
		jac.Append(l.jac.RowIdx[k], l.jac.ColIdx[k], v)
	}
}

func (l *Linear) Exact(t float64, dst []float64) {
	l.tmp.Scale(t, l.a)
	l.exp.Exp(&l.tmp)
	out := mat.NewVecDense(len(dst), dst)
	out.MulVec(&l.exp, mat.NewVecDense(len(l.y0), l.y0))
}
