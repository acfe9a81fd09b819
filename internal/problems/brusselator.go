package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/bdfsim/internal/sparse"
)

// Brusselator1D is the reaction-diffusion Brusselator on n interior grid
// points of (0, 1):
//
//	u' = A + u²v - (B+1)u + alpha u_xx
//	v' = B u - u²v + alpha v_xx
//
// with u = 1, v = 3 on the boundary. The state interleaves [u0, v0, u1, v1, ...].
type Brusselator1D struct {
	n     int
	a, b  float64
	alpha float64
	c     float64
}

// NewBrusselator1D uses A = 1, B = 3, alpha = 1/50.
func NewBrusselator1D(n int) *Brusselator1D {
	if n < 1 {
		n = 1
	}
	br := &Brusselator1D{n: n, a: 1, b: 3, alpha: 0.02}
	br.update()
	return br
}

func (br *Brusselator1D) update() {
	n1 := float64(br.n + 1)
	br.c = br.alpha * n1 * n1
}

func (br *Brusselator1D) Name() string { return "brusselator" }
func (br *Brusselator1D) Description() string {
	return fmt.Sprintf("1-D Brusselator, %d points, A=%g B=%g alpha=%g", br.n, br.a, br.b, br.alpha)
}
func (br *Brusselator1D) Dim() int      { return 2 * br.n }
func (br *Brusselator1D) TEnd() float64 { return 10 }

func (br *Brusselator1D) Initial() []float64 {
	y := make([]float64, 2*br.n)
	for i := 0; i < br.n; i++ {
		x := float64(i+1) / float64(br.n+1)
		y[2*i] = 1 + math.Sin(2*math.Pi*x)
		y[2*i+1] = 3
	}
	return y
}

// neighbors returns the left and right values of component off (0 for u,
// 1 for v) at point i, with the boundary values outside the grid.
func (br *Brusselator1D) neighbors(y []float64, i, off int, boundary float64) (left, right float64) {
	left, right = boundary, boundary
	if i > 0 {
		left = y[2*(i-1)+off]
	}
	if i < br.n-1 {
		right = y[2*(i+1)+off]
	}
	return left, right
}

func (br *Brusselator1D) Eval(_ float64, y, dst []float64) {
	for i := 0; i < br.n; i++ {
		u, v := y[2*i], y[2*i+1]
		ul, ur := br.neighbors(y, i, 0, 1)
		vl, vr := br.neighbors(y, i, 1, 3)
		uuv := u * u * v
		dst[2*i] = br.a + uuv - (br.b+1)*u + br.c*(ul-2*u+ur)
		dst[2*i+1] = br.b*u - uuv + br.c*(vl-2*v+vr)
	}
}

func (br *Brusselator1D) Jacobian(_ float64, y []float64, jac *sparse.COO) {
	for i := 0; i < br.n; i++ {
		u, v := y[2*i], y[2*i+1]
		iu, iv := 2*i, 2*i+1
		jac.Append(iu, iu, 2*u*v-(br.b+1)-2*br.c)
		jac.Append(iu, iv, u*u)
		jac.Append(iv, iu, br.b-2*u*v)
		jac.Append(iv, iv, -u*u-2*br.c)
		if i > 0 {
			jac.Append(iu, iu-2, br.c)
			jac.Append(iv, iv-2, br.c)
		}
		if i < br.n-1 {
			jac.Append(iu, iu+2, br.c)
			jac.Append(iv, iv+2, br.c)
		}
	}
}

func (br *Brusselator1D) Params() map[string]float64 {
	return map[string]float64{"a": br.a, "b": br.b, "alpha": br.alpha}
}

func (br *Brusselator1D) SetParam(name string, value float64) bool {
	switch name {
	case "a":
		br.a = value
	case "b":
		br.b = value
	case "alpha":
		br.alpha = value
	default:
		return false
	}
	br.update()
	return true
}
