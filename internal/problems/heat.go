package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/bdfsim/internal/sparse"
)

// Heat1D is the method-of-lines heat equation u_t = alpha u_xx on (0, 1)
// with zero boundary values, discretized on n interior points.
type Heat1D struct {
	n     int
	alpha float64
	dx    float64
	coef  float64
}

func NewHeat1D(n int, alpha float64) *Heat1D {
	if n < 1 {
		n = 1
	}
	dx := 1 / float64(n+1)
	return &Heat1D{n: n, alpha: alpha, dx: dx, coef: alpha / (dx * dx)}
}

func (h *Heat1D) Name() string { return "heat" }
func (h *Heat1D) Description() string {
	return fmt.Sprintf("1-D heat equation, %d points, alpha=%g", h.n, h.alpha)
}
func (h *Heat1D) Dim() int      { return h.n }
func (h *Heat1D) TEnd() float64 { return 0.5 / h.alpha }

// Initial is the lowest Fourier mode sin(pi x).
func (h *Heat1D) Initial() []float64 {
	y := make([]float64, h.n)
	for i := range y {
		y[i] = math.Sin(math.Pi * float64(i+1) * h.dx)
	}
	return y
}

func (h *Heat1D) Eval(_ float64, y, dst []float64) {
	for i := 0; i < h.n; i++ {
		left, right := 0.0, 0.0
		if i > 0 {
			left = y[i-1]
		}
		if i < h.n-1 {
			right = y[i+1]
		}
		dst[i] = h.coef * (left - 2*y[i] + right)
	}
}

func (h *Heat1D) Jacobian(_ float64, _ []float64, jac *sparse.COO) {
	for i := 0; i < h.n; i++ {
		jac.Append(i, i, -2*h.coef)
		if i > 0 {
			jac.Append(i, i-1, h.coef)
		}
		if i < h.n-1 {
			jac.Append(i, i+1, h.coef)
		}
	}
}

// Exact is the solution of the semi-discrete system: the sine mode is an
// eigenvector of the difference operator.
func (h *Heat1D) Exact(t float64, dst []float64) {
	s := math.Sin(math.Pi * h.dx / 2)
	lambda := 4 * h.coef * s * s
	decay := math.Exp(-lambda * t)
	for i := range dst {
		dst[i] = math.Sin(math.Pi*float64(i+1)*h.dx) * decay
	}
}

func (h *Heat1D) Params() map[string]float64 {
	return map[string]float64{"alpha": h.alpha}
}

func (h *Heat1D) SetParam(name string, value float64) bool {
	if name != "alpha" {
		return false
	}
	h.alpha = value
	h.coef = value / (h.dx * h.dx)
	return true
}
