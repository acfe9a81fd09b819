package problems

import (
	"fmt"

	"github.com/san-kum/bdfsim/internal/sparse"
)

// VanDerPol implements the Van der Pol oscillator.
// State: [x, y] where y = dx/dt
// Equations:
//
//	dx/dt = y
//	dy/dt = μ(1 - x²)y - x
//
// Large μ gives relaxation oscillations with stiff slow phases.
type VanDerPol struct {
	mu float64
}

func NewVanDerPol(mu float64) *VanDerPol {
	return &VanDerPol{mu: mu}
}

func (v *VanDerPol) Name() string { return "vanderpol" }
func (v *VanDerPol) Description() string {
	return fmt.Sprintf("Van der Pol oscillator, mu=%g", v.mu)
}
func (v *VanDerPol) Dim() int           { return 2 }
func (v *VanDerPol) Initial() []float64 { return []float64{2, 0} }

// TEnd covers about one relaxation period.
func (v *VanDerPol) TEnd() float64 {
	if v.mu > 1 {
		return 1.6 * v.mu
	}
	return 10
}

func (v *VanDerPol) Eval(_ float64, s, dst []float64) {
	x, y := s[0], s[1]
	dst[0] = y
	dst[1] = v.mu*(1-x*x)*y - x
}

func (v *VanDerPol) Jacobian(_ float64, s []float64, jac *sparse.COO) {
	x, y := s[0], s[1]
	jac.Append(0, 1, 1)
	jac.Append(1, 0, -2*v.mu*x*y-1)
	jac.Append(1, 1, v.mu*(1-x*x))
}

func (v *VanDerPol) Params() map[string]float64 {
	return map[string]float64{"mu": v.mu}
}

func (v *VanDerPol) SetParam(name string, value float64) bool {
	if name != "mu" {
		return false
	}
	v.mu = value
	return true
}
