package problems

import "github.com/san-kum/bdfsim/internal/sparse"

// Robertson is the classic stiff chemical kinetics problem:
//
//	y1' = -k1 y1 + k3 y2 y3
//	y2' =  k1 y1 - k3 y2 y3 - k2 y2²
//	y3' =  k2 y2²
//
// The total y1+y2+y3 is conserved.
type Robertson struct {
	k1, k2, k3 float64
}

func NewRobertson() *Robertson {
	return &Robertson{k1: 0.04, k2: 3e7, k3: 1e4}
}

func (r *Robertson) Name() string        { return "robertson" }
func (r *Robertson) Description() string { return "Robertson chemical kinetics (3 species, stiff)" }
func (r *Robertson) Dim() int            { return 3 }
func (r *Robertson) TEnd() float64       { return 40 }
func (r *Robertson) Initial() []float64  { return []float64{1, 0, 0} }

func (r *Robertson) Eval(_ float64, y, dst []float64) {
	a := r.k1 * y[0]
	b := r.k3 * y[1] * y[2]
	c := r.k2 * y[1] * y[1]
	dst[0] = -a + b
	dst[1] = a - b - c
	dst[2] = c
}

func (r *Robertson) Jacobian(_ float64, y []float64, jac *sparse.COO) {
	jac.Append(0, 0, -r.k1)
	jac.Append(0, 1, r.k3*y[2])
	jac.Append(0, 2, r.k3*y[1])
	jac.Append(1, 0, r.k1)
	jac.Append(1, 1, -r.k3*y[2]-2*r.k2*y[1])
	jac.Append(1, 2, -r.k3*y[1])
	jac.Append(2, 1, 2*r.k2*y[1])
}

func (r *Robertson) Params() map[string]float64 {
	return map[string]float64{"k1": r.k1, "k2": r.k2, "k3": r.k3}
}

func (r *Robertson) SetParam(name string, value float64) bool {
	switch name {
	case "k1":
		r.k1 = value
	case "k2":
		r.k2 = value
	case "k3":
		r.k3 = value
	default:
		return false
	}
	return true
}
