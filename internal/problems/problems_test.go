package problems

import (
	"math"
	"testing"

	"github.com/san-kum/bdfsim/internal/sparse"
	"gonum.org/v1/gonum/mat"
)

func allProblems() []Problem {
	return []Problem{
		NewDecay(4, 1e3),
		NewConstant(3),
		NewStiffLinear(),
		NewRobertson(),
		NewVanDerPol(10),
		NewHeat1D(8, 1),
		NewBrusselator1D(5),
	}
}

// perturbed returns a generic state near the initial one so that no
// Jacobian entry vanishes by accident.
func perturbed(p Problem) []float64 {
	y := p.Initial()
	for i := range y {
		y[i] += 0.1 * float64(i+1) / float64(len(y))
	}
	return y
}

func TestJacobianMatchesFiniteDifferences(t *testing.T) {
	for _, p := range allProblems() {
		t.Run(p.Name(), func(t *testing.T) {
			n := p.Dim()
			y := perturbed(p)
			jac := sparse.NewCOO(n, n, 4*n)
			p.Jacobian(0.5, y, jac)
			analytic := jac.Dense(nil)

			f := make([]float64, n)
			fp := make([]float64, n)
			fm := make([]float64, n)
			yp := make([]float64, n)
			p.Eval(0.5, y, f)
			for j := 0; j < n; j++ {
				h := 1e-6 * math.Max(1, math.Abs(y[j]))
				copy(yp, y)
				yp[j] += h
				p.Eval(0.5, yp, fp)
				copy(yp, y)
				yp[j] -= h
				p.Eval(0.5, yp, fm)
				for i := 0; i < n; i++ {
					fd := (fp[i] - fm[i]) / (2 * h)
					want := analytic.At(i, j)
					tol := 1e-5*math.Max(1, math.Abs(want)) + 1e-14*(math.Abs(f[i])+1)/h
					if math.Abs(fd-want) > tol {
						t.Errorf("J[%d][%d] = %v, finite difference %v", i, j, want, fd)
					}
				}
			}
		})
	}
}

func TestInitialIsCopy(t *testing.T) {
	for _, p := range allProblems() {
		y := p.Initial()
		if len(y) != p.Dim() {
			t.Errorf("%s: initial state has %d components, Dim %d", p.Name(), len(y), p.Dim())
		}
		y[0] = 12345
		if p.Initial()[0] == 12345 {
			t.Errorf("%s: Initial shares storage", p.Name())
		}
		if p.TEnd() <= 0 {
			t.Errorf("%s: non-positive end time", p.Name())
		}
	}
}

func TestRobertsonConservesMass(t *testing.T) {
	r := NewRobertson()
	dst := make([]float64, 3)
	r.Eval(0, []float64{0.7, 3e-5, 0.3}, dst)
	if sum := dst[0] + dst[1] + dst[2]; math.Abs(sum) > 1e-12 {
		t.Errorf("sum of derivatives = %v, want 0", sum)
	}
}

func TestHeatExactSolvesSemiDiscreteSystem(t *testing.T) {
	h := NewHeat1D(16, 0.5)
	u := make([]float64, 16)
	h.Exact(0, u)
	init := h.Initial()
	for i := range u {
		if math.Abs(u[i]-init[i]) > 1e-15 {
			t.Fatalf("Exact(0) differs from Initial at %d", i)
		}
	}

	h.Exact(0.3, u)
	f := make([]float64, 16)
	h.Eval(0.3, u, f)
	s := math.Sin(math.Pi / 34)
	lambda := 4 * h.coef * s * s
	for i := range u {
		if math.Abs(f[i]+lambda*u[i]) > 1e-10 {
			t.Errorf("F(u)[%d] = %v, want %v", i, f[i], -lambda*u[i])
		}
	}
}

func TestLinearExactMatchesDecay(t *testing.T) {
	a := mat.NewDense(2, 2, []float64{-1, 0, 0, -50})
	l := NewLinear(a, []float64{1, 1})
	d := &Decay{rates: []float64{1, 50}}

	got := make([]float64, 2)
	want := make([]float64, 2)
	for _, tt := range []float64{0, 0.01, 0.5, 2} {
		l.Exact(tt, got)
		d.Exact(tt, want)
		for i := range got {
			if math.Abs(got[i]-want[i]) > 1e-12 {
				t.Errorf("t=%v: exp(tA)y0[%d] = %v, want %v", tt, i, got[i], want[i])
			}
		}
	}
}

func TestConfigurable(t *testing.T) {
	tests := []struct {
		p     Configurable
		param string
		value float64
	}{
		{NewVanDerPol(1), "mu", 1000},
		{NewRobertson(), "k2", 1e6},
		{NewHeat1D(4, 1), "alpha", 0.1},
		{NewBrusselator1D(4), "b", 2.5},
	}
	for _, tt := range tests {
		if !tt.p.SetParam(tt.param, tt.value) {
			t.Errorf("SetParam(%q) rejected", tt.param)
			continue
		}
		if got := tt.p.Params()[tt.param]; got != tt.value {
			t.Errorf("%s = %v after SetParam, want %v", tt.param, got, tt.value)
		}
		if tt.p.SetParam("nope", 1) {
			t.Error("unknown parameter accepted")
		}
	}
}
