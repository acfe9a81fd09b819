package problems

import (
	"fmt"
	"math"

	"github.com/san-kum/bdfsim/internal/sparse"
)

// Decay is the uncoupled system y_i' = -k_i y_i, y_i(0) = 1.
type Decay struct {
	rates []float64
}

// NewDecay returns n components with rates spread geometrically over
// [1, stiffness].
func NewDecay(n int, stiffness float64) *Decay {
	if n < 1 {
		n = 1
	}
	rates := make([]float64, n)
	for i := range rates {
		if n == 1 {
			rates[i] = 1
			continue
		}
		rates[i] = math.Pow(stiffness, float64(i)/float64(n-1))
	}
	return &Decay{rates: rates}
}

func (d *Decay) Name() string { return "decay" }
func (d *Decay) Description() string {
	return fmt.Sprintf("y' = -k y, %d components, k in [%g, %g]", len(d.rates), d.rates[0], d.rates[len(d.rates)-1])
}
func (d *Decay) Dim() int      { return len(d.rates) }
func (d *Decay) TEnd() float64 { return 1 }

func (d *Decay) Initial() []float64 {
	y := make([]float64, len(d.rates))
	for i := range y {
		y[i] = 1
	}
	return y
}

func (d *Decay) Eval(_ float64, y, dst []float64) {
	for i, k := range d.rates {
		dst[i] = -k * y[i]
	}
}

func (d *Decay) Jacobian(_ float64, _ []float64, jac *sparse.COO) {
	for i, k := range d.rates {
		jac.Append(i, i, -k)
	}
}

func (d *Decay) Exact(t float64, dst []float64) {
	for i, k := range d.rates {
		dst[i] = math.Exp(-k * t)
	}
}

// Constant has a constant derivative, so every step is exact.
type Constant struct {
	rate []float64
	y0   []float64
}

func NewConstant(n int) *Constant {
	if n < 1 {
		n = 1
	}
	c := &Constant{rate: make([]float64, n), y0: make([]float64, n)}
	for i := range c.rate {
		c.rate[i] = float64(i+1) * 0.5
		c.y0[i] = float64(i)
	}
	return c
}

func (c *Constant) Name() string        { return "constant" }
func (c *Constant) Description() string { return "y' = c" }
func (c *Constant) Dim() int            { return len(c.rate) }
func (c *Constant) TEnd() float64       { return 10 }

func (c *Constant) Initial() []float64 { return append([]float64(nil), c.y0...) }

func (c *Constant) Eval(_ float64, _ []float64, dst []float64) {
	copy(dst, c.rate)
}

func (c *Constant) Jacobian(float64, []float64, *sparse.COO) {}

func (c *Constant) Exact(t float64, dst []float64) {
	for i := range dst {
		dst[i] = c.y0[i] + c.rate[i]*t
	}
}
