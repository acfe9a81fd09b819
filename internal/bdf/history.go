package bdf

import "github.com/san-kum/bdfsim/internal/compute"

// History is the Nordsieck array: column j approximates dt^j/j! * y^(j)
// at the current time. Only columns 0..q are meaningful at order q; a
// higher column is written before it is read after an order increase.
type History struct {
	be    compute.Backend
	n     int
	cols  int
	data  []float64
	saved []float64
}

// NewHistory allocates qmax+1 columns of length n in a single buffer,
// plus the saved-correction vector used for the order q+1 estimate.
func NewHistory(be compute.Backend, n, qmax int) *History {
	return &History{
		be:    be,
		n:     n,
		cols:  qmax + 1,
		data:  make([]float64, n*(qmax+1)),
		saved: make([]float64, n),
	}
}

func (h *History) N() int    { return h.n }
func (h *History) Cols() int { return h.cols }

// Col returns column j as a view into the history buffer.
func (h *History) Col(j int) []float64 {
	return h.data[j*h.n : (j+1)*h.n : (j+1)*h.n]
}

// Saved returns the correction stored for the order-increase estimate.
func (h *History) Saved() []float64 { return h.saved }

func (h *History) SaveCorrection(acor []float64) {
	h.be.Copy(h.saved, acor)
}

// Predict applies the Pascal triangle: afterwards column 0 is the
// predicted state and column 1 is dt times the predicted derivative.
func (h *History) Predict(q int) {
	for k := 1; k <= q; k++ {
		for j := q; j >= k; j-- {
			h.be.Axpy(h.Col(j-1), 1, h.Col(j))
		}
	}
}

// Restore undoes Predict.
func (h *History) Restore(q int) {
	for k := 1; k <= q; k++ {
		for j := q; j >= k; j-- {
			h.be.Axpy(h.Col(j-1), -1, h.Col(j))
		}
	}
}

// Rescale multiplies column j by eta^j for a new step size eta*dt.
func (h *History) Rescale(q int, eta float64) {
	factor := eta
	for j := 1; j <= q; j++ {
		h.be.Scale(h.Col(j), factor, h.Col(j))
		factor *= eta
	}
}

// Correct adds l[j]*acor to every active column.
func (h *History) Correct(q int, l, acor []float64) {
	for j := 0; j <= q; j++ {
		h.be.Axpy(h.Col(j), l[j], acor)
	}
}

// Increase seeds column q+1 as a1 times the saved correction and folds it
// into columns 2..q.
func (h *History) Increase(q int, a1 float64, l []float64) {
	top := h.Col(q + 1)
	h.be.Scale(top, a1, h.saved)
	for j := 2; j <= q; j++ {
		h.be.Axpy(h.Col(j), l[j], top)
	}
}

// Decrease removes the contribution of column q from columns 2..q-1.
func (h *History) Decrease(q int, l []float64) {
	top := h.Col(q)
	for j := 2; j < q; j++ {
		h.be.Axpy(h.Col(j), -l[j], top)
	}
}

// Interpolate evaluates the history polynomial at s = (t - tn)/dt into dst.
func (h *History) Interpolate(q int, s float64, dst []float64) {
	h.be.Copy(dst, h.Col(q))
	for j := q - 1; j >= 0; j-- {
		h.be.LinearSum(dst, 1, h.Col(j), s, dst)
	}
}
