// Package sparse carries Jacobians between the problem, the BDF adapter
// and the linear solvers.
package sparse

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// COO is a coordinate-format matrix. Duplicate entries are summed.
type COO struct {
	Rows   int
	Cols   int
	RowIdx []int
	ColIdx []int
	Values []float64
}

func NewCOO(rows, cols, capacity int) *COO {
	return &COO{
		Rows:   rows,
		Cols:   cols,
		RowIdx: make([]int, 0, capacity),
		ColIdx: make([]int, 0, capacity),
		Values: make([]float64, 0, capacity),
	}
}

// Reset drops all entries but keeps the backing storage.
func (m *COO) Reset() {
	m.RowIdx = m.RowIdx[:0]
	m.ColIdx = m.ColIdx[:0]
	m.Values = m.Values[:0]
}

func (m *COO) NNZ() int { return len(m.Values) }

func (m *COO) Append(i, j int, v float64) {
	if i < 0 || i >= m.Rows || j < 0 || j >= m.Cols {
		panic(fmt.Sprintf("sparse: entry (%d,%d) outside %dx%d", i, j, m.Rows, m.Cols))
	}
	m.RowIdx = append(m.RowIdx, i)
	m.ColIdx = append(m.ColIdx, j)
	m.Values = append(m.Values, v)
}

// At sums all stored entries at (i, j).
func (m *COO) At(i, j int) float64 {
	sum := 0.0
	for k := range m.Values {
		if m.RowIdx[k] == i && m.ColIdx[k] == j {
			sum += m.Values[k]
		}
	}
	return sum
}

// MulVec computes dst = M*x.
func (m *COO) MulVec(dst, x []float64) {
	for i := range dst[:m.Rows] {
		dst[i] = 0
	}
	for k, v := range m.Values {
		dst[m.RowIdx[k]] += v * x[m.ColIdx[k]]
	}
}

// Dense writes the matrix into dst, which must be Rows x Cols. Passing nil
// allocates a new matrix.
func (m *COO) Dense(dst *mat.Dense) *mat.Dense {
	if dst == nil {
		dst = mat.NewDense(m.Rows, m.Cols, nil)
	} else {
		r, c := dst.Dims()
		if r != m.Rows || c != m.Cols {
			panic(fmt.Sprintf("sparse: dense target %dx%d, matrix %dx%d", r, c, m.Rows, m.Cols))
		}
		dst.Zero()
	}
	for k, v := range m.Values {
		i, j := m.RowIdx[k], m.ColIdx[k]
		dst.Set(i, j, dst.At(i, j)+v)
	}
	return dst
}

// FromDense builds a COO from the non-zero entries of a.
func FromDense(a mat.Matrix) *COO {
	r, c := a.Dims()
	m := NewCOO(r, c, r)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			if v := a.At(i, j); v != 0 {
				m.Append(i, j, v)
			}
		}
	}
	return m
}
