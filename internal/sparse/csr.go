package sparse

import "sort"

// CSR is a compressed sparse row matrix with merged duplicates and
// column indices sorted within each row.
type CSR struct {
	Rows     int
	Cols     int
	RowPtr   []int
	ColIndex []int
	Values   []float64

	order entryOrder
}

// entryOrder sorts COO entry indices by (row, column).
type entryOrder struct {
	m   *COO
	idx []int
}

func (o *entryOrder) Len() int      { return len(o.idx) }
func (o *entryOrder) Swap(a, b int) { o.idx[a], o.idx[b] = o.idx[b], o.idx[a] }
func (o *entryOrder) Less(a, b int) bool {
	ka, kb := o.idx[a], o.idx[b]
	if o.m.RowIdx[ka] != o.m.RowIdx[kb] {
		return o.m.RowIdx[ka] < o.m.RowIdx[kb]
	}
	return o.m.ColIdx[ka] < o.m.ColIdx[kb]
}

// ToCSR converts m, summing duplicate entries. dst is reused when non-nil,
// and repeated conversions of a same-sized pattern allocate nothing.
func (m *COO) ToCSR(dst *CSR) *CSR {
	if dst == nil {
		dst = &CSR{}
	}
	dst.Rows, dst.Cols = m.Rows, m.Cols

	nnz := len(m.Values)
	if cap(dst.order.idx) < nnz {
		dst.order.idx = make([]int, nnz)
	}
	order := &dst.order
	order.m, order.idx = m, order.idx[:nnz]
	for k := range order.idx {
		order.idx[k] = k
	}
	sort.Sort(order)

	if cap(dst.RowPtr) < m.Rows+1 {
		dst.RowPtr = make([]int, m.Rows+1)
	}
	dst.RowPtr = dst.RowPtr[:m.Rows+1]
	for i := range dst.RowPtr {
		dst.RowPtr[i] = 0
	}
	dst.ColIndex = dst.ColIndex[:0]
	dst.Values = dst.Values[:0]

	lastRow, lastCol := -1, -1
	for _, k := range order.idx {
		i, j := m.RowIdx[k], m.ColIdx[k]
		if i == lastRow && j == lastCol {
			dst.Values[len(dst.Values)-1] += m.Values[k]
			continue
		}
		dst.ColIndex = append(dst.ColIndex, j)
		dst.Values = append(dst.Values, m.Values[k])
		dst.RowPtr[i+1]++
		lastRow, lastCol = i, j
	}
	for i := 0; i < m.Rows; i++ {
		dst.RowPtr[i+1] += dst.RowPtr[i]
	}
	order.m = nil
	return dst
}

// MulVec computes dst = A*x.
func (a *CSR) MulVec(dst, x []float64) {
	for i := 0; i < a.Rows; i++ {
		sum := 0.0
		for k := a.RowPtr[i]; k < a.RowPtr[i+1]; k++ {
			sum += a.Values[k] * x[a.ColIndex[k]]
		}
		dst[i] = sum
	}
}

// Diagonal writes the main diagonal into dst (zero where absent).
func (a *CSR) Diagonal(dst []float64) {
	for i := 0; i < a.Rows; i++ {
		dst[i] = 0
		for k := a.RowPtr[i]; k < a.RowPtr[i+1]; k++ {
			if a.ColIndex[k] == i {
				dst[i] = a.Values[k]
				break
			}
		}
	}
}
