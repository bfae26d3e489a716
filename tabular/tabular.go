// Package tabular holds labeled numeric tables. Missing values are NaN.
package tabular

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense row-major table with row and column labels.
type Matrix struct {
	RowNames []string
	ColNames []string
	data     []float64
}

// New returns a table of the given labels with every cell set to NaN.
func New(rowNames, colNames []string) *Matrix {
	m := &Matrix{
		RowNames: append([]string(nil), rowNames...),
		ColNames: append([]string(nil), colNames...),
		data:     make([]float64, len(rowNames)*len(colNames)),
	}
	for i := range m.data {
		m.data[i] = math.NaN()
	}

	return m
}

// NewSquare returns a table sharing one set of labels for rows and columns,
// with a zero diagonal and NaN elsewhere.
func NewSquare(names []string) *Matrix {
	m := New(names, names)
	for i := range names {
		m.Set(i, i, 0)
	}

	return m
}

func (m *Matrix) Dims() (r, c int) {
	return len(m.RowNames), len(m.ColNames)
}

func (m *Matrix) At(i, j int) float64 {
	return m.data[i*len(m.ColNames)+j]
}

func (m *Matrix) Set(i, j int, v float64) {
	m.data[i*len(m.ColNames)+j] = v
}

// Row returns a copy of row i.
func (m *Matrix) Row(i int) []float64 {
	c := len(m.ColNames)
	return append([]float64(nil), m.data[i*c:(i+1)*c]...)
}

// Lookup finds a cell by its labels.
func (m *Matrix) Lookup(row, col string) (float64, error) {
	i, j := indexOf(m.RowNames, row), indexOf(m.ColNames, col)
	if i < 0 || j < 0 {
		return math.NaN(), fmt.Errorf("no cell [%s, %s]", row, col)
	}

	return m.At(i, j), nil
}

// Dense copies the values into a gonum matrix. It panics on an empty table.
func (m *Matrix) Dense() *mat.Dense {
	r, c := m.Dims()
	return mat.NewDense(r, c, append([]float64(nil), m.data...))
}

// FromDense wraps a gonum matrix with labels.
func FromDense(rowNames, colNames []string, d mat.Matrix) (*Matrix, error) {
	r, c := d.Dims()
	if r != len(rowNames) || c != len(colNames) {
		return nil, fmt.Errorf("FromDense: matrix is %dx%d but %d row and %d column names were given", r, c, len(rowNames), len(colNames))
	}

	m := New(rowNames, colNames)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			m.Set(i, j, d.At(i, j))
		}
	}

	return m, nil
}

// IsSymmetric reports whether the table is square and equal to its transpose,
// treating two NaNs as equal.
func (m *Matrix) IsSymmetric(tol float64) bool {
	r, c := m.Dims()
	if r != c {
		return false
	}

	for i := 0; i < r; i++ {
		for j := i + 1; j < c; j++ {
			a, b := m.At(i, j), m.At(j, i)
			if math.IsNaN(a) && math.IsNaN(b) {
				continue
			}
			if math.IsNaN(a) != math.IsNaN(b) {
				return false
			}
			if math.Abs(a-b) > tol {
				return false
			}
		}
	}

	return true
}

// ColMeans averages each column over its non-NaN cells. A column with no
// value averages to NaN.
func (m *Matrix) ColMeans() []float64 {
	rows, cols := m.Dims()
	out := make([]float64, cols)
	for j := 0; j < cols; j++ {
		sum, n := 0.0, 0
		for i := 0; i < rows; i++ {
			if v := m.At(i, j); !math.IsNaN(v) {
				sum += v
				n++
			}
		}
		if n == 0 {
			out[j] = math.NaN()
			continue
		}
		out[j] = sum / float64(n)
	}

	return out
}

func indexOf(names []string, name string) int {
	for i, v := range names {
		if v == name {
			return i
		}
	}

	return -1
}
