package nn

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// DefaultFrequencyBase is the frequency base T of the sinusoid encoding.
const DefaultFrequencyBase = 1000.0

// SinusoidEncodingTable builds the sinusoid position encoding table for an
// explicit list of positions. Row r encodes positions[r]: for column j the
// raw angle is pos / T^(2*(j/2)/hiddenDim); even columns store sin(angle),
// odd columns store cos(angle).
//
// The table is assembled in float64 (periodicity artifacts show up quickly
// in float32 for large positions) and narrowed to the working precision at
// the end. Deterministic and pure; T <= 0 selects DefaultFrequencyBase.
func SinusoidEncodingTable(positions []int, hiddenDim int, T float64) *Tensor[float32] {
	if T <= 0 {
		T = DefaultFrequencyBase
	}

	angles := mat.NewDense(len(positions), hiddenDim, nil)
	for r, pos := range positions {
		for j := 0; j < hiddenDim; j++ {
			exponent := 2.0 * float64(j/2) / float64(hiddenDim)
			angle := float64(pos) / math.Pow(T, exponent)
			if j%2 == 0 {
				angles.Set(r, j, math.Sin(angle))
			} else {
				angles.Set(r, j, math.Cos(angle))
			}
		}
	}

	table := NewTensor[float32](len(positions), hiddenDim)
	raw := angles.RawMatrix()
	for r := 0; r < len(positions); r++ {
		row := raw.Data[r*raw.Stride : r*raw.Stride+hiddenDim]
		for j, v := range row {
			table.Data[r*hiddenDim+j] = float32(v)
		}
	}
	return table
}

// SinusoidEncodingTableN builds the table for positions 0..n-1.
func SinusoidEncodingTableN(n, hiddenDim int, T float64) *Tensor[float32] {
	positions := make([]int, n)
	for i := range positions {
		positions[i] = i
	}
	return SinusoidEncodingTable(positions, hiddenDim, T)
}

// PositionTable is a frozen position encoding lookup. It is constant for the
// lifetime of the model: parameter traversal never visits it and no code
// path writes to it after construction.
type PositionTable struct {
	rows int
	dim  int
	data []float32
}

// NewPositionTable freezes a 2-D encoding table into a lookup.
func NewPositionTable(table *Tensor[float32]) *PositionTable {
	rows, dim := 0, 0
	if len(table.Shape) == 2 {
		rows, dim = table.Shape[0], table.Shape[1]
	}

	data := make([]float32, len(table.Data))
	copy(data, table.Data)

	return &PositionTable{rows: rows, dim: dim, data: data}
}

// Rows returns the number of encoded positions.
func (p *PositionTable) Rows() int { return p.rows }

// Dim returns the encoding width.
func (p *PositionTable) Dim() int { return p.dim }

// Lookup returns the encoding row at the given index. The returned slice
// aliases the frozen table and must not be written to.
func (p *PositionTable) Lookup(index int) ([]float32, error) {
	if index < 0 || index >= p.rows {
		return nil, fmt.Errorf("%w: position index %d out of table bounds [0, %d)", ErrShape, index, p.rows)
	}
	return p.data[index*p.dim : (index+1)*p.dim], nil
}
