package embedding

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"wordvec/internal/domain"
)

// Matrices holds the two SGNS weight matrices. In maps a center word to its
// embedding; Out scores context and negative words. Both are V x H, row-major,
// with contiguous rows.
type Matrices struct {
	In  *mat.Dense
	Out *mat.Dense
}

// NewRandom initializes both matrices uniformly in [-0.5, 0.5), In first.
func NewRandom(vocabSize, hidden int, rng domain.Rand) (*Matrices, error) {
	if vocabSize <= 0 || hidden <= 0 {
		return nil, fmt.Errorf("invalid matrix shape %dx%d", vocabSize, hidden)
	}
	fill := func() *mat.Dense {
		data := make([]float64, vocabSize*hidden)
		for i := range data {
			data[i] = rng.Float64() - 0.5
		}
		return mat.NewDense(vocabSize, hidden, data)
	}
	in := fill()
	out := fill()
	return &Matrices{In: in, Out: out}, nil
}

// Dims returns the vocabulary size and hidden size.
func (m *Matrices) Dims() (vocabSize, hidden int) { return m.In.Dims() }

// Check verifies both matrices are vocabSize x hidden.
func (m *Matrices) Check(vocabSize, hidden int) error {
	for name, d := range map[string]*mat.Dense{"W_in": m.In, "W_out": m.Out} {
		if d == nil {
			return fmt.Errorf("%w: %s missing", domain.ErrDimensionMismatch, name)
		}
		r, c := d.Dims()
		if r != vocabSize || c != hidden {
			return fmt.Errorf("%w: %s is %dx%d, want %dx%d", domain.ErrDimensionMismatch, name, r, c, vocabSize, hidden)
		}
	}
	return nil
}

// Embed returns a copy of the input embedding of index i.
func (m *Matrices) Embed(i int) []float64 {
	return append([]float64(nil), m.In.RawRowView(i)...)
}

// Rows returns copies of all input embeddings.
func (m *Matrices) Rows() [][]float64 {
	v, _ := m.Dims()
	out := make([][]float64, v)
	for i := range out {
		out[i] = m.Embed(i)
	}
	return out
}

// Finite reports the first row of d holding a NaN or Inf, or -1.
func Finite(d *mat.Dense) int {
	r, _ := d.Dims()
	for i := 0; i < r; i++ {
		if !FiniteRow(d.RawRowView(i)) {
			return i
		}
	}
	return -1
}

// FiniteRow reports whether every value of row is finite.
func FiniteRow(row []float64) bool {
	for _, x := range row {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
