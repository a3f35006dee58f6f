package sgns

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"wordvec/internal/embedding"
)

// maxSigmoid is the largest float64 below one.
const maxSigmoid = 1 - 0x1p-53

// Sigmoid computes 1/(1+e^-x). The result stays inside (0, 1) for any finite
// input so the log-likelihood never sees a zero.
func Sigmoid(x float64) float64 {
	var s float64
	if x >= 0 {
		s = 1 / (1 + math.Exp(-x))
	} else {
		e := math.Exp(x)
		s = e / (1 + e)
	}
	switch {
	case s < math.SmallestNonzeroFloat64:
		return math.SmallestNonzeroFloat64
	case s > maxSigmoid:
		return maxSigmoid
	}
	return s
}

const (
	inMatrix = iota
	outMatrix
)

var matrixNames = [...]string{inMatrix: "W_in", outMatrix: "W_out"}

// rowError reports a row that stopped being finite.
type rowError struct {
	matrix int
	row    int
}

func (e *rowError) Error() string {
	return fmt.Sprintf("non-finite value in %s row %d", matrixNames[e.matrix], e.row)
}

// stepper runs gradient steps over shared matrices. Each goroutine owns one;
// the buffers are reused across positions.
type stepper struct {
	w     *embedding.Matrices
	lr    float64
	locks rowLocks
	snap  []float64
	grad  []float64
}

func newStepper(w *embedding.Matrices, lr float64, locks rowLocks) *stepper {
	_, h := w.Dims()
	if locks == nil {
		locks = noLocks{}
	}
	return &stepper{w: w, lr: lr, locks: locks, snap: make([]float64, h), grad: make([]float64, h)}
}

// step applies one SGNS update for center against every context token and the
// negatives drawn for it, then returns the NLL measured after the update.
// W_out rows are updated in place as they are visited; W_in[center] receives a
// single deferred update, so every W_out update sees its pre-step value.
func (s *stepper) step(center int, contexts []int, negatives [][]int) (float64, error) {
	s.readCenter(center)
	for i := range s.grad {
		s.grad[i] = 0
	}
	for k, c := range contexts {
		if err := s.update(c, 1); err != nil {
			return 0, err
		}
		for _, n := range negatives[k] {
			if err := s.update(n, 0); err != nil {
				return 0, err
			}
		}
	}

	row := s.w.In.RawRowView(center)
	s.locks.lock(inMatrix, center)
	floats.AddScaled(row, -s.lr, s.grad)
	ok := embedding.FiniteRow(row)
	copy(s.snap, row)
	s.locks.unlock(inMatrix, center)
	if !ok {
		return 0, &rowError{matrix: inMatrix, row: center}
	}
	return s.loss(contexts, negatives), nil
}

// update folds the gradient of one output row into grad and moves the row.
// label is 1 for a true context word and 0 for a negative sample.
func (s *stepper) update(idx int, label float64) error {
	out := s.w.Out.RawRowView(idx)
	s.locks.lock(outMatrix, idx)
	g := Sigmoid(floats.Dot(out, s.snap)) - label
	floats.AddScaled(s.grad, g, out)
	floats.AddScaled(out, -s.lr*g, s.snap)
	ok := embedding.FiniteRow(out)
	s.locks.unlock(outMatrix, idx)
	if !ok {
		return &rowError{matrix: outMatrix, row: idx}
	}
	return nil
}

// loss is the negative log-likelihood of the current snapshot of the center row.
func (s *stepper) loss(contexts []int, negatives [][]int) float64 {
	nll := 0.0
	for k, c := range contexts {
		nll += Softplus(-s.dot(c))
		for _, n := range negatives[k] {
			nll += Softplus(s.dot(n))
		}
	}
	return nll
}

// Softplus computes log(1+e^x), which equals -log(Sigmoid(-x)), without
// overflowing for large |x|.
func Softplus(x float64) float64 {
	return math.Max(x, 0) + math.Log1p(math.Exp(-math.Abs(x)))
}

func (s *stepper) dot(idx int) float64 {
	s.locks.lock(outMatrix, idx)
	d := floats.Dot(s.w.Out.RawRowView(idx), s.snap)
	s.locks.unlock(outMatrix, idx)
	return d
}

func (s *stepper) readCenter(center int) {
	s.locks.lock(inMatrix, center)
	copy(s.snap, s.w.In.RawRowView(center))
	s.locks.unlock(inMatrix, center)
}

// Loss returns the NLL of center against contexts and their negatives without
// touching the matrices.
func Loss(w *embedding.Matrices, center int, contexts []int, negatives [][]int) float64 {
	s := newStepper(w, 0, nil)
	s.readCenter(center)
	return s.loss(contexts, negatives)
}

// Step applies a single gradient step and returns the NLL after the update.
func Step(w *embedding.Matrices, center int, contexts []int, negatives [][]int, lr float64) (float64, error) {
	return newStepper(w, lr, nil).step(center, contexts, negatives)
}
