package domain

import "errors"

var (
	// ErrUnknownToken is returned when a query references a word absent from the vocabulary.
	ErrUnknownToken = errors.New("unknown token")
	// ErrInvalidWindow is returned when the window offsets cannot be applied to the corpus.
	ErrInvalidWindow = errors.New("invalid window configuration")
	// ErrDimensionMismatch is returned when loaded matrices disagree with the vocabulary or hidden size.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrNumericalInstability is returned when a NaN or Inf shows up in a weight row.
	ErrNumericalInstability = errors.New("numerical instability")
	// ErrSamplingTableExhausted is returned when no index other than the excluded one can be drawn.
	ErrSamplingTableExhausted = errors.New("sampling table exhausted")
)
