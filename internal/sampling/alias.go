package sampling

import (
	"fmt"

	"wordvec/internal/domain"
)

// Alias samples the smoothed unigram distribution with Vose's alias method:
// exact O(1) draws from O(V) memory.
type Alias struct {
	prob  []float64
	alias []int
	only  int
}

// NewAlias builds an alias sampler from the per-index frequencies.
func NewAlias(counts []int, exponent float64) (*Alias, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("build alias sampler: %w: empty vocabulary", domain.ErrSamplingTableExhausted)
	}
	probs, err := distribution(counts, exponent)
	if err != nil {
		return nil, err
	}
	n := len(probs)
	a := &Alias{prob: make([]float64, n), alias: make([]int, n), only: -1}

	owners := 0
	scaled := make([]float64, n)
	var small, large []int
	for i, p := range probs {
		if p > 0 {
			owners++
			a.only = i
		}
		scaled[i] = p * float64(n)
		if scaled[i] < 1 {
			small = append(small, i)
		} else {
			large = append(large, i)
		}
	}
	if owners > 1 {
		a.only = -1
	}
	for len(small) > 0 && len(large) > 0 {
		s := small[len(small)-1]
		small = small[:len(small)-1]
		l := large[len(large)-1]
		large = large[:len(large)-1]

		a.prob[s] = scaled[s]
		a.alias[s] = l
		scaled[l] = scaled[l] + scaled[s] - 1
		if scaled[l] < 1 {
			small = append(small, l)
		} else {
			large = append(large, l)
		}
	}
	for _, i := range large {
		a.prob[i] = 1
		a.alias[i] = i
	}
	// leftovers are rounding residue of columns that are effectively full
	for _, i := range small {
		a.prob[i] = 1
		a.alias[i] = i
	}
	return a, nil
}

// Sample draws one index, redrawing while it equals excluded.
func (a *Alias) Sample(rng domain.Rand, excluded int) (int, error) {
	if a.only >= 0 && a.only == excluded {
		return 0, fmt.Errorf("%w: index %d holds all probability mass", domain.ErrSamplingTableExhausted, excluded)
	}
	for {
		col := rng.Intn(len(a.prob))
		idx := col
		if rng.Float64() >= a.prob[col] {
			idx = a.alias[col]
		}
		if idx != excluded {
			return idx, nil
		}
	}
}

// SampleN draws exactly n samples, none equal to excluded.
func (a *Alias) SampleN(rng domain.Rand, excluded, n int) ([]int, error) {
	return sampleN(a, rng, excluded, n)
}
