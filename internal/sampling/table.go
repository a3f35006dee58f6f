package sampling

import (
	"errors"
	"fmt"
	"math"

	"wordvec/internal/domain"
)

const (
	// DefaultExponent smooths the unigram distribution as in the word2vec paper.
	DefaultExponent = 0.75
	// DefaultTableSize is the number of slots in a Table.
	DefaultTableSize = 100_000_000
)

// Table is a unigram sampling table with context distribution smoothing.
// Each vocabulary index owns a contiguous run of slots whose length is
// proportional to count^exponent.
type Table struct {
	slots []int32
	// only is the single index owning every slot, or -1.
	only int
}

// NewTable fills a table of size slots from the per-index frequencies.
// The slot run of index i ends at floor(size * cumulative probability of i),
// so every run length is within one slot of p[i]*size.
func NewTable(counts []int, exponent float64, size int) (*Table, error) {
	if len(counts) == 0 {
		return nil, fmt.Errorf("build sampling table: %w: empty vocabulary", domain.ErrSamplingTableExhausted)
	}
	if size <= 0 {
		return nil, errors.New("sampling table size must be positive")
	}
	probs, err := distribution(counts, exponent)
	if err != nil {
		return nil, err
	}

	t := &Table{slots: make([]int32, size), only: -1}
	cumulative := 0.0
	start := 0
	owners := 0
	for i, p := range probs {
		cumulative += p
		end := int(math.Floor(cumulative * float64(size)))
		if i == len(probs)-1 || end > size {
			end = size
		}
		if end > start {
			owners++
			t.only = i
		}
		for s := start; s < end; s++ {
			t.slots[s] = int32(i)
		}
		if end > start {
			start = end
		}
	}
	if owners > 1 {
		t.only = -1
	}
	return t, nil
}

// Size returns the number of slots.
func (t *Table) Size() int { return len(t.slots) }

// Slots counts the slots assigned to each of n indices.
func (t *Table) Slots(n int) []int {
	out := make([]int, n)
	for _, s := range t.slots {
		out[s]++
	}
	return out
}

// Sample draws a uniform slot and returns its index, redrawing while the draw
// equals excluded. Retries are unbounded; a table where excluded owns every
// slot is rejected up front.
func (t *Table) Sample(rng domain.Rand, excluded int) (int, error) {
	if t.only >= 0 && t.only == excluded {
		return 0, fmt.Errorf("%w: index %d owns every slot", domain.ErrSamplingTableExhausted, excluded)
	}
	for {
		idx := int(t.slots[rng.Intn(len(t.slots))])
		if idx != excluded {
			return idx, nil
		}
	}
}

// SampleN draws exactly n samples, none equal to excluded.
func (t *Table) SampleN(rng domain.Rand, excluded, n int) ([]int, error) {
	return sampleN(t, rng, excluded, n)
}

func sampleN(s domain.Sampler, rng domain.Rand, excluded, n int) ([]int, error) {
	out := make([]int, 0, n)
	for len(out) < n {
		idx, err := s.Sample(rng, excluded)
		if err != nil {
			return nil, err
		}
		out = append(out, idx)
	}
	return out, nil
}

// distribution returns count^exponent normalized to sum to one.
func distribution(counts []int, exponent float64) ([]float64, error) {
	weights := make([]float64, len(counts))
	total := 0.0
	for i, c := range counts {
		if c < 0 {
			return nil, fmt.Errorf("negative count %d at index %d", c, i)
		}
		weights[i] = math.Pow(float64(c), exponent)
		total += weights[i]
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: all counts are zero", domain.ErrSamplingTableExhausted)
	}
	for i := range weights {
		weights[i] /= total
	}
	return weights, nil
}
