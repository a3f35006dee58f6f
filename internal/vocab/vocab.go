package vocab

import (
	"sort"
)

// Unknown is the sentinel token that absorbs every low-frequency word.
const Unknown = "<UNK>"

// DefaultMinCount is the raw frequency at or below which a token becomes Unknown.
const DefaultMinCount = 50

// Vocabulary is a frequency-ranked index space over tokens.
// It is immutable once built.
type Vocabulary struct {
	tokens []string
	counts []int
	index  map[string]int
	total  int
}

// Build thresholds the token stream, ranks the surviving tokens by descending
// frequency and encodes the stream as vocabulary indices. Ties keep the order in
// which tokens first appear in the thresholded stream.
func Build(tokens []string, minCount int) (*Vocabulary, []int) {
	raw := make(map[string]int)
	for _, t := range tokens {
		raw[t]++
	}

	counts := make(map[string]int)
	var order []string
	replaced := make([]string, len(tokens))
	for i, t := range tokens {
		if raw[t] <= minCount {
			t = Unknown
		}
		replaced[i] = t
		if _, seen := counts[t]; !seen {
			order = append(order, t)
		}
		counts[t]++
	}

	sort.SliceStable(order, func(i, j int) bool { return counts[order[i]] > counts[order[j]] })

	v := &Vocabulary{
		tokens: order,
		counts: make([]int, len(order)),
		index:  make(map[string]int, len(order)),
		total:  len(tokens),
	}
	for i, t := range order {
		v.index[t] = i
		v.counts[i] = counts[t]
	}
	encoded := make([]int, len(replaced))
	for i, t := range replaced {
		encoded[i] = v.index[t]
	}
	return v, encoded
}

// FromCounts rebuilds a vocabulary from an already ranked token list, e.g. one
// restored from the corpus cache.
func FromCounts(tokens []string, counts []int) *Vocabulary {
	v := &Vocabulary{
		tokens: append([]string(nil), tokens...),
		counts: append([]int(nil), counts...),
		index:  make(map[string]int, len(tokens)),
	}
	for i, t := range v.tokens {
		v.index[t] = i
		v.total += v.counts[i]
	}
	return v
}

// Len returns the vocabulary size V.
func (v *Vocabulary) Len() int { return len(v.tokens) }

// Total returns the number of tokens the vocabulary was built from.
func (v *Vocabulary) Total() int { return v.total }

// Index looks up the index of a token.
func (v *Vocabulary) Index(token string) (int, bool) {
	i, ok := v.index[token]
	return i, ok
}

// Token returns the token at index i.
func (v *Vocabulary) Token(i int) string { return v.tokens[i] }

// Count returns the post-threshold frequency of index i.
func (v *Vocabulary) Count(i int) int { return v.counts[i] }

// Tokens returns a copy of the ranked token list.
func (v *Vocabulary) Tokens() []string { return append([]string(nil), v.tokens...) }

// Counts returns a copy of the per-index frequencies.
func (v *Vocabulary) Counts() []int { return append([]int(nil), v.counts...) }

// UnknownIndex reports the index of the Unknown bucket, if present.
func (v *Vocabulary) UnknownIndex() (int, bool) { return v.Index(Unknown) }
