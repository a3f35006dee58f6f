package query

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"wordvec/internal/domain"
	"wordvec/internal/embedding"
	"wordvec/internal/vectorstore"
	"wordvec/internal/vocab"
)

// TopK is the number of neighbours returned by every ranked query.
const TopK = 10

// Service answers nearest-neighbour queries over trained input embeddings.
// It never mutates the matrices.
type Service struct {
	vocab   *vocab.Vocabulary
	weights *embedding.Matrices
	store   vectorstore.Storage
}

var _ domain.QueryService = (*Service)(nil)

// New indexes every row of weights.In into store and returns a query service.
func New(v *vocab.Vocabulary, weights *embedding.Matrices, store vectorstore.Storage) (*Service, error) {
	_, hidden := weights.Dims()
	if err := weights.Check(v.Len(), hidden); err != nil {
		return nil, err
	}
	if err := store.Init(hidden); err != nil {
		return nil, fmt.Errorf("init vector store: %w", err)
	}
	words := make([]domain.Word, v.Len())
	for i := range words {
		words[i] = domain.Word{Index: i, Text: v.Token(i)}
	}
	if err := store.Upsert(words, weights.Rows()); err != nil {
		return nil, fmt.Errorf("index embeddings: %w", err)
	}
	return &Service{vocab: v, weights: weights, store: store}, nil
}

// Embed returns a copy of the input embedding of word.
func (s *Service) Embed(word string) ([]float64, error) {
	i, ok := s.vocab.Index(word)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownToken, word)
	}
	return s.weights.Embed(i), nil
}

// Predict returns the words closest to word, never including word itself.
func (s *Service) Predict(word string) ([]domain.Neighbor, error) {
	i, ok := s.vocab.Index(word)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownToken, word)
	}
	return s.nearest(s.weights.Embed(i), i)
}

// Analogy answers "a is to b as c is to ?" with -a + b - c.
func (s *Service) Analogy(a, b, c string) ([]domain.Neighbor, error) {
	va, err := s.Embed(a)
	if err != nil {
		return nil, err
	}
	vb, err := s.Embed(b)
	if err != nil {
		return nil, err
	}
	vc, err := s.Embed(c)
	if err != nil {
		return nil, err
	}
	v := make([]float64, len(vb))
	copy(v, vb)
	floats.Sub(v, va)
	floats.Sub(v, vc)
	return s.nearest(v, -1)
}

// Morphology adds the mean difference of pairs to word and ranks the result.
func (s *Service) Morphology(pairs [][2]string, word string) ([]domain.Neighbor, error) {
	delta, err := s.Delta(pairs)
	if err != nil {
		return nil, err
	}
	return s.Shift(delta, word)
}

// Shift ranks the rows nearest to delta + embed(word).
func (s *Service) Shift(delta []float64, word string) ([]domain.Neighbor, error) {
	v, err := s.Embed(word)
	if err != nil {
		return nil, err
	}
	if len(delta) != len(v) {
		return nil, fmt.Errorf("%w: delta has %d components, want %d", domain.ErrDimensionMismatch, len(delta), len(v))
	}
	floats.Add(v, delta)
	return s.nearest(v, -1)
}

// Delta averages embed(x) - embed(y) over pairs, e.g. ("walked", "walk").
func (s *Service) Delta(pairs [][2]string) ([]float64, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no word pairs given")
	}
	_, hidden := s.weights.Dims()
	sum := make([]float64, hidden)
	for _, p := range pairs {
		x, err := s.Embed(p[0])
		if err != nil {
			return nil, err
		}
		y, err := s.Embed(p[1])
		if err != nil {
			return nil, err
		}
		floats.Add(sum, x)
		floats.Sub(sum, y)
	}
	floats.Scale(1/float64(len(pairs)), sum)
	return sum, nil
}

// Similarity is the cosine similarity of two words, 0 when either is a zero vector.
func (s *Service) Similarity(a, b string) (float64, error) {
	va, err := s.Embed(a)
	if err != nil {
		return 0, err
	}
	vb, err := s.Embed(b)
	if err != nil {
		return 0, err
	}
	na, nb := floats.Norm(va, 2), floats.Norm(vb, 2)
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return floats.Dot(va, vb) / (na * nb), nil
}

func (s *Service) nearest(v []float64, exclude int) ([]domain.Neighbor, error) {
	k := TopK
	if n := s.vocab.Len() - 1; n < k {
		k = n
	}
	if k <= 0 {
		return []domain.Neighbor{}, nil
	}
	hits, err := s.store.Search(v, k, exclude)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	out := make([]domain.Neighbor, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Neighbor{Word: h.Word.Text, Score: h.Score})
	}
	return out, nil
}
