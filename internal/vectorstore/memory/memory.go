package memory

import (
	"errors"
	"sort"
	"sync"

	"gonum.org/v1/gonum/floats"

	"wordvec/internal/domain"
)

// Storage is a simple in-memory vector store using brute-force cosine similarity.
type Storage struct {
	mu        sync.RWMutex
	dimension int
	vectors   [][]float64
	norms     []float64
	words     []domain.Word
}

func NewStorage() *Storage { return &Storage{} }

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.vectors = nil
	s.norms = nil
	s.words = nil
	return nil
}

func (s *Storage) Upsert(words []domain.Word, vectors [][]float64) error {
	if len(words) != len(vectors) {
		return errors.New("words and vectors length mismatch")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, v := range vectors {
		if len(v) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	for i, v := range vectors {
		s.words = append(s.words, words[i])
		s.vectors = append(s.vectors, v)
		s.norms = append(s.norms, floats.Norm(v, 2))
	}
	return nil
}

// Search ranks every stored word by cosine similarity to vector. Ties go to
// the lower vocabulary index. A zero vector on either side scores 0.
func (s *Storage) Search(vector []float64, topK int, exclude int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(vector) != s.dimension {
		return nil, errors.New("vector dimension mismatch")
	}
	if topK <= 0 {
		topK = 10
	}
	qnorm := floats.Norm(vector, 2)
	idxs := make([]int, 0, len(s.vectors))
	scores := make([]float64, len(s.vectors))
	for i := range s.vectors {
		if s.words[i].Index == exclude {
			continue
		}
		idxs = append(idxs, i)
		scores[i] = cosine(s.vectors[i], vector, s.norms[i], qnorm)
	}
	argsortDesc(idxs, scores, s.words)
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Word: s.words[j], Score: scores[j]})
	}
	return results, nil
}

func (s *Storage) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vectors = nil
	s.norms = nil
	s.words = nil
	return nil
}

func cosine(a, b []float64, na, nb float64) float64 {
	if na == 0 || nb == 0 {
		return 0
	}
	return floats.Dot(a, b) / (na * nb)
}

func argsortDesc(idxs []int, scores []float64, words []domain.Word) {
	sort.Slice(idxs, func(i, j int) bool {
		a, b := idxs[i], idxs[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		return words[a].Index < words[b].Index
	})
}
