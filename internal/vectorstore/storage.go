package vectorstore

import "wordvec/internal/domain"

// Storage persists word vectors and supports similarity search.
// Search ranks by cosine similarity and skips the word whose index equals
// exclude; pass -1 to keep every word.
type Storage interface {
	Init(dimension int) error
	Upsert(words []domain.Word, vectors [][]float64) error
	Search(vector []float64, topK int, exclude int) ([]domain.SearchResult, error)
	Clear() error
}
