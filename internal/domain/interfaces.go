package domain

// Word is a vocabulary entry addressed by its index.
type Word struct {
	Index int
	Text  string
}

// Neighbor is a ranked query result with its cosine similarity.
type Neighbor struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}

// Checkpoint is a convergence sample recorded during training.
type Checkpoint struct {
	Epoch     int     `json:"epoch"`
	Processed int     `json:"processed"`
	NLL       float64 `json:"nll"`
}

// Tokenizer turns raw text into an ordered token stream.
type Tokenizer interface {
	Tokens(text string) []string
}

// Sampler draws negative samples over vocabulary indices.
// Implementations never return the excluded index.
type Sampler interface {
	Sample(rng Rand, excluded int) (int, error)
	SampleN(rng Rand, excluded, n int) ([]int, error)
}

// Rand is the subset of a random source the samplers need.
type Rand interface {
	Intn(n int) int
	Float64() float64
}

// SearchResult is a matching word with its similarity score.
type SearchResult struct {
	Word  Word
	Score float64
}

// QueryService defines the query operations exposed by the application core.
type QueryService interface {
	Predict(word string) ([]Neighbor, error)
	Analogy(a, b, c string) ([]Neighbor, error)
	Morphology(pairs [][2]string, word string) ([]Neighbor, error)
	Similarity(a, b string) (float64, error)
}
