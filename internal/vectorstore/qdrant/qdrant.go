package qdrant

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"wordvec/internal/domain"
)

// pointNamespace scopes the name-based point ids of word vectors.
var pointNamespace = uuid.MustParse("6f1c2a54-8d0e-4b7a-9a3e-2f5d7c9b1e40")

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	client     *http.Client
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

func NewStorage(cfg Config) *Storage {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Storage{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

// PointID returns the stable point id of a word.
func PointID(word string) string {
	return uuid.NewSHA1(pointNamespace, []byte(word)).String()
}

func (s *Storage) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.dimension = dimension
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.putJSON(fmt.Sprintf("%s/collections/%s", s.url, s.collection), body)
}

func (s *Storage) Upsert(words []domain.Word, vectors [][]float64) error {
	if len(words) != len(vectors) {
		return errors.New("words and vectors length mismatch")
	}
	points := make([]map[string]any, len(words))
	for i := range words {
		points[i] = map[string]any{
			"id":     PointID(words[i].Text),
			"vector": vectors[i],
			"payload": map[string]any{
				"word":  words[i].Text,
				"index": words[i].Index,
			},
		}
	}
	body := map[string]any{"points": points}
	return s.putJSON(fmt.Sprintf("%s/collections/%s/points?wait=true", s.url, s.collection), body)
}

// Search asks Qdrant for one extra hit when a word is excluded so the result
// still holds topK entries after dropping it.
func (s *Storage) Search(vector []float64, topK int, exclude int) ([]domain.SearchResult, error) {
	if topK <= 0 {
		topK = 10
	}
	limit := topK
	if exclude >= 0 {
		limit++
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := s.postJSON(fmt.Sprintf("%s/collections/%s/points/search", s.url, s.collection), req, &resp); err != nil {
		return nil, err
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, r := range resp.Result {
		w := domain.Word{Index: -1}
		if v, ok := r.Payload["word"].(string); ok {
			w.Text = v
		}
		if v, ok := r.Payload["index"].(float64); ok {
			w.Index = int(v)
		}
		if exclude >= 0 && w.Index == exclude {
			continue
		}
		if len(results) == topK {
			break
		}
		results = append(results, domain.SearchResult{Word: w, Score: r.Score})
	}
	return results, nil
}

// Clear drops the collection. A collection that does not exist yet is not an error.
func (s *Storage) Clear() error {
	url := fmt.Sprintf("%s/collections/%s", s.url, s.collection)
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant DELETE %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant DELETE %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Storage) putJSON(url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant PUT %s failed: %s", url, resp.Status)
	}
	return nil
}

func (s *Storage) postJSON(url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant POST %s failed: %s", url, resp.Status)
	}
	if out != nil {
		dec := json.NewDecoder(resp.Body)
		return dec.Decode(out)
	}
	return nil
}
