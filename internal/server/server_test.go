package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"wordvec/internal/domain"
	"wordvec/internal/logging"
	"wordvec/internal/metrics"
)

// stubQuery knows the words "cat" and "dog".
type stubQuery struct{}

func known(words ...string) error {
	for _, w := range words {
		if w != "cat" && w != "dog" {
			return fmt.Errorf("%w: %q", domain.ErrUnknownToken, w)
		}
	}
	return nil
}

func (stubQuery) Predict(word string) ([]domain.Neighbor, error) {
	if err := known(word); err != nil {
		return nil, err
	}
	return []domain.Neighbor{{Word: "dog", Score: 0.9}}, nil
}

func (stubQuery) Analogy(a, b, c string) ([]domain.Neighbor, error) {
	if err := known(a, b, c); err != nil {
		return nil, err
	}
	return []domain.Neighbor{{Word: "cat", Score: 0.5}}, nil
}

func (stubQuery) Morphology(pairs [][2]string, word string) ([]domain.Neighbor, error) {
	if err := known(word); err != nil {
		return nil, err
	}
	return []domain.Neighbor{{Word: word, Score: float64(len(pairs))}}, nil
}

func (stubQuery) Similarity(a, b string) (float64, error) {
	if err := known(a, b); err != nil {
		return 0, err
	}
	return 0.25, nil
}

func newServer(t *testing.T) (*httptest.Server, *metrics.Metrics) {
	t.Helper()
	m := metrics.New()
	ts := httptest.NewServer(Handler(Dependencies{Query: stubQuery{}, Metrics: m, Log: logging.Discard()}))
	t.Cleanup(ts.Close)
	return ts, m
}

func decode(t *testing.T, resp *http.Response) Response {
	t.Helper()
	defer resp.Body.Close()
	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHTTPEndpoints(t *testing.T) {
	ts, _ := newServer(t)
	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantWord   string
		wantSim    float64
	}{
		{"Predict", http.MethodGet, "/v1/predict?word=cat", "", http.StatusOK, "dog", 0},
		{"Predict unknown", http.MethodGet, "/v1/predict?word=emu", "", http.StatusNotFound, "", 0},
		{"Predict missing word", http.MethodGet, "/v1/predict", "", http.StatusBadRequest, "", 0},
		{"Analogy", http.MethodPost, "/v1/analogy", `{"a":"cat","b":"dog","c":"cat"}`, http.StatusOK, "cat", 0},
		{"Analogy bad JSON", http.MethodPost, "/v1/analogy", `{`, http.StatusBadRequest, "", 0},
		{"Morphology", http.MethodPost, "/v1/morphology", `{"pairs":[["cats","cat"]],"word":"dog"}`, http.StatusOK, "dog", 0},
		{"Morphology without pairs", http.MethodPost, "/v1/morphology", `{"word":"dog"}`, http.StatusBadRequest, "", 0},
		{"Similarity", http.MethodGet, "/v1/similarity?a=cat&b=dog", "", http.StatusOK, "", 0.25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, ts.URL+tt.path, strings.NewReader(tt.body))
			if err != nil {
				t.Fatal(err)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			got := decode(t, resp)
			if tt.wantStatus != http.StatusOK {
				if got.OK || got.Error == "" {
					t.Errorf("error response = %+v", got)
				}
				return
			}
			if tt.wantWord != "" && (len(got.Neighbors) != 1 || got.Neighbors[0].Word != tt.wantWord) {
				t.Errorf("neighbors = %+v, want %s", got.Neighbors, tt.wantWord)
			}
			if tt.wantSim != 0 && (got.Similarity == nil || *got.Similarity != tt.wantSim) {
				t.Errorf("similarity = %v, want %v", got.Similarity, tt.wantSim)
			}
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newServer(t)
	resp, err := http.Post(ts.URL+"/v1/predict?word=cat", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	ts, _ := newServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(body) != "ok" {
		t.Errorf("healthz = %q", body)
	}

	if resp, err = http.Get(ts.URL + "/v1/predict?word=cat"); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp, err = http.Get(ts.URL + "/metrics"); err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	if !strings.Contains(string(body), `wordvec_query_requests_total{op="predict",status="ok"} 1`) {
		t.Errorf("metrics did not count the predict query")
	}
}

func TestWebSocketQuery(t *testing.T) {
	ts, _ := newServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/query"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial() error = %v", err)
	}
	defer conn.Close()

	tests := []struct {
		send   string
		wantOK bool
	}{
		{`{"op":"predict","words":["cat"]}`, true},
		{`{"op":"analogy","words":["cat","dog","cat"]}`, true},
		{`{"op":"morphology","words":["cat"],"pairs":[["cats","cat"]]}`, true},
		{`{"op":"similarity","words":["cat","dog"]}`, true},
		{`{"op":"predict","words":["emu"]}`, false},
		{`{"op":"fly"}`, false},
		{`not json`, false},
	}
	for _, tt := range tests {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(tt.send)); err != nil {
			t.Fatalf("WriteMessage() error = %v", err)
		}
		var got Response
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("ReadJSON() error = %v", err)
		}
		if got.OK != tt.wantOK {
			t.Errorf("%s: response = %+v, want ok=%v", tt.send, got, tt.wantOK)
		}
		if !got.OK && got.Error == "" {
			t.Errorf("%s: error response without message", tt.send)
		}
	}
}
