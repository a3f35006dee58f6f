package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wordvec/internal/domain"
	"wordvec/internal/metrics"
)

type Dependencies struct {
	Query   domain.QueryService
	Metrics *metrics.Metrics
	Log     logrus.FieldLogger
}

// Request is the query envelope shared by the JSON and WebSocket endpoints.
// Words holds the operands in order: one for predict, three for analogy,
// two for similarity and the target word for morphology.
type Request struct {
	Op    string      `json:"op"`
	Words []string    `json:"words"`
	Pairs [][2]string `json:"pairs"`
}

// Response carries either neighbours, a similarity or an error.
type Response struct {
	OK         bool              `json:"ok"`
	Op         string            `json:"op,omitempty"`
	Neighbors  []domain.Neighbor `json:"neighbors,omitempty"`
	Similarity *float64          `json:"similarity,omitempty"`
	Error      string            `json:"error,omitempty"`
}

var errBadRequest = errors.New("bad request")

// Handler returns a mux with every HTTP and WebSocket route registered.
func Handler(d Dependencies) http.Handler {
	if d.Log == nil {
		d.Log = logrus.StandardLogger()
	}
	mux := http.NewServeMux()
	RegisterRoutes(mux, d)
	RegisterWSRoutes(mux, d)
	return mux
}

func RegisterRoutes(mux *http.ServeMux, d Dependencies) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if d.Metrics != nil {
		mux.Handle("/metrics", d.Metrics.Handler())
	}

	mux.HandleFunc("/v1/predict", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		req := Request{Op: "predict", Words: []string{r.URL.Query().Get("word")}}
		respond(w, d, req)
	})
	mux.HandleFunc("/v1/similarity", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		q := r.URL.Query()
		respond(w, d, Request{Op: "similarity", Words: []string{q.Get("a"), q.Get("b")}})
	})
	mux.HandleFunc("/v1/analogy", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct{ A, B, C string }
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Op: "analogy", Error: "invalid JSON body"})
			return
		}
		respond(w, d, Request{Op: "analogy", Words: []string{body.A, body.B, body.C}})
	})
	mux.HandleFunc("/v1/morphology", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var body struct {
			Pairs [][2]string `json:"pairs"`
			Word  string      `json:"word"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Op: "morphology", Error: "invalid JSON body"})
			return
		}
		respond(w, d, Request{Op: "morphology", Words: []string{body.Word}, Pairs: body.Pairs})
	})
}

func respond(w http.ResponseWriter, d Dependencies, req Request) {
	resp, err := Dispatch(d, req)
	writeJSON(w, statusFor(err), resp)
}

// Dispatch runs one query and records it in the metrics, if any.
func Dispatch(d Dependencies, req Request) (Response, error) {
	start := time.Now()
	resp, err := dispatch(d.Query, req)
	if d.Metrics != nil {
		d.Metrics.ObserveQuery(req.Op, start, err)
	}
	resp.Op = req.Op
	if err != nil {
		resp.Error = err.Error()
		if d.Log != nil && statusFor(err) == http.StatusInternalServerError {
			d.Log.WithError(err).WithField("op", req.Op).Error("query failed")
		}
		return resp, err
	}
	resp.OK = true
	return resp, nil
}

func dispatch(q domain.QueryService, req Request) (Response, error) {
	need := func(n int) error {
		if len(req.Words) != n {
			return fmt.Errorf("%w: %s takes %d words, got %d", errBadRequest, req.Op, n, len(req.Words))
		}
		for _, w := range req.Words {
			if w == "" {
				return fmt.Errorf("%w: empty word", errBadRequest)
			}
		}
		return nil
	}
	var (
		ns  []domain.Neighbor
		err error
	)
	switch req.Op {
	case "predict":
		if err := need(1); err != nil {
			return Response{}, err
		}
		ns, err = q.Predict(req.Words[0])
	case "analogy":
		if err := need(3); err != nil {
			return Response{}, err
		}
		ns, err = q.Analogy(req.Words[0], req.Words[1], req.Words[2])
	case "morphology":
		if err := need(1); err != nil {
			return Response{}, err
		}
		if len(req.Pairs) == 0 {
			return Response{}, fmt.Errorf("%w: morphology needs word pairs", errBadRequest)
		}
		ns, err = q.Morphology(req.Pairs, req.Words[0])
	case "similarity":
		if err := need(2); err != nil {
			return Response{}, err
		}
		sim, err := q.Similarity(req.Words[0], req.Words[1])
		if err != nil {
			return Response{}, err
		}
		return Response{Similarity: &sim}, nil
	default:
		return Response{}, fmt.Errorf("%w: unknown op %q", errBadRequest, req.Op)
	}
	if err != nil {
		return Response{}, err
	}
	if ns == nil {
		ns = []domain.Neighbor{}
	}
	return Response{Neighbors: ns}, nil
}

func statusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnknownToken):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ListenAndServe serves h on addr until ctx is cancelled, then shuts down
// gracefully.
func ListenAndServe(ctx context.Context, addr string, h http.Handler, log logrus.FieldLogger) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", addr).Info("query server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
