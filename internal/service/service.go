package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"wordvec/internal/cache"
	"wordvec/internal/config"
	"wordvec/internal/domain"
	"wordvec/internal/embedding"
	"wordvec/internal/embedding/sgns"
	"wordvec/internal/model"
	"wordvec/internal/query"
	"wordvec/internal/sampling"
	"wordvec/internal/tokenizer"
	"wordvec/internal/vectorstore"
	"wordvec/internal/vocab"
)

var (
	ErrNotIngested = errors.New("no corpus ingested")
	ErrNotTrained  = errors.New("no trained model indexed")
)

// Service wires corpus ingestion, training, persistence and querying.
type Service struct {
	cfg      *config.AppConfig
	tok      domain.Tokenizer
	store    vectorstore.Storage
	cache    *cache.Store
	observer sgns.Observer
	log      logrus.FieldLogger

	mu          sync.RWMutex
	vocab       *vocab.Vocabulary
	corpus      []int
	weights     *embedding.Matrices
	checkpoints []domain.Checkpoint
	query       *query.Service
}

var _ domain.QueryService = (*Service)(nil)

type Option func(*Service)

func WithLogger(l logrus.FieldLogger) Option { return func(s *Service) { s.log = l } }

// WithCache enables the content-addressed corpus cache.
func WithCache(c *cache.Store) Option { return func(s *Service) { s.cache = c } }

func WithObserver(o sgns.Observer) Option { return func(s *Service) { s.observer = o } }

func New(cfg *config.AppConfig, tok domain.Tokenizer, store vectorstore.Storage, opts ...Option) *Service {
	s := &Service{cfg: cfg, tok: tok, store: store, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest reads, tokenizes and encodes the corpus at path.
func (s *Service) Ingest(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"path": path, "bytes": len(data)}).Info("corpus loaded")
	return s.IngestBytes(data)
}

// IngestBytes builds the vocabulary and encoded corpus from raw corpus file
// contents, reusing a cache entry when one matches.
func (s *Service) IngestBytes(data []byte) error {
	key := cache.Key(data, cache.Params{
		Format:    s.cfg.Corpus.Format,
		MinCount:  s.cfg.Vocab.MinCount,
		Stopwords: s.cfg.Corpus.StopwordsEnabled(),
	})
	log := s.log.WithField("key", key[:12])
	if s.cache != nil {
		entry, ok, err := s.cache.Get(key)
		switch {
		case err != nil:
			log.WithError(err).Warn("corpus cache unreadable, rebuilding")
		case ok:
			log.Info("corpus cache hit")
			s.setCorpus(vocab.FromCounts(entry.Tokens, entry.Counts), entry.Corpus)
			return nil
		}
	}

	text, err := tokenizer.Parse(data, s.cfg.Corpus.Format)
	if err != nil {
		return err
	}
	tokens := s.tok.Tokens(text)
	v, corpus := vocab.Build(tokens, s.cfg.Vocab.MinCount)
	log.WithFields(logrus.Fields{"tokens": len(tokens), "vocabulary": v.Len()}).Info("corpus encoded")
	s.setCorpus(v, corpus)

	if s.cache != nil {
		entry := &cache.Entry{Tokens: v.Tokens(), Counts: v.Counts(), Corpus: corpus}
		if err := s.cache.Put(key, entry); err != nil {
			log.WithError(err).Warn("corpus cache write failed")
		}
	}
	return nil
}

func (s *Service) setCorpus(v *vocab.Vocabulary, corpus []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vocab = v
	s.corpus = corpus
	s.weights = nil
	s.query = nil
	s.checkpoints = nil
}

// Vocabulary returns the active vocabulary, or nil before ingestion.
func (s *Service) Vocabulary() *vocab.Vocabulary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vocab
}

func (s *Service) Checkpoints() []domain.Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Checkpoint(nil), s.checkpoints...)
}

// NewSampler builds the configured negative sampler over the active vocabulary.
func (s *Service) NewSampler() (domain.Sampler, error) {
	v := s.Vocabulary()
	if v == nil {
		return nil, ErrNotIngested
	}
	sc := s.cfg.Sampling
	var (
		sampler domain.Sampler
		err     error
	)
	switch sc.Method {
	case "table", "":
		var t *sampling.Table
		t, err = sampling.NewTable(v.Counts(), sc.Exponent, sc.TableSize)
		sampler = t
	case "alias":
		var a *sampling.Alias
		a, err = sampling.NewAlias(v.Counts(), sc.Exponent)
		sampler = a
	default:
		return nil, fmt.Errorf("unknown sampling method: %s", sc.Method)
	}
	if err != nil {
		return nil, err
	}
	return sampler, nil
}

// Train loads persisted weights when preloading is enabled and a model
// exists; otherwise it trains from scratch. With model.resume set, the loaded
// weights are trained further. Trained weights are saved together with the
// whole NLL history, which Train returns.
func (s *Service) Train(ctx context.Context) ([]domain.Checkpoint, error) {
	s.mu.RLock()
	v, corpus := s.vocab, s.corpus
	s.mu.RUnlock()
	if v == nil {
		return nil, ErrNotIngested
	}
	tc := s.cfg.Trainer
	dir := s.cfg.Model.Dir

	var (
		loaded  *embedding.Matrices
		history []domain.Checkpoint
	)
	if s.cfg.Model.Preload && model.Exists(dir) {
		w, err := model.Load(dir, v.Len(), tc.HiddenSize)
		if err != nil {
			return nil, fmt.Errorf("preload model: %w", err)
		}
		if history, err = model.LoadCheckpoints(dir); err != nil {
			return nil, fmt.Errorf("preload model: %w", err)
		}
		if !s.cfg.Model.Resume {
			s.log.WithFields(logrus.Fields{"dir": dir, "checkpoints": len(history)}).Info("model loaded")
			s.mu.Lock()
			s.weights = w
			s.checkpoints = history
			s.mu.Unlock()
			return history, nil
		}
		s.log.WithFields(logrus.Fields{"dir": dir, "checkpoints": len(history)}).Info("resuming training from saved model")
		loaded = w
	}

	sampler, err := s.NewSampler()
	if err != nil {
		return nil, err
	}
	opts := []sgns.Option{sgns.WithLogger(s.log)}
	if loaded != nil {
		opts = append(opts, sgns.WithWeights(loaded))
	}
	if s.observer != nil {
		opts = append(opts, sgns.WithObserver(s.observer))
	}
	if tc.SaveEveryEpoch {
		opts = append(opts, sgns.WithEpochHook(func(epoch int, w *embedding.Matrices) error {
			s.log.WithField("epoch", epoch).Debug("saving model")
			return model.Save(dir, w)
		}))
	}
	trainer, err := sgns.NewTrainer(corpus, v, sampler, sgns.Config{
		HiddenSize:         tc.HiddenSize,
		Window:             tc.Window,
		Epochs:             tc.Epochs,
		Negatives:          tc.Negatives,
		LearningRate:       tc.LearningRate,
		CheckpointInterval: tc.CheckpointInterval,
		Seed:               tc.Seed,
		Workers:            tc.Workers,
	}, opts...)
	if err != nil {
		return nil, err
	}
	cps, err := trainer.Train(ctx)
	cps = append(history, cps...)
	s.mu.Lock()
	s.checkpoints = cps
	s.mu.Unlock()
	if err != nil {
		return cps, err
	}
	if err := model.Save(dir, trainer.Weights()); err != nil {
		return cps, fmt.Errorf("save model: %w", err)
	}
	if err := model.SaveCheckpoints(dir, cps); err != nil {
		return cps, fmt.Errorf("save checkpoints: %w", err)
	}
	s.log.WithFields(logrus.Fields{"dir": dir, "iterations": trainer.Iterations()}).Info("model saved")
	s.mu.Lock()
	s.weights = trainer.Weights()
	s.mu.Unlock()
	return cps, nil
}

// Index loads the trained embeddings into the vector store and enables queries.
func (s *Service) Index() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vocab == nil {
		return ErrNotIngested
	}
	if s.weights == nil {
		return ErrNotTrained
	}
	if err := s.store.Clear(); err != nil {
		return err
	}
	q, err := query.New(s.vocab, s.weights, s.store)
	if err != nil {
		return err
	}
	s.query = q
	return nil
}

// Run ingests the configured corpus, trains or preloads, and indexes.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Ingest(s.cfg.Corpus.Path); err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	if _, err := s.Train(ctx); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	return s.Index()
}

func (s *Service) querier() (*query.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.query == nil {
		return nil, ErrNotTrained
	}
	return s.query, nil
}

func (s *Service) Predict(word string) ([]domain.Neighbor, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return q.Predict(word)
}

func (s *Service) Analogy(a, b, c string) ([]domain.Neighbor, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return q.Analogy(a, b, c)
}

func (s *Service) Morphology(pairs [][2]string, word string) ([]domain.Neighbor, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	return q.Morphology(pairs, word)
}

func (s *Service) Similarity(a, b string) (float64, error) {
	q, err := s.querier()
	if err != nil {
		return 0, err
	}
	return q.Similarity(a, b)
}

// ReportDir returns where WriteReports puts its files.
func (s *Service) ReportDir() string { return filepath.Clean(s.cfg.Report.Dir) }
