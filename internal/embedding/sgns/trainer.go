package sgns

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"wordvec/internal/domain"
	"wordvec/internal/embedding"
	"wordvec/internal/vocab"
)

// Config holds the SGNS hyperparameters.
type Config struct {
	HiddenSize         int
	Window             []int
	Epochs             int
	Negatives          int
	LearningRate       float64
	CheckpointInterval int
	Seed               uint64
	Workers            int
}

// DefaultConfig returns the reference hyperparameters.
func DefaultConfig() Config {
	return Config{
		HiddenSize:         100,
		Window:             []int{-2, -1, 1, 2},
		Epochs:             5,
		Negatives:          2,
		LearningRate:       0.05,
		CheckpointInterval: 10_000,
		Seed:               10,
		Workers:            1,
	}
}

// Observer receives training progress.
type Observer interface {
	Processed(n int)
	Checkpoint(c domain.Checkpoint)
}

// NumericalError reports the first weight row that became NaN or Inf.
type NumericalError struct {
	Matrix    string
	Row       int
	Epoch     int
	Position  int
	Iteration int
}

func (e *NumericalError) Error() string {
	return fmt.Sprintf("non-finite value in %s row %d (epoch %d, position %d, iteration %d)",
		e.Matrix, e.Row, e.Epoch, e.Position, e.Iteration)
}

func (e *NumericalError) Unwrap() error { return domain.ErrNumericalInstability }

// Option customizes a Trainer.
type Option func(*Trainer)

// WithLogger sets the logger used for progress reports.
func WithLogger(l logrus.FieldLogger) Option { return func(t *Trainer) { t.log = l } }

// WithObserver registers a progress observer.
func WithObserver(o Observer) Option { return func(t *Trainer) { t.observer = o } }

// WithWeights starts training from previously saved matrices.
func WithWeights(w *embedding.Matrices) Option { return func(t *Trainer) { t.weights = w } }

// WithEpochHook runs fn after every completed epoch, e.g. to persist the matrices.
func WithEpochHook(fn func(epoch int, w *embedding.Matrices) error) Option {
	return func(t *Trainer) { t.onEpoch = fn }
}

// Trainer runs skip-gram with negative sampling over an encoded corpus.
type Trainer struct {
	cfg       Config
	corpus    []int
	vocabSize int
	unk       int
	start     int
	end       int
	sampler   domain.Sampler
	weights   *embedding.Matrices
	rng       *rand.Rand
	log       logrus.FieldLogger
	observer  Observer
	onEpoch   func(int, *embedding.Matrices) error

	mu          sync.Mutex
	nll         float64
	processed   int
	iteration   int
	checkpoints []domain.Checkpoint
}

// NewTrainer validates the configuration against the corpus and prepares the
// weight matrices. It fails before any matrix is created or touched.
func NewTrainer(corpus []int, v *vocab.Vocabulary, sampler domain.Sampler, cfg Config, opts ...Option) (*Trainer, error) {
	if cfg.HiddenSize <= 0 {
		return nil, fmt.Errorf("hidden size must be positive, got %d", cfg.HiddenSize)
	}
	if cfg.Negatives < 0 || cfg.Epochs < 0 {
		return nil, errors.New("negatives and epochs must not be negative")
	}
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = DefaultConfig().CheckpointInterval
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if sampler == nil {
		return nil, errors.New("sampler is required")
	}
	start, end, err := validRange(cfg.Window, len(corpus))
	if err != nil {
		return nil, err
	}

	t := &Trainer{
		cfg:       cfg,
		corpus:    corpus,
		vocabSize: v.Len(),
		unk:       -1,
		start:     start,
		end:       end,
		sampler:   sampler,
		rng:       rand.New(rand.NewSource(cfg.Seed)),
		log:       logrus.StandardLogger(),
	}
	if idx, ok := v.UnknownIndex(); ok {
		t.unk = idx
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.weights != nil {
		if err := t.weights.Check(t.vocabSize, cfg.HiddenSize); err != nil {
			return nil, err
		}
	} else {
		w, err := embedding.NewRandom(t.vocabSize, cfg.HiddenSize, t.rng)
		if err != nil {
			return nil, err
		}
		t.weights = w
	}
	return t, nil
}

// validRange returns the half-open range of center positions for which every
// window offset stays inside the corpus.
func validRange(window []int, n int) (int, int, error) {
	if len(window) == 0 {
		return 0, 0, fmt.Errorf("%w: empty window", domain.ErrInvalidWindow)
	}
	left, right := 0, 0
	for _, o := range window {
		if o == 0 {
			return 0, 0, fmt.Errorf("%w: offset 0 is the center itself", domain.ErrInvalidWindow)
		}
		if -o > left {
			left = -o
		}
		if o > right {
			right = o
		}
	}
	if n < left+right+1 {
		return 0, 0, fmt.Errorf("%w: corpus of %d tokens is shorter than window span %d",
			domain.ErrInvalidWindow, n, left+right+1)
	}
	return left, n - right, nil
}

// Weights returns the matrices being trained.
func (t *Trainer) Weights() *embedding.Matrices { return t.weights }

// Checkpoints returns the NLL checkpoints recorded so far.
func (t *Trainer) Checkpoints() []domain.Checkpoint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Checkpoint(nil), t.checkpoints...)
}

// Iterations returns how many center positions have been processed.
func (t *Trainer) Iterations() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.iteration
}

// Train runs the configured number of epochs, each over the whole corpus in
// order, and returns the recorded checkpoints.
func (t *Trainer) Train(ctx context.Context) ([]domain.Checkpoint, error) {
	var locks rowLocks = noLocks{}
	if t.cfg.Workers > 1 {
		locks = newStripedLocks(0)
	}
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		t.log.WithField("epoch", epoch).Info("epoch started")
		var err error
		if t.cfg.Workers > 1 {
			err = t.runParallel(ctx, epoch, locks)
		} else {
			err = t.run(ctx, epoch, t.start, t.end, t.rng, newStepper(t.weights, t.cfg.LearningRate, locks), true)
		}
		if err != nil {
			return t.Checkpoints(), err
		}
		if t.onEpoch != nil {
			if err := t.onEpoch(epoch, t.weights); err != nil {
				return t.Checkpoints(), fmt.Errorf("epoch %d hook: %w", epoch, err)
			}
		}
	}
	return t.Checkpoints(), nil
}

func (t *Trainer) runParallel(ctx context.Context, epoch int, locks rowLocks) error {
	g, ctx := errgroup.WithContext(ctx)
	span := t.end - t.start
	workers := t.cfg.Workers
	if workers > span {
		workers = span
	}
	for w := 0; w < workers; w++ {
		lo := t.start + span*w/workers
		hi := t.start + span*(w+1)/workers
		rng := rand.New(rand.NewSource(t.cfg.Seed + uint64(epoch*workers+w+1)))
		st := newStepper(t.weights, t.cfg.LearningRate, locks)
		report := w == 0
		g.Go(func() error { return t.run(ctx, epoch, lo, hi, rng, st, report) })
	}
	return g.Wait()
}

// run processes center positions [lo, hi).
func (t *Trainer) run(ctx context.Context, epoch, lo, hi int, rng *rand.Rand, st *stepper, report bool) error {
	contexts := make([]int, len(t.cfg.Window))
	negatives := make([][]int, len(t.cfg.Window))
	for k := range negatives {
		negatives[k] = make([]int, t.cfg.Negatives)
	}
	mark := 0.0
	for i := lo; i < hi; i++ {
		if (i-lo)%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if report && float64(i-lo)/float64(hi-lo) >= mark+0.1 {
			mark += 0.1
			t.log.WithFields(logrus.Fields{"epoch": epoch, "progress": fmt.Sprintf("%.1f", mark)}).Debug("training progress")
		}

		center := t.corpus[i]
		if center == t.unk {
			continue
		}
		for k, o := range t.cfg.Window {
			contexts[k] = t.corpus[i+o]
		}
		for k, c := range contexts {
			for j := range negatives[k] {
				n, err := t.sampler.Sample(rng, c)
				if err != nil {
					return fmt.Errorf("position %d: %w", i, err)
				}
				negatives[k][j] = n
			}
		}
		nll, err := st.step(center, contexts, negatives)
		if err != nil {
			var re *rowError
			if errors.As(err, &re) {
				return &NumericalError{
					Matrix:    matrixNames[re.matrix],
					Row:       re.row,
					Epoch:     epoch,
					Position:  i,
					Iteration: t.Iterations() + 1,
				}
			}
			return err
		}
		t.record(epoch, nll)
	}
	return nil
}

func (t *Trainer) record(epoch int, nll float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.iteration++
	t.processed++
	t.nll += nll
	if t.observer != nil {
		t.observer.Processed(1)
	}
	if t.processed < t.cfg.CheckpointInterval {
		return
	}
	cp := domain.Checkpoint{Epoch: epoch, Processed: t.iteration, NLL: t.nll}
	t.checkpoints = append(t.checkpoints, cp)
	t.processed = 0
	t.nll = 0
	if t.observer != nil {
		t.observer.Checkpoint(cp)
	}
	t.log.WithFields(logrus.Fields{"epoch": cp.Epoch, "processed": cp.Processed, "nll": cp.NLL}).Info("negative log-likelihood")
}
