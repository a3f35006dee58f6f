package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"gonum.org/v1/gonum/mat"

	"wordvec/internal/cache"
	"wordvec/internal/config"
	"wordvec/internal/domain"
	"wordvec/internal/model"
	"wordvec/internal/sampling"
	"wordvec/internal/tokenizer"
	"wordvec/internal/vectorstore/memory"
	"wordvec/internal/vocab"
)

var words = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta"}

func corpus() []byte {
	var b strings.Builder
	for i := 0; i < 30; i++ {
		b.WriteString(strings.Join(words, " "))
		b.WriteString(" ")
		if i == 10 {
			b.WriteString("rare ")
		}
	}
	return []byte(b.String())
}

func testConfig(t *testing.T) *config.AppConfig {
	t.Helper()
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("config.Load() error = %v", err)
	}
	cfg.Corpus.Format = tokenizer.FormatText
	off := false
	cfg.Corpus.Stopwords = &off
	cfg.Vocab.MinCount = 1
	cfg.Sampling.TableSize = 1000
	cfg.Trainer.HiddenSize = 8
	cfg.Trainer.Window = []int{-1, 1}
	cfg.Trainer.Epochs = 2
	cfg.Trainer.CheckpointInterval = 20
	cfg.Model.Dir = filepath.Join(dir, "model")
	cfg.Report.Dir = filepath.Join(dir, "reports")
	cfg.Report.Targets = []string{"alpha", "missing"}
	cfg.Report.Analogies = [][3]string{{"alpha", "beta", "gamma"}}
	cfg.Report.SuffixPairs = [][2]string{{"beta", "alpha"}}
	cfg.Report.MorphologyWords = []string{"gamma", "missing"}
	cfg.Report.IntrinsicPath = filepath.Join(dir, "intrinsic.tsv")
	tsv := "id\tword1\tword2\n1\talpha\tbeta\n2\talpha\tnope\n"
	if err := os.WriteFile(cfg.Report.IntrinsicPath, []byte(tsv), 0o644); err != nil {
		t.Fatal(err)
	}
	return cfg
}

func newService(t *testing.T, cfg *config.AppConfig, opts ...Option) (*Service, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	opts = append([]Option{WithLogger(logger)}, opts...)
	return New(cfg, tokenizer.WithoutStopwords(), memory.NewStorage(), opts...), hook
}

func TestEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	svc, _ := newService(t, cfg)
	if err := svc.IngestBytes(corpus()); err != nil {
		t.Fatalf("IngestBytes() error = %v", err)
	}
	v := svc.Vocabulary()
	if v.Len() != 8 {
		t.Fatalf("vocabulary size = %d, want 8", v.Len())
	}
	if _, ok := v.UnknownIndex(); !ok {
		t.Fatalf("rare word did not produce %s", vocab.Unknown)
	}

	cps, err := svc.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	// 211 tokens, 209 full windows, one <UNK> center, two epochs.
	if len(cps) != 2*208/20 {
		t.Errorf("checkpoints = %d, want %d", len(cps), 2*208/20)
	}
	if err := svc.Index(); err != nil {
		t.Fatalf("Index() error = %v", err)
	}
	got, err := svc.Predict("alpha")
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(got) != 7 {
		t.Errorf("Predict() returned %d results, want 7", len(got))
	}
	for _, n := range got {
		if n.Word == "alpha" {
			t.Errorf("Predict() returned the query word")
		}
	}

	files, err := svc.WriteReports()
	if err != nil {
		t.Fatalf("WriteReports() error = %v", err)
	}
	want := []string{PredictionsFile, AnalogiesFile, MorphologyFile, SimilarityFile, NLLChartFile}
	if len(files) != len(want) {
		t.Fatalf("WriteReports() wrote %v", files)
	}
	for i, name := range want {
		if filepath.Base(files[i]) != name {
			t.Errorf("file %d = %s, want %s", i, files[i], name)
		}
	}
	sim, err := os.ReadFile(filepath.Join(cfg.Report.Dir, SimilarityFile))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(sim)), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "1,") {
		t.Errorf("similarity.csv = %q", sim)
	}
	preds, _ := os.ReadFile(filepath.Join(cfg.Report.Dir, PredictionsFile))
	if n := strings.Count(string(preds), "\nalpha,"); n != 7 {
		t.Errorf("predictions.csv has %d alpha rows, want 7", n)
	}
}

func TestPreloadReusesSavedModel(t *testing.T) {
	cfg := testConfig(t)
	first, _ := newService(t, cfg)
	if err := first.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	if _, err := first.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if err := first.Index(); err != nil {
		t.Fatal(err)
	}
	want, _ := first.Similarity("alpha", "beta")

	second, _ := newService(t, cfg)
	if err := second.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	cps, err := second.Train(context.Background())
	if err != nil {
		t.Fatalf("preloading Train() error = %v", err)
	}
	if want := first.Checkpoints(); !reflect.DeepEqual(cps, want) {
		t.Errorf("preloaded checkpoints = %v, want %v", cps, want)
	}
	if err := second.Index(); err != nil {
		t.Fatal(err)
	}
	if got, _ := second.Similarity("alpha", "beta"); got != want {
		t.Errorf("preloaded similarity = %v, want %v", got, want)
	}

	cfg.Trainer.HiddenSize = 4
	third, _ := newService(t, cfg)
	if err := third.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	if _, err := third.Train(context.Background()); !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Errorf("Train() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestReportAfterPreloadPlotsSavedHistory(t *testing.T) {
	cfg := testConfig(t)
	trained, _ := newService(t, cfg)
	if err := trained.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	if _, err := trained.Train(context.Background()); err != nil {
		t.Fatalf("Train() error = %v", err)
	}

	reporter, _ := newService(t, cfg)
	if err := reporter.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	if _, err := reporter.Train(context.Background()); err != nil {
		t.Fatalf("preloading Train() error = %v", err)
	}
	if err := reporter.Index(); err != nil {
		t.Fatal(err)
	}
	if got, want := len(reporter.Checkpoints()), len(trained.Checkpoints()); got != want || got == 0 {
		t.Fatalf("preloaded checkpoints = %d, want %d", got, want)
	}
	files, err := reporter.WriteReports()
	if err != nil {
		t.Fatalf("WriteReports() error = %v", err)
	}
	if len(files) == 0 || filepath.Base(files[len(files)-1]) != NLLChartFile {
		t.Fatalf("WriteReports() wrote %v, want %s last", files, NLLChartFile)
	}
	if _, err := os.Stat(filepath.Join(cfg.Report.Dir, NLLChartFile)); err != nil {
		t.Errorf("chart missing: %v", err)
	}
}

func TestResumeContinuesTraining(t *testing.T) {
	cfg := testConfig(t)
	first, _ := newService(t, cfg)
	if err := first.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	initial, err := first.Train(context.Background())
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	v := first.Vocabulary()
	before, err := model.Load(cfg.Model.Dir, v.Len(), cfg.Trainer.HiddenSize)
	if err != nil {
		t.Fatalf("model.Load() error = %v", err)
	}

	cfg.Model.Resume = true
	resumed, _ := newService(t, cfg)
	if err := resumed.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	cps, err := resumed.Train(context.Background())
	if err != nil {
		t.Fatalf("resumed Train() error = %v", err)
	}
	if len(cps) != 2*len(initial) {
		t.Errorf("resumed history has %d checkpoints, want %d", len(cps), 2*len(initial))
	}
	if !reflect.DeepEqual(cps[:len(initial)], initial) {
		t.Errorf("resumed history does not start with the saved checkpoints")
	}

	after, err := model.Load(cfg.Model.Dir, v.Len(), cfg.Trainer.HiddenSize)
	if err != nil {
		t.Fatalf("model.Load() error = %v", err)
	}
	if mat.Equal(before.In, after.In) || mat.Equal(before.Out, after.Out) {
		t.Errorf("resumed training left the saved matrices unchanged")
	}
	saved, err := model.LoadCheckpoints(cfg.Model.Dir)
	if err != nil || len(saved) != len(cps) {
		t.Errorf("saved history = %d checkpoints, %v; want %d", len(saved), err, len(cps))
	}
}

func TestIngestLogsCorpus(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "corpus.txt")
	if err := os.WriteFile(path, corpus(), 0o644); err != nil {
		t.Fatal(err)
	}
	svc, hook := newService(t, cfg)
	if err := svc.Ingest(path); err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	for _, e := range hook.AllEntries() {
		if e.Message != "corpus loaded" {
			continue
		}
		if e.Data["path"] != path || e.Data["bytes"] != len(corpus()) {
			t.Errorf("corpus loaded fields = %v", e.Data)
		}
		if _, ok := e.Data["id"]; ok {
			t.Errorf("corpus loaded logs an unused id")
		}
		return
	}
	t.Errorf("no corpus loaded entry")
}

func TestIngestUsesCache(t *testing.T) {
	cfg := testConfig(t)
	store, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("cache.Open() error = %v", err)
	}
	defer store.Close()

	svc, hook := newService(t, cfg, WithCache(store))
	if err := svc.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	built := svc.Vocabulary().Tokens()
	if err := svc.IngestBytes(corpus()); err != nil {
		t.Fatal(err)
	}
	if hook.LastEntry() == nil || hook.LastEntry().Message != "corpus cache hit" {
		t.Fatalf("second ingest did not hit the cache")
	}
	cached := svc.Vocabulary().Tokens()
	if strings.Join(built, " ") != strings.Join(cached, " ") {
		t.Errorf("cached vocabulary = %v, want %v", cached, built)
	}

	hook.Reset()
	if err := svc.IngestBytes(append(corpus(), []byte(" alpha")...)); err != nil {
		t.Fatal(err)
	}
	for _, e := range hook.AllEntries() {
		if e.Message == "corpus cache hit" {
			t.Errorf("changed corpus hit the cache")
		}
	}
}

func TestNotReady(t *testing.T) {
	svc, _ := newService(t, testConfig(t))
	if _, err := svc.Train(context.Background()); !errors.Is(err, ErrNotIngested) {
		t.Errorf("Train() error = %v, want ErrNotIngested", err)
	}
	if err := svc.Index(); !errors.Is(err, ErrNotIngested) {
		t.Errorf("Index() error = %v, want ErrNotIngested", err)
	}
	if _, err := svc.Predict("alpha"); !errors.Is(err, ErrNotTrained) {
		t.Errorf("Predict() error = %v, want ErrNotTrained", err)
	}
	if _, err := svc.WriteReports(); !errors.Is(err, ErrNotTrained) {
		t.Errorf("WriteReports() error = %v, want ErrNotTrained", err)
	}
}

func TestNewSampler(t *testing.T) {
	tests := []struct {
		method  string
		wantErr bool
	}{
		{"table", false},
		{"alias", false},
		{"bogus", true},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Sampling.Method = tt.method
			svc, _ := newService(t, cfg)
			if err := svc.IngestBytes(corpus()); err != nil {
				t.Fatal(err)
			}
			s, err := svc.NewSampler()
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewSampler() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.method == "alias" {
				if _, ok := s.(*sampling.Alias); !ok {
					t.Errorf("NewSampler() = %T, want *sampling.Alias", s)
				}
			}
		})
	}
}
