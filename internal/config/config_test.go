package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Vocab.MinCount != 50 || cfg.Sampling.TableSize != 100_000_000 || cfg.Sampling.Exponent != 0.75 {
		t.Errorf("unexpected vocab/sampling defaults: %+v %+v", cfg.Vocab, cfg.Sampling)
	}
	tr := cfg.Trainer
	if tr.HiddenSize != 100 || tr.Epochs != 5 || tr.Negatives != 2 || tr.LearningRate != 0.05 || tr.CheckpointInterval != 10_000 {
		t.Errorf("unexpected trainer defaults: %+v", tr)
	}
	if !reflect.DeepEqual(tr.Window, []int{-2, -1, 1, 2}) {
		t.Errorf("Window = %v", tr.Window)
	}
	if cfg.VectorStore.Type != "memory" || !cfg.Corpus.UseCache {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
trainer:
  hidden_size: 16
  window: [-1, 1]
vector_store:
  type: qdrant
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Trainer.HiddenSize != 16 || !reflect.DeepEqual(cfg.Trainer.Window, []int{-1, 1}) {
		t.Errorf("explicit values lost: %+v", cfg.Trainer)
	}
	if cfg.Trainer.Epochs != 5 || cfg.Sampling.Method != "table" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	q := cfg.VectorStore.Qdrant
	if q == nil || q.URL != "http://localhost:6333" || q.Collection != "wordvec" || q.TimeoutSecs != 15 {
		t.Errorf("qdrant defaults = %+v", q)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	want := defaultConfig()
	want.Trainer.Workers = 4
	want.Report.Analogies = [][3]string{{"a", "b", "c"}}
	if err := Save(path, want); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("trainer: [oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Errorf("Load() accepted invalid YAML")
	}
}

func TestStopwordsDefault(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want bool
	}{
		{"Key omitted", "vocab:\n  min_count: 5\n", true},
		{"Explicitly on", "corpus:\n  stopwords: true\n", true},
		{"Explicitly off", "corpus:\n  stopwords: false\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.yaml), 0o644); err != nil {
				t.Fatal(err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got := cfg.Corpus.StopwordsEnabled(); got != tt.want {
				t.Errorf("StopwordsEnabled() = %v, want %v", got, tt.want)
			}
		})
	}
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Corpus.StopwordsEnabled() {
		t.Errorf("defaults disable stopwords")
	}
}
