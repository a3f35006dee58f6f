package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CorpusConfig locates the training corpus and its token cache.
type CorpusConfig struct {
	Path      string `yaml:"path"`
	Format    string `yaml:"format"`
	Stopwords *bool  `yaml:"stopwords,omitempty"`
	CacheDir  string `yaml:"cache_dir"`
	UseCache  bool   `yaml:"use_cache"`
}

// StopwordsEnabled reports whether stopwords are removed while tokenizing.
func (c CorpusConfig) StopwordsEnabled() bool { return c.Stopwords == nil || *c.Stopwords }

// VocabConfig controls vocabulary thresholding.
type VocabConfig struct {
	MinCount int `yaml:"min_count"`
}

// SamplingConfig selects the negative sampler.
type SamplingConfig struct {
	Method    string  `yaml:"method"`
	Exponent  float64 `yaml:"exponent"`
	TableSize int     `yaml:"table_size"`
}

// TrainerConfig holds the SGNS hyperparameters.
type TrainerConfig struct {
	HiddenSize         int     `yaml:"hidden_size"`
	Window             []int   `yaml:"window,flow"`
	Epochs             int     `yaml:"epochs"`
	Negatives          int     `yaml:"negatives"`
	LearningRate       float64 `yaml:"learning_rate"`
	CheckpointInterval int     `yaml:"checkpoint_interval"`
	Seed               uint64  `yaml:"seed"`
	Workers            int     `yaml:"workers"`
	SaveEveryEpoch     bool    `yaml:"save_every_epoch"`
}

// ModelConfig locates persisted weight matrices. Resume continues training
// from a preloaded model instead of only loading it.
type ModelConfig struct {
	Dir     string `yaml:"dir"`
	Preload bool   `yaml:"preload"`
	Resume  bool   `yaml:"resume"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ReportConfig drives the evaluation reports written after training.
type ReportConfig struct {
	Dir             string      `yaml:"dir"`
	Targets         []string    `yaml:"targets"`
	Analogies       [][3]string `yaml:"analogies"`
	SuffixPairs     [][2]string `yaml:"suffix_pairs"`
	MorphologyWords []string    `yaml:"morphology_words"`
	IntrinsicPath   string      `yaml:"intrinsic_path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Corpus      CorpusConfig      `yaml:"corpus"`
	Vocab       VocabConfig       `yaml:"vocab"`
	Sampling    SamplingConfig    `yaml:"sampling"`
	Trainer     TrainerConfig     `yaml:"trainer"`
	Model       ModelConfig       `yaml:"model"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Report      ReportConfig      `yaml:"report"`
	Server      ServerConfig      `yaml:"server"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/wordvec/config.yaml.
// If neither exists, it writes defaults to ~/.config/wordvec/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "wordvec", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Corpus:      CorpusConfig{Path: "unlabeledTrainData.tsv", Format: "tsv", UseCache: true},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Model:       ModelConfig{Preload: true},
		Report: ReportConfig{
			Targets: []string{"good", "bad", "scary", "funny"},
			Analogies: [][3]string{
				{"son", "daughter", "man"},
				{"thousand", "thousands", "hundred"},
				{"amusing", "fun", "scary"},
				{"terrible", "bad", "amazing"},
			},
			SuffixPairs: [][2]string{
				{"stars", "star"}, {"types", "type"}, {"ships", "ship"},
				{"values", "value"}, {"walls", "wall"}, {"spoilers", "spoiler"},
			},
			MorphologyWords: []string{"techniques", "sons", "secrets"},
		},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Corpus.Format == "" {
		cfg.Corpus.Format = "tsv"
	}
	if cfg.Corpus.Stopwords == nil {
		on := true
		cfg.Corpus.Stopwords = &on
	}
	if cfg.Corpus.CacheDir == "" {
		cfg.Corpus.CacheDir = filepath.Join("data", "cache")
	}
	if cfg.Vocab.MinCount == 0 {
		cfg.Vocab.MinCount = 50
	}
	if cfg.Sampling.Method == "" {
		cfg.Sampling.Method = "table"
	}
	if cfg.Sampling.Exponent == 0 {
		cfg.Sampling.Exponent = 0.75
	}
	if cfg.Sampling.TableSize == 0 {
		cfg.Sampling.TableSize = 100_000_000
	}
	t := &cfg.Trainer
	if t.HiddenSize == 0 {
		t.HiddenSize = 100
	}
	if len(t.Window) == 0 {
		t.Window = []int{-2, -1, 1, 2}
	}
	if t.Epochs == 0 {
		t.Epochs = 5
	}
	if t.Negatives == 0 {
		t.Negatives = 2
	}
	if t.LearningRate == 0 {
		t.LearningRate = 0.05
	}
	if t.CheckpointInterval == 0 {
		t.CheckpointInterval = 10_000
	}
	if t.Seed == 0 {
		t.Seed = 10
	}
	if t.Workers == 0 {
		t.Workers = 1
	}
	if cfg.Model.Dir == "" {
		cfg.Model.Dir = filepath.Join("data", "model")
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "wordvec"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.Report.Dir == "" {
		cfg.Report.Dir = "reports"
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
}
