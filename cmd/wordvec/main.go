package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"wordvec/internal/cache"
	"wordvec/internal/config"
	"wordvec/internal/domain"
	"wordvec/internal/logging"
	"wordvec/internal/metrics"
	"wordvec/internal/server"
	"wordvec/internal/service"
	"wordvec/internal/tokenizer"
	"wordvec/internal/tui"
	"wordvec/internal/vectorstore"
	"wordvec/internal/vectorstore/memory"
	"wordvec/internal/vectorstore/qdrant"
)

const usage = `Usage: wordvec [--config=config.yaml] [--corpus=path] <command>

Commands:
  train    train embeddings from the corpus and save them
  query    interactive query console (default)
  serve    HTTP and WebSocket query server
  report   write prediction, analogy, similarity and loss reports
`

func main() {
	_ = godotenv.Load()

	var cfgPath, corpusPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/wordvec/config.yaml if not provided)")
	flag.StringVar(&corpusPath, "corpus", "", "Corpus file, overrides corpus.path")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()
	command := "query"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}
	switch command {
	case "train", "query", "serve", "report":
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err := run(command, cfgPath, corpusPath); err != nil {
		fmt.Fprintf(os.Stderr, "wordvec %s: %v\n", command, err)
		os.Exit(1)
	}
}

func run(command, cfgPath, corpusPath string) error {
	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if corpusPath != "" {
		cfg.Corpus.Path = corpusPath
	}
	if lvl := os.Getenv("WORDVEC_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)

	if command == "train" {
		// train always trains; it only reads a saved model to resume from it
		cfg.Model.Preload = cfg.Model.Resume
	}

	var st vectorstore.Storage
	switch cfg.VectorStore.Type {
	case "memory", "":
		st = memory.NewStorage()
	case "qdrant":
		if cfg.VectorStore.Qdrant == nil {
			return fmt.Errorf("qdrant config missing")
		}
		apiKey := cfg.VectorStore.Qdrant.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("QDRANT_API_KEY")
		}
		st = qdrant.NewStorage(qdrant.Config{
			URL:        cfg.VectorStore.Qdrant.URL,
			APIKey:     apiKey,
			Collection: cfg.VectorStore.Qdrant.Collection,
			Timeout:    time.Duration(cfg.VectorStore.Qdrant.TimeoutSecs) * time.Second,
		})
	default:
		return fmt.Errorf("unknown vector store: %s", cfg.VectorStore.Type)
	}

	var tok domain.Tokenizer = tokenizer.New()
	if !cfg.Corpus.StopwordsEnabled() {
		tok = tokenizer.WithoutStopwords()
	}

	m := metrics.New()
	opts := []service.Option{service.WithLogger(log), service.WithObserver(m)}
	if cfg.Corpus.UseCache {
		c, err := cache.Open(filepath.Join(cfg.Corpus.CacheDir, "corpus.db"))
		if err != nil {
			return fmt.Errorf("corpus cache: %w", err)
		}
		defer c.Close()
		opts = append(opts, service.WithCache(c))
	}
	svc := service.New(cfg, tok, st, opts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := svc.Run(ctx); err != nil {
		return err
	}

	switch command {
	case "train":
		log.WithFields(logrus.Fields{"dir": cfg.Model.Dir, "checkpoints": len(svc.Checkpoints())}).Info("training finished")
	case "report":
		files, err := svc.WriteReports()
		if err != nil {
			return fmt.Errorf("report: %w", err)
		}
		for _, f := range files {
			log.WithField("file", f).Info("report written")
		}
	case "serve":
		h := server.Handler(server.Dependencies{Query: svc, Metrics: m, Log: log})
		if err := server.ListenAndServe(ctx, cfg.Server.Addr, h, log); err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case "query":
		summary := fmt.Sprintf("vocabulary %d words, %d dimensions, %s store",
			svc.Vocabulary().Len(), cfg.Trainer.HiddenSize, cfg.VectorStore.Type)
		if _, err := tea.NewProgram(tui.New(svc, summary)).Run(); err != nil {
			return err
		}
	}
	return nil
}
