package service

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"wordvec/internal/domain"
	"wordvec/internal/report"
)

// Report file names inside the report directory.
const (
	PredictionsFile = "predictions.csv"
	AnalogiesFile   = "analogies.csv"
	MorphologyFile  = "morphology.csv"
	SimilarityFile  = "similarity.csv"
	NLLChartFile    = "nll.html"
)

// WriteReports runs the configured evaluation queries and writes their
// results. Words missing from the vocabulary are logged and skipped.
func (s *Service) WriteReports() ([]string, error) {
	q, err := s.querier()
	if err != nil {
		return nil, err
	}
	rc := s.cfg.Report
	dir := s.ReportDir()
	var written []string
	write := func(name string, t *report.Table) error {
		path := filepath.Join(dir, name)
		if err := report.WriteFile(path, t); err != nil {
			return err
		}
		written = append(written, path)
		return nil
	}

	var preds []report.Prediction
	for _, target := range rc.Targets {
		ns, err := q.Predict(target)
		if s.skip(err, "prediction target", target) {
			continue
		}
		if err != nil {
			return written, err
		}
		preds = appendNeighbors(preds, target, ns)
	}
	if err := write(PredictionsFile, report.Predictions(preds)); err != nil {
		return written, err
	}

	var analogies []report.Prediction
	for _, a := range rc.Analogies {
		ns, err := q.Analogy(a[0], a[1], a[2])
		label := a[0] + ":" + a[1] + "::" + a[2]
		if s.skip(err, "analogy", label) {
			continue
		}
		if err != nil {
			return written, err
		}
		analogies = appendNeighbors(analogies, label, ns)
	}
	if err := write(AnalogiesFile, report.Predictions(analogies)); err != nil {
		return written, err
	}

	if len(rc.SuffixPairs) > 0 {
		delta, err := q.Delta(rc.SuffixPairs)
		switch {
		case errors.Is(err, domain.ErrUnknownToken):
			s.log.WithError(err).Warn("suffix pairs unusable, skipping morphology report")
		case err != nil:
			return written, err
		default:
			var morph []report.Prediction
			for _, w := range rc.MorphologyWords {
				ns, err := q.Shift(delta, w)
				if s.skip(err, "morphology word", w) {
					continue
				}
				if err != nil {
					return written, err
				}
				morph = appendNeighbors(morph, w, ns)
			}
			if err := write(MorphologyFile, report.Predictions(morph)); err != nil {
				return written, err
			}
		}
	}

	if rc.IntrinsicPath != "" {
		scores, err := s.intrinsic(rc.IntrinsicPath)
		if err != nil {
			return written, err
		}
		if err := write(SimilarityFile, report.Similarities(scores)); err != nil {
			return written, err
		}
	}

	if cps := s.Checkpoints(); len(cps) > 0 {
		path := filepath.Join(dir, NLLChartFile)
		if err := report.WriteNLLChart(path, cps, s.cfg.Trainer.CheckpointInterval); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (s *Service) intrinsic(path string) ([]report.Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	pairs, err := report.ReadPairs(f)
	if err != nil {
		return nil, err
	}
	scores := make([]report.Score, 0, len(pairs))
	for _, p := range pairs {
		sim, err := s.Similarity(p.Word1, p.Word2)
		if s.skip(err, "intrinsic pair", p.ID) {
			continue
		}
		if err != nil {
			return nil, err
		}
		scores = append(scores, report.Score{ID: p.ID, Similarity: sim})
	}
	return scores, nil
}

// skip reports whether err is an unknown word that should be logged and skipped.
func (s *Service) skip(err error, what, name string) bool {
	if !errors.Is(err, domain.ErrUnknownToken) {
		return false
	}
	s.log.WithFields(logrus.Fields{"item": strings.TrimSpace(name), "reason": err}).Warn("skipping " + what)
	return true
}

func appendNeighbors(rows []report.Prediction, target string, ns []domain.Neighbor) []report.Prediction {
	for _, n := range ns {
		rows = append(rows, report.Prediction{Target: target, Word: n.Word, Score: n.Score})
	}
	return rows
}
