package model

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"

	"wordvec/internal/domain"
	"wordvec/internal/embedding"
)

// File names of the persisted matrices inside a model directory.
const (
	InFile          = "w_in.mat"
	OutFile         = "w_out.mat"
	CheckpointsFile = "checkpoints.json"
)

// Save writes both matrices to dir. Each file holds gonum's binary matrix
// encoding: a header with the row and column counts followed by the values in
// row-major order. Files are written to a temporary name and renamed.
func Save(dir string, w *embedding.Matrices) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := writeDense(filepath.Join(dir, InFile), w.In); err != nil {
		return fmt.Errorf("save W_in: %w", err)
	}
	if err := writeDense(filepath.Join(dir, OutFile), w.Out); err != nil {
		return fmt.Errorf("save W_out: %w", err)
	}
	return nil
}

// Load reads both matrices from dir and verifies they are vocabSize x hidden.
// Nothing is returned unless both matrices match.
func Load(dir string, vocabSize, hidden int) (*embedding.Matrices, error) {
	in, err := readDense(filepath.Join(dir, InFile))
	if err != nil {
		return nil, fmt.Errorf("load W_in: %w", err)
	}
	out, err := readDense(filepath.Join(dir, OutFile))
	if err != nil {
		return nil, fmt.Errorf("load W_out: %w", err)
	}
	w := &embedding.Matrices{In: in, Out: out}
	if err := w.Check(vocabSize, hidden); err != nil {
		return nil, err
	}
	return w, nil
}

// Exists reports whether dir holds a saved model.
func Exists(dir string) bool {
	for _, name := range []string{InFile, OutFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			return false
		}
	}
	return true
}

// SaveCheckpoints writes the NLL history of the model in dir.
func SaveCheckpoints(dir string, cps []domain.Checkpoint) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if cps == nil {
		cps = []domain.Checkpoint{}
	}
	data, err := json.MarshalIndent(cps, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(dir, CheckpointsFile)
	if err := os.WriteFile(path+".tmp", data, 0o644); err != nil {
		return err
	}
	return os.Rename(path+".tmp", path)
}

// LoadCheckpoints reads the NLL history saved with the model in dir. A model
// saved without history yields no checkpoints and no error.
func LoadCheckpoints(dir string) ([]domain.Checkpoint, error) {
	data, err := os.ReadFile(filepath.Join(dir, CheckpointsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cps []domain.Checkpoint
	if err := json.Unmarshal(data, &cps); err != nil {
		return nil, fmt.Errorf("load checkpoints: %w", err)
	}
	return cps, nil
}

func writeDense(path string, d *mat.Dense) error {
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if _, err := d.MarshalBinaryTo(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func readDense(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var d mat.Dense
	if _, err := d.UnmarshalBinaryFrom(bufio.NewReader(f)); err != nil {
		if errors.Is(err, mat.ErrShape) || errors.Is(err, mat.ErrZeroLength) {
			return nil, fmt.Errorf("%w: %v", domain.ErrDimensionMismatch, err)
		}
		return nil, err
	}
	return &d, nil
}
