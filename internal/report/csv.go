package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
)

// Table is a CSV document: a header row and data rows.
type Table struct {
	Titles []string
	Rows   [][]any
}

// Prediction is one neighbour of a target word.
type Prediction struct {
	Target string
	Word   string
	Score  float64
}

// Pair is one row of an intrinsic similarity test.
type Pair struct {
	ID    string
	Word1 string
	Word2 string
}

// Score is the model similarity for the pair with the same ID.
type Score struct {
	ID         string
	Similarity float64
}

func Predictions(rows []Prediction) *Table {
	t := &Table{Titles: []string{"target_word", "similar_word", "similar_score"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.Target, r.Word, r.Score})
	}
	return t
}

func Similarities(rows []Score) *Table {
	t := &Table{Titles: []string{"id", "similarity"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []any{r.ID, r.Similarity})
	}
	return t
}

// Encode writes t to w with '\n' line endings.
func Encode(w io.Writer, t *Table) error {
	if t == nil {
		return errors.New("nil table")
	}
	cw := csv.NewWriter(w)
	if len(t.Titles) > 0 {
		if err := cw.Write(t.Titles); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		rec := make([]string, len(row))
		for i, v := range row {
			rec[i] = toString(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile encodes t into path, creating parent directories.
func WriteFile(path string, t *Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	if err := Encode(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadPairs parses a tab separated intrinsic test with a header row and
// columns id, word1, word2.
func ReadPairs(r io.Reader) ([]Pair, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	pairs := make([]Pair, 0, len(records)-1)
	for i, rec := range records[1:] {
		if len(rec) < 3 {
			return nil, fmt.Errorf("line %d: want 3 columns, got %d", i+2, len(rec))
		}
		pairs = append(pairs, Pair{ID: rec[0], Word1: rec[1], Word2: rec[2]})
	}
	return pairs, nil
}

func toString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
