package cache

import (
	"bytes"
	"compress/gzip"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/glebarez/sqlite" // registers the pure Go "sqlite" driver
)

// formatVersion changes whenever the tokenizer or the entry layout changes,
// so stale entries are never matched.
const formatVersion = "wordvec-corpus-v1"

// Params are the settings that shape an encoded corpus.
type Params struct {
	Format    string
	MinCount  int
	Stopwords bool
}

// Entry is a tokenized, thresholded and encoded corpus.
type Entry struct {
	Tokens []string `json:"tokens"`
	Counts []int    `json:"counts"`
	Corpus []int    `json:"corpus"`
}

// Key addresses an entry by the corpus content and the params used to build it.
func Key(corpus []byte, p Params) string {
	h := sha1.New()
	fmt.Fprintf(h, "%s\x00%s\x00%d\x00%t\x00", formatVersion, p.Format, p.MinCount, p.Stopwords)
	h.Write(corpus)
	return hex.EncodeToString(h.Sum(nil))
}

// Store keeps gzip-compressed entries in a SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the cache database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	createTableSQL := `CREATE TABLE IF NOT EXISTS corpus_cache (
		"key" TEXT PRIMARY KEY,
		"payload" BLOB NOT NULL,
		"created_at" DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create corpus_cache table: %w", err)
	}
	return &Store{db: db}, nil
}

// Get returns the entry stored under key. ok is false on a miss.
func (s *Store) Get(key string) (entry *Entry, ok bool, err error) {
	var payload []byte
	err = s.db.QueryRow(`SELECT payload FROM corpus_cache WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(payload))
	if err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	defer zr.Close()
	var e Entry
	if err := json.NewDecoder(zr).Decode(&e); err != nil {
		return nil, false, fmt.Errorf("corrupt cache entry %s: %w", key, err)
	}
	return &e, true, nil
}

// Put stores entry under key, replacing any previous value.
func (s *Store) Put(key string, entry *Entry) error {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if err := json.NewEncoder(zw).Encode(entry); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO corpus_cache(key, payload) VALUES (?, ?)`, key, buf.Bytes())
	if err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }
