package tokenizer

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Corpus file formats.
const (
	FormatTSV  = "tsv"
	FormatText = "text"
)

// Regex lowercases text, extracts letter runs (keeping inner apostrophes) and
// drops stopwords. It is not safe for concurrent use.
type Regex struct {
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
	lower        cases.Caser
}

// New returns a tokenizer with the default English stopword list.
func New() *Regex {
	return &Regex{
		tokenPattern: regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		stopwords:    defaultStopwords(),
		lower:        cases.Lower(language.English),
	}
}

// WithoutStopwords returns a tokenizer that keeps every word.
func WithoutStopwords() *Regex {
	t := New()
	t.stopwords = map[string]struct{}{}
	return t
}

func (t *Regex) Tokens(text string) []string {
	raw := t.tokenPattern.FindAllString(t.lower.String(text), -1)
	if len(raw) == 0 {
		return nil
	}
	out := raw[:0]
	for _, w := range raw {
		if _, isStop := t.stopwords[w]; isStop {
			continue
		}
		out = append(out, w)
	}
	return out
}

// ReadCorpus loads the text of a corpus file.
func ReadCorpus(path, format string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Parse(data, format)
}

// Parse extracts the corpus text from raw file contents. A tsv file has a
// header row and the review text in its second column; HTML line breaks are
// removed.
func Parse(data []byte, format string) (string, error) {
	switch format {
	case FormatText, "":
		return string(data), nil
	case FormatTSV:
		lines := strings.Split(string(data), "\n")
		if len(lines) <= 1 {
			return "", nil
		}
		var b strings.Builder
		for _, line := range lines[1:] {
			line = strings.TrimRight(line, "\r")
			if line == "" {
				continue
			}
			cols := strings.Split(line, "\t")
			if len(cols) < 2 {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(strings.ReplaceAll(cols[1], "<br />", ""))
		}
		return b.String(), nil
	default:
		return "", fmt.Errorf("unknown corpus format %q", format)
	}
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"i", "me", "my", "myself", "we", "our", "ours", "ourselves", "you", "your", "yours", "yourself", "yourselves",
		"he", "him", "his", "himself", "she", "her", "hers", "herself", "its", "itself", "they", "them", "their",
		"theirs", "themselves", "what", "which", "who", "whom", "have", "has", "had", "having", "do", "does", "did",
		"doing", "because", "until", "while", "against", "here", "there", "when", "where", "why", "how", "all", "any",
		"both", "each", "few", "more", "most", "other", "some", "no", "nor", "not", "only", "s", "t", "once",
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
