package ngram

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// LoadNgrams merges "ngram<TAB>probability" lines into the model. The
// n-gram length picks the table. Malformed lines are skipped.
func (m *Model) LoadNgrams(r io.Reader) (int, error) {
	parsed := NewTables()
	sc := bufio.NewScanner(r)
	loaded, skipped := 0, 0
	for sc.Scan() {
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 2 {
			skipped++
			continue
		}
		gram := strings.ToLower(strings.TrimSpace(parts[0]))
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 32)
		if err != nil || v < 0 || v > 1 {
			skipped++
			continue
		}
		switch utf8.RuneCountInString(gram) {
		case 1:
			parsed.Unigram[gram] = float32(v)
		case 2:
			parsed.Bigram[gram] = float32(v)
		case 3:
			parsed.Trigram[gram] = float32(v)
		default:
			skipped++
			continue
		}
		loaded++
	}
	if err := sc.Err(); err != nil {
		return 0, fmt.Errorf("failed to read ngrams: %w", err)
	}

	m.mu.Lock()
	for k, v := range parsed.Unigram {
		m.t.Unigram[k] = v
	}
	for k, v := range parsed.Bigram {
		m.t.Bigram[k] = v
	}
	for k, v := range parsed.Trigram {
		m.t.Trigram[k] = v
	}
	m.mu.Unlock()

	if skipped > 0 {
		log.Warnf("ngram: skipped %d malformed lines", skipped)
	}
	log.Debugf("ngram: loaded %d n-grams", loaded)
	return loaded, nil
}

func (m *Model) Load(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open ngram file %s: %w", path, err)
	}
	defer f.Close()
	return m.LoadNgrams(f)
}
