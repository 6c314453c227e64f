package langmodel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// ParseTable reads a whitespace separated table. Lines of the form
// "prev word prob" are bigrams, "word prob" are unigrams. Blank lines,
// comments (#), malformed lines and probabilities outside [0,1] are skipped.
func ParseTable(r io.Reader) (*Table, int, error) {
	t := NewTable()
	sc := bufio.NewScanner(r)
	skipped := 0
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch len(fields) {
		case 2:
			p, ok := parseProb(fields[1])
			if !ok {
				skipped++
				continue
			}
			t.Unigram[strings.ToLower(fields[0])] = p
		case 3:
			p, ok := parseProb(fields[2])
			if !ok {
				skipped++
				continue
			}
			t.Bigram[[2]string{strings.ToLower(fields[0]), strings.ToLower(fields[1])}] = p
		default:
			skipped++
			log.Debugf("langmodel: skipping malformed line %d", lineNo)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, skipped, fmt.Errorf("failed to read table: %w", err)
	}
	return t, skipped, nil
}

func parseProb(s string) (float32, bool) {
	v, err := strconv.ParseFloat(s, 32)
	if err != nil || v < 0 || v > 1 {
		return 0, false
	}
	return float32(v), true
}

// LoadTable merges entries read from r into the table for lang, creating
// it when missing. It returns the number of entries merged.
func (m *Model) LoadTable(lang string, r io.Reader) (int, error) {
	parsed, skipped, err := ParseTable(r)
	if err != nil {
		return 0, err
	}
	lang = strings.ToLower(lang)

	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tables[lang]
	if !ok {
		t = NewTable()
		m.tables[lang] = t
	}
	for k, v := range parsed.Bigram {
		t.Bigram[k] = v
	}
	for k, v := range parsed.Unigram {
		t.Unigram[k] = v
	}
	n := len(parsed.Bigram) + len(parsed.Unigram)
	if skipped > 0 {
		log.Warnf("langmodel: %s: skipped %d malformed lines", lang, skipped)
	}
	log.Debugf("langmodel: loaded %d entries for %s", n, lang)
	return n, nil
}

func (m *Model) LoadTableFile(lang, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open table %s: %w", path, err)
	}
	defer f.Close()
	return m.LoadTable(lang, f)
}
