// Package ngram scores character sequences with bigram and trigram
// statistics. It is a cheap plausibility signal, not a dictionary.
package ngram

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"unicode"
)

const (
	// Floor is returned for any n-gram missing from the tables.
	Floor float32 = 0.001

	BigramWeight  = 0.3
	TrigramWeight = 0.6

	validBigramRatio = 0.3
)

// Model is safe for concurrent use.
type Model struct {
	mu sync.RWMutex
	t  *Tables
}

// New wraps t. Nil tables, or nil maps inside them, start out empty.
func New(t *Tables) *Model {
	if t == nil {
		t = NewTables()
	}
	if t.Unigram == nil {
		t.Unigram = make(map[string]float32)
	}
	if t.Bigram == nil {
		t.Bigram = make(map[string]float32)
	}
	if t.Trigram == nil {
		t.Trigram = make(map[string]float32)
	}
	if t.Start == nil {
		t.Start = make(map[rune]float32)
	}
	if t.End == nil {
		t.End = make(map[rune]float32)
	}
	return &Model{t: t}
}

func NewEnglish() *Model {
	return New(EnglishTables())
}

func lookup[K comparable](m map[K]float32, k K) float32 {
	if p, ok := m[k]; ok && p > 0 {
		return p
	}
	return Floor
}

func (m *Model) BigramProbability(a, b rune) float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lookup(m.t.Bigram, string([]rune{unicode.ToLower(a), unicode.ToLower(b)}))
}

func (m *Model) TrigramProbability(a, b, c rune) float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lookup(m.t.Trigram, string([]rune{unicode.ToLower(a), unicode.ToLower(b), unicode.ToLower(c)}))
}

func (m *Model) StartProbability(r rune) float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lookup(m.t.Start, unicode.ToLower(r))
}

func (m *Model) EndProbability(r rune) float32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return lookup(m.t.End, unicode.ToLower(r))
}

// WordProbability is start · Π bigram^0.3 · Π trigram^0.6 · end, normalized
// to the word length by taking the len-th root. It works in log space so
// long words cannot underflow to zero.
func (m *Model) WordProbability(word string) float32 {
	rs := []rune(strings.ToLower(word))
	if len(rs) == 0 {
		return Floor
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	logp := math.Log(float64(lookup(m.t.Start, rs[0])))
	for i := 1; i < len(rs); i++ {
		logp += BigramWeight * math.Log(float64(lookup(m.t.Bigram, string(rs[i-1:i+1]))))
		if i > 1 {
			logp += TrigramWeight * math.Log(float64(lookup(m.t.Trigram, string(rs[i-2:i+1]))))
		}
	}
	logp += math.Log(float64(lookup(m.t.End, rs[len(rs)-1])))

	p := float32(math.Exp(logp / float64(len(rs))))
	if p <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return p
}

// ScoreWord is a fast heuristic: the mean of matched bigrams ×100 and
// trigrams ×200, plus start and end bonuses.
func (m *Model) ScoreWord(word string) float32 {
	rs := []rune(strings.ToLower(word))
	if len(rs) < 2 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var score float32
	matched := 0
	for i := 0; i+1 < len(rs); i++ {
		if p, ok := m.t.Bigram[string(rs[i:i+2])]; ok {
			score += p * 100
			matched++
		}
	}
	for i := 0; i+2 < len(rs); i++ {
		if p, ok := m.t.Trigram[string(rs[i:i+3])]; ok {
			score += p * 200
			matched++
		}
	}
	if matched > 0 {
		score /= float32(matched)
	}
	score += lookup(m.t.Start, rs[0]) * 50
	score += lookup(m.t.End, rs[len(rs)-1]) * 50
	return score
}

// HasValidNgrams reports whether at least 30% of the word's bigrams are
// known above the floor.
func (m *Model) HasValidNgrams(word string) bool {
	rs := []rune(strings.ToLower(word))
	if len(rs) < 2 {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	valid, total := 0, 0
	for i := 0; i+1 < len(rs); i++ {
		total++
		if m.t.Bigram[string(rs[i:i+2])] > Floor {
			valid++
		}
	}
	return float64(valid) >= float64(total)*validBigramRatio
}

type Stats struct {
	Unigrams, Bigrams, Trigrams int
	StartChars, EndChars        int
}

func (s Stats) String() string {
	return fmt.Sprintf("ngram: %d unigrams, %d bigrams, %d trigrams, %d start, %d end (floor %.3f)",
		s.Unigrams, s.Bigrams, s.Trigrams, s.StartChars, s.EndChars, Floor)
}

func (m *Model) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Unigrams:   len(m.t.Unigram),
		Bigrams:    len(m.t.Bigram),
		Trigrams:   len(m.t.Trigram),
		StartChars: len(m.t.Start),
		EndChars:   len(m.t.End),
	}
}
