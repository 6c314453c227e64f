// Package langmodel is the word-level language model: per-language unigram
// and bigram tables blended by linear interpolation.
package langmodel

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
)

const (
	DefaultLambda   float32 = 0.95
	DefaultFloor    float32 = 0.0001
	DefaultLanguage         = "en"

	minMultiplier float32 = 0.1
	maxMultiplier float32 = 10.0
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

type Table struct {
	Bigram  map[[2]string]float32
	Unigram map[string]float32
}

func NewTable() *Table {
	return &Table{
		Bigram:  make(map[[2]string]float32),
		Unigram: make(map[string]float32),
	}
}

type Config struct {
	Lambda   float32
	Floor    float32
	Language string
	// Seed installs the built-in en, es, fr and de tables.
	Seed bool
}

func DefaultConfig() Config {
	return Config{
		Lambda:   DefaultLambda,
		Floor:    DefaultFloor,
		Language: DefaultLanguage,
		Seed:     true,
	}
}

// Model is safe for concurrent use. Reads take the read lock; table loads
// and AddObservation take the write lock.
type Model struct {
	mu      sync.RWMutex
	tables  map[string]*Table
	current string
	lambda  float32
	floor   float32
}

func New(cfg Config) *Model {
	if cfg.Lambda <= 0 || cfg.Lambda > 1 {
		cfg.Lambda = DefaultLambda
	}
	if cfg.Floor <= 0 {
		cfg.Floor = DefaultFloor
	}
	m := &Model{
		tables: make(map[string]*Table),
		lambda: cfg.Lambda,
		floor:  cfg.Floor,
	}
	if cfg.Seed {
		m.tables = seedTables()
	}
	if _, ok := m.tables[DefaultLanguage]; !ok {
		m.tables[DefaultLanguage] = NewTable()
	}
	m.current = DefaultLanguage
	if cfg.Language != "" {
		m.SetLanguage(cfg.Language)
	}
	return m
}

// SetLanguage switches the active table. Unknown codes fall back to English.
func (m *Model) SetLanguage(lang string) {
	lang = strings.ToLower(lang)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[lang]; ok {
		m.current = lang
		log.Debugf("Language set to %s", lang)
		return
	}
	log.Warnf("Language %q not supported, falling back to %s", lang, DefaultLanguage)
	m.current = DefaultLanguage
}

// Select is the strict form of SetLanguage: it leaves the active language
// unchanged and reports ErrUnsupportedLanguage.
func (m *Model) Select(lang string) error {
	lang = strings.ToLower(lang)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tables[lang]; !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedLanguage, lang)
	}
	m.current = lang
	return nil
}

func (m *Model) CurrentLanguage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

func (m *Model) IsSupported(lang string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.tables[strings.ToLower(lang)]
	return ok
}

func (m *Model) Languages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tables))
	for lang := range m.tables {
		out = append(out, lang)
	}
	sort.Strings(out)
	return out
}

func (m *Model) Floor() float32 { return m.floor }

// table must be called with mu held.
func (m *Model) table() *Table {
	if t, ok := m.tables[m.current]; ok {
		return t
	}
	return m.tables[DefaultLanguage]
}

// Probability returns P(word) when prev is empty and the interpolated
// λ·P(word|prev) + (1-λ)·P(word) otherwise. The result is never below the floor.
func (m *Model) Probability(word, prev string) float32 {
	if word == "" {
		return m.floor
	}
	word = strings.ToLower(word)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.probability(m.table(), word, strings.ToLower(prev))
}

func (m *Model) probability(t *Table, word, prev string) float32 {
	uni, ok := t.Unigram[word]
	if !ok || uni <= 0 {
		uni = m.floor
	}
	if prev == "" {
		return uni
	}
	bi, ok := t.Bigram[[2]string{prev, word}]
	if !ok || bi <= 0 {
		bi = m.floor
	}
	p := m.lambda*bi + (1-m.lambda)*uni
	return max(p, m.floor)
}

// ContextMultiplier is the contextual probability over the bare unigram,
// clamped to [0.1, 10].
func (m *Model) ContextMultiplier(word, prev string) float32 {
	if prev == "" || word == "" {
		return 1
	}
	word = strings.ToLower(word)
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.table()
	ctx := m.probability(t, word, strings.ToLower(prev))
	base := m.probability(t, word, "")
	return min(max(ctx/base, minMultiplier), maxMultiplier)
}

// ScoreWord is the natural log of the contextual probability.
func (m *Model) ScoreWord(word, prev string) float32 {
	return float32(math.Log(float64(m.Probability(word, prev))))
}

// AddObservation nudges P(word|prev) towards weight with exponential
// smoothing. Changes live in memory only.
func (m *Model) AddObservation(prev, word string, weight float32) {
	if prev == "" || word == "" {
		return
	}
	weight = min(max(weight, 0), 1)
	key := [2]string{strings.ToLower(prev), strings.ToLower(word)}
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.table()
	t.Bigram[key] = 0.9*t.Bigram[key] + 0.1*weight
}

// SetTable installs or replaces a language table.
func (m *Model) SetTable(lang string, t *Table) {
	if t == nil {
		return
	}
	if t.Bigram == nil {
		t.Bigram = make(map[[2]string]float32)
	}
	if t.Unigram == nil {
		t.Unigram = make(map[string]float32)
	}
	m.mu.Lock()
	m.tables[strings.ToLower(lang)] = t
	m.mu.Unlock()
}

// Words lists the unigram vocabulary of the active language, sorted.
func (m *Model) Words() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.table()
	out := make([]string, 0, len(t.Unigram))
	for w := range t.Unigram {
		out = append(out, w)
	}
	sort.Strings(out)
	return out
}

// WordFrequency maps the unigram probability onto a 0-1000 scale.
func (m *Model) WordFrequency(word string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.table().Unigram[strings.ToLower(word)]
	if !ok {
		return 0
	}
	return int(p * 1000)
}

type Stats struct {
	Language     string
	Bigrams      int
	Unigrams     int
	Languages    int
	TotalBigrams int
	TotalUnigram int
}

func (s Stats) String() string {
	return fmt.Sprintf("langmodel: %s (%d bigrams, %d unigrams), %d languages, %d bigrams, %d unigrams total",
		s.Language, s.Bigrams, s.Unigrams, s.Languages, s.TotalBigrams, s.TotalUnigram)
}

func (m *Model) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t := m.table()
	s := Stats{
		Language:  m.current,
		Bigrams:   len(t.Bigram),
		Unigrams:  len(t.Unigram),
		Languages: len(m.tables),
	}
	for _, tt := range m.tables {
		s.TotalBigrams += len(tt.Bigram)
		s.TotalUnigram += len(tt.Unigram)
	}
	return s
}
