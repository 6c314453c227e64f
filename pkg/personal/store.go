// Package personal learns per-user word and word-pair frequencies and blends
// them into candidate scores.
//
// Persistence is lossy: Save keeps only the MaxWords most frequent words and
// the MaxBigrams most frequent pairs. Everything else is dropped from the
// backend, and a store reloaded from it will not see those entries.
package personal

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

// lastWordKey marks the entry holding the last committed word in Next.
// RecordWordUsage never counts it as a word.
const lastWordKey = "#last"

type Config struct {
	Increment       uint32
	BigramIncrement uint32
	MaxFrequency    uint32
	MinWordLength   int
	MaxWordLength   int
	MaxWords        int
	MaxBigrams      int
	// SaveEvery schedules a background save after this many recorded words.
	// Zero disables automatic saves.
	SaveEvery int
}

func DefaultConfig() Config {
	return Config{
		Increment:       10,
		BigramIncrement: 5,
		MaxFrequency:    10000,
		MinWordLength:   2,
		MaxWordLength:   20,
		MaxWords:        1000,
		MaxBigrams:      500,
		SaveEvery:       10,
	}
}

type Prediction struct {
	Word  string
	Score float32
}

// Store is safe for concurrent use. Mutations are serialized by mu; saves
// are serialized by saveMu and never hold mu while talking to the backend.
type Store struct {
	cfg     Config
	backend Backend

	mu      sync.RWMutex
	words   map[string]uint32
	bigrams map[string]map[string]uint32
	last    string
	pending int

	saveMu sync.Mutex
	wg     sync.WaitGroup
}

// New creates a store. A nil backend keeps everything in memory. Zero or
// negative caps fall back to the defaults; persistence is always bounded.
func New(cfg Config, backend Backend) *Store {
	def := DefaultConfig()
	if cfg.MaxFrequency == 0 {
		cfg.MaxFrequency = def.MaxFrequency
	}
	if cfg.MaxWords <= 0 {
		cfg.MaxWords = def.MaxWords
	}
	if cfg.MaxBigrams <= 0 {
		cfg.MaxBigrams = def.MaxBigrams
	}
	return &Store{
		cfg:     cfg,
		backend: backend,
		words:   make(map[string]uint32),
		bigrams: make(map[string]map[string]uint32),
	}
}

// Load replaces in-memory state with the backend snapshot. A failing backend
// leaves the store empty but usable.
func (s *Store) Load(ctx context.Context) {
	if s.backend == nil {
		return
	}
	words := make(map[string]uint32)
	bigrams := make(map[string]map[string]uint32)
	var last string
	err := s.backend.Enumerate(ctx, func(e Entry) error {
		if e.Word == lastWordKey {
			last = normalize(e.Next)
			return nil
		}
		c := min(e.Count, s.cfg.MaxFrequency)
		if c == 0 || e.Word == "" {
			return nil
		}
		if !e.IsBigram() {
			words[e.Word] = c
			return nil
		}
		m, ok := bigrams[e.Word]
		if !ok {
			m = make(map[string]uint32)
			bigrams[e.Word] = m
		}
		m[e.Next] = c
		return nil
	})
	if err != nil {
		log.Warnf("personal: failed to load user data, starting empty: %v", err)
		words = make(map[string]uint32)
		bigrams = make(map[string]map[string]uint32)
		last = ""
	}

	s.mu.Lock()
	s.words = words
	s.bigrams = bigrams
	s.last = last
	s.pending = 0
	s.mu.Unlock()
	log.Debugf("personal: loaded %d words, %d bigrams", len(words), countBigrams(bigrams))
}

func normalize(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func (s *Store) accept(word string) bool {
	if word == lastWordKey {
		return false
	}
	n := utf8.RuneCountInString(word)
	return n >= s.cfg.MinWordLength && n <= s.cfg.MaxWordLength
}

func (s *Store) add(cur, inc uint32) uint32 {
	if cur >= s.cfg.MaxFrequency || inc >= s.cfg.MaxFrequency-cur {
		return s.cfg.MaxFrequency
	}
	return cur + inc
}

// RecordWordUsage counts a committed word and the pair it forms with the
// previously committed word.
func (s *Store) RecordWordUsage(word string) {
	w := normalize(word)
	if !s.accept(w) {
		return
	}

	s.mu.Lock()
	s.words[w] = s.add(s.words[w], s.cfg.Increment)
	if s.last != "" {
		m, ok := s.bigrams[s.last]
		if !ok {
			m = make(map[string]uint32)
			s.bigrams[s.last] = m
		}
		m[w] = s.add(m[w], s.cfg.BigramIncrement)
	}
	s.last = w
	s.pending++
	flush := s.cfg.SaveEvery > 0 && s.pending >= s.cfg.SaveEvery
	s.mu.Unlock()

	if flush {
		s.saveAsync()
	}
}

func (s *Store) saveAsync() {
	if s.backend == nil {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if !s.saveMu.TryLock() {
			return
		}
		defer s.saveMu.Unlock()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.save(ctx); err != nil {
			log.Warnf("personal: background save failed: %v", err)
		}
	}()
}

// PersonalizedFrequency is the word count scaled to [0,1].
func (s *Store) PersonalizedFrequency(word string) float32 {
	s.mu.RLock()
	c := s.words[normalize(word)]
	s.mu.RUnlock()
	return float32(c) / float32(s.cfg.MaxFrequency)
}

// NextWordPredictions returns up to k words most often typed after prev.
func (s *Store) NextWordPredictions(prev string, k int) []Prediction {
	p := normalize(prev)
	if p == "" || k <= 0 {
		return nil
	}
	s.mu.RLock()
	m := s.bigrams[p]
	out := make([]Prediction, 0, len(m))
	for w, c := range m {
		out = append(out, Prediction{Word: w, Score: float32(c) / float32(s.cfg.MaxFrequency)})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Word < out[j].Word
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// AdjustScore blends 70% base score with 30% personal frequency.
func (s *Store) AdjustScore(word string, base float32) float32 {
	return 0.7*base + 0.3*s.PersonalizedFrequency(word)
}

func (s *Store) IsKnownWord(word string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.words[normalize(word)]
	return ok
}

// ApplyDecay halves every counter and evicts the ones that reach zero.
func (s *Store) ApplyDecay() {
	s.mu.Lock()
	for w, c := range s.words {
		if c /= 2; c == 0 {
			delete(s.words, w)
		} else {
			s.words[w] = c
		}
	}
	for prev, m := range s.bigrams {
		for w, c := range m {
			if c /= 2; c == 0 {
				delete(m, w)
			} else {
				m[w] = c
			}
		}
		if len(m) == 0 {
			delete(s.bigrams, prev)
		}
	}
	s.pending++
	s.mu.Unlock()
	log.Debug("personal: frequency decay applied")
	s.saveAsync()
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.words = make(map[string]uint32)
	s.bigrams = make(map[string]map[string]uint32)
	s.last = ""
	s.pending = 0
	s.mu.Unlock()
	if s.backend == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.backend.PutAll(ctx, nil)
}

// Save writes the bounded snapshot to the backend.
func (s *Store) Save(ctx context.Context) error {
	if s.backend == nil {
		return nil
	}
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	return s.save(ctx)
}

func (s *Store) save(ctx context.Context) error {
	entries := s.Snapshot()
	s.mu.RLock()
	if s.last != "" {
		entries = append(entries, Entry{Word: lastWordKey, Next: s.last, Count: 1})
	}
	s.mu.RUnlock()
	if err := s.backend.PutAll(ctx, entries); err != nil {
		return fmt.Errorf("failed to save personalization: %w", err)
	}
	s.mu.Lock()
	s.pending = 0
	s.mu.Unlock()
	log.Debugf("personal: saved %d entries", len(entries))
	return nil
}

// Snapshot returns the entries Save would persist: the top MaxWords words
// followed by the top MaxBigrams pairs, highest counts first.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	words := make([]Entry, 0, len(s.words))
	for w, c := range s.words {
		words = append(words, Entry{Word: w, Count: c})
	}
	pairs := make([]Entry, 0)
	for prev, m := range s.bigrams {
		for w, c := range m {
			pairs = append(pairs, Entry{Word: prev, Next: w, Count: c})
		}
	}
	s.mu.RUnlock()

	byCount := func(es []Entry) {
		sort.Slice(es, func(i, j int) bool {
			if es[i].Count != es[j].Count {
				return es[i].Count > es[j].Count
			}
			if es[i].Word != es[j].Word {
				return es[i].Word < es[j].Word
			}
			return es[i].Next < es[j].Next
		})
	}
	byCount(words)
	byCount(pairs)
	if len(words) > s.cfg.MaxWords {
		words = words[:s.cfg.MaxWords]
	}
	if len(pairs) > s.cfg.MaxBigrams {
		pairs = pairs[:s.cfg.MaxBigrams]
	}
	return append(words, pairs...)
}

// Close waits for background saves, writes a final snapshot and closes the backend.
func (s *Store) Close(ctx context.Context) error {
	s.wg.Wait()
	if s.backend == nil {
		return nil
	}
	err := s.Save(ctx)
	if cerr := s.backend.Close(); err == nil {
		err = cerr
	}
	return err
}

// Wait blocks until in-flight background saves finish.
func (s *Store) Wait() { s.wg.Wait() }

type Stats struct {
	TotalWords   int
	TotalBigrams int
	MostFrequent string
	LastWord     string
}

func (s Stats) String() string {
	return fmt.Sprintf("Words: %d, Bigrams: %d, Most frequent: %s", s.TotalWords, s.TotalBigrams, s.MostFrequent)
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{
		TotalWords:   len(s.words),
		TotalBigrams: countBigrams(s.bigrams),
		LastWord:     s.last,
	}
	var best uint32
	for w, c := range s.words {
		if c > best || (c == best && w < st.MostFrequent) {
			best, st.MostFrequent = c, w
		}
	}
	return st
}

func countBigrams(m map[string]map[string]uint32) int {
	n := 0
	for _, inner := range m {
		n += len(inner)
	}
	return n
}
