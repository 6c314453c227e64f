package suggest

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/log"
)

type GeneratorConfig struct {
	MaxCandidates int
	// KeyWidth enables length pruning when positive.
	KeyWidth        float32
	LengthFactor    float32
	LengthTolerance float32
	// EndKeys is how many touched keys at each end may supply the first or last letter.
	EndKeys   int
	CacheSize int
}

func DefaultGeneratorConfig() GeneratorConfig {
	return GeneratorConfig{
		MaxCandidates:   100,
		LengthFactor:    0.8,
		LengthTolerance: 3,
		EndKeys:         2,
		CacheSize:       256,
	}
}

// Generator narrows the vocabulary to words whose first and last letters
// match the ends of the swipe and whose length fits the path length.
type Generator struct {
	vocab *Vocabulary
	cfg   GeneratorConfig
	cache *CandidateCache
}

func NewGenerator(vocab *Vocabulary, cfg GeneratorConfig) *Generator {
	if vocab == nil {
		vocab = NewVocabulary()
	}
	if cfg.EndKeys <= 0 {
		cfg.EndKeys = 2
	}
	if cfg.LengthFactor <= 0 {
		cfg.LengthFactor = 0.8
	}
	if cfg.LengthTolerance <= 0 {
		cfg.LengthTolerance = 3
	}
	return &Generator{
		vocab: vocab,
		cfg:   cfg,
		cache: NewCandidateCache(cfg.CacheSize),
	}
}

func (g *Generator) Vocabulary() *Vocabulary { return g.vocab }

// SetKeyWidth updates the key width used for length pruning.
func (g *Generator) SetKeyWidth(w float32) {
	g.cfg.KeyWidth = w
	g.cache.Purge()
}

func (g *Generator) AddWord(word string, frequency int) {
	g.vocab.AddWord(word, frequency)
	g.cache.Purge()
}

func (g *Generator) Stats() map[string]int {
	stats := g.vocab.Stats()
	for k, v := range g.cache.Stats() {
		stats[k] = v
	}
	return stats
}

func (g *Generator) cacheKey(keys []rune, pathLength float32) string {
	bucket := 0
	if g.cfg.KeyWidth > 0 {
		bucket = int(pathLength / (g.cfg.KeyWidth / 2))
	}
	return fmt.Sprintf("%s|%d", string(keys), bucket)
}

func (g *Generator) Candidates(keys []rune, pathLength float32) []string {
	seq := make([]rune, 0, len(keys))
	for _, r := range keys {
		if unicode.IsLetter(r) {
			seq = append(seq, unicode.ToLower(r))
		}
	}
	if len(seq) == 0 {
		return nil
	}

	key := g.cacheKey(seq, pathLength)
	if cached, ok := g.cache.Get(key); ok {
		return cached
	}

	words := g.byExtremities(seq)
	if len(words) == 0 {
		for _, s := range g.vocab.WordsWithPrefix(string(seq[0]), 1) {
			words = append(words, s.Word)
		}
	}
	words = g.pruneByLength(words, pathLength)

	sort.SliceStable(words, func(i, j int) bool {
		fi, fj := g.vocab.Frequency(words[i]), g.vocab.Frequency(words[j])
		if fi != fj {
			return fi > fj
		}
		return words[i] < words[j]
	})
	if g.cfg.MaxCandidates > 0 && len(words) > g.cfg.MaxCandidates {
		words = words[:g.cfg.MaxCandidates]
	}

	raw := string(seq)
	if g.vocab.Contains(raw) && !contains(words, raw) {
		words = append(words, raw)
	}

	log.Debugf("candidates for %q: %d", raw, len(words))
	g.cache.Put(key, words)
	return words
}

func (g *Generator) byExtremities(seq []rune) []string {
	n := min(g.cfg.EndKeys, len(seq))
	starts := distinct(seq[:n])
	lasts := distinct(seq[len(seq)-n:])

	seen := make(map[string]bool)
	var words []string
	for _, s := range starts {
		for _, e := range lasts {
			for _, w := range g.vocab.ByExtremities(s, e) {
				if !seen[w] {
					seen[w] = true
					words = append(words, w)
				}
			}
		}
	}
	return words
}

// pruneByLength keeps words whose ideal path length (len-1)·keyWidth·factor
// is within tolerance·keyWidth of the observed one. If nothing survives the
// input is returned unchanged.
func (g *Generator) pruneByLength(words []string, pathLength float32) []string {
	if g.cfg.KeyWidth <= 0 || pathLength <= 0 {
		return words
	}
	limit := float64(g.cfg.LengthTolerance * g.cfg.KeyWidth)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		ideal := float32(utf8.RuneCountInString(w)-1) * g.cfg.KeyWidth * g.cfg.LengthFactor
		if math.Abs(float64(pathLength-ideal)) < limit {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return words
	}
	return kept
}

func distinct(rs []rune) []rune {
	out := make([]rune, 0, len(rs))
	for _, r := range rs {
		if !strings.ContainsRune(string(out), r) {
			out = append(out, r)
		}
	}
	return out
}

func contains(words []string, w string) bool {
	for _, x := range words {
		if x == w {
			return true
		}
	}
	return false
}
