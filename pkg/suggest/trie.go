package suggest

import (
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/tchap/go-patricia/v2/patricia"
)

var stringPool = sync.Map{}

func internString(s string) string {
	if cached, exists := stringPool.Load(s); exists {
		return cached.(string)
	}
	stringPool.Store(s, s)
	return s
}

type Suggestion struct {
	Word      string
	Frequency int
}

type extremity [2]rune

// Vocabulary is the word list candidates are drawn from: a patricia trie
// keyed by spelling plus an index by first and last letter.
type Vocabulary struct {
	mu           sync.RWMutex
	trie         *patricia.Trie
	wordFreqs    map[string]int
	extremities  map[extremity][]string
	maxFrequency int
}

func NewVocabulary() *Vocabulary {
	return &Vocabulary{
		trie:        patricia.NewTrie(),
		wordFreqs:   make(map[string]int),
		extremities: make(map[extremity][]string),
	}
}

func ends(word string) (extremity, bool) {
	if utf8.RuneCountInString(word) < 2 {
		return extremity{}, false
	}
	first, _ := utf8.DecodeRuneInString(word)
	last, _ := utf8.DecodeLastRuneInString(word)
	return extremity{first, last}, true
}

// AddWord inserts or updates a word. Words are stored lowercase.
func (v *Vocabulary) AddWord(word string, frequency int) {
	word = strings.ToLower(strings.TrimSpace(word))
	if word == "" || frequency <= 0 {
		return
	}
	word = internString(word)

	v.mu.Lock()
	defer v.mu.Unlock()
	if _, exists := v.wordFreqs[word]; !exists {
		if key, ok := ends(word); ok {
			v.extremities[key] = append(v.extremities[key], word)
		}
		v.trie.Insert(patricia.Prefix(word), frequency)
	} else {
		v.trie.Set(patricia.Prefix(word), frequency)
	}
	v.wordFreqs[word] = frequency
	if frequency > v.maxFrequency {
		v.maxFrequency = frequency
	}
}

func (v *Vocabulary) Frequency(word string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.wordFreqs[strings.ToLower(word)]
}

func (v *Vocabulary) Contains(word string) bool {
	return v.Frequency(word) > 0
}

// NormalizedFrequency scales the frequency to (0,1] against the most frequent word.
func (v *Vocabulary) NormalizedFrequency(word string) float32 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if v.maxFrequency == 0 {
		return 0
	}
	return float32(v.wordFreqs[strings.ToLower(word)]) / float32(v.maxFrequency)
}

func (v *Vocabulary) Len() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.wordFreqs)
}

// ByExtremities returns the words starting with first and ending with last.
func (v *Vocabulary) ByExtremities(first, last rune) []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	words := v.extremities[extremity{first, last}]
	out := make([]string, len(words))
	copy(out, words)
	return out
}

// WordsWithPrefix walks the trie below prefix and returns the words whose
// frequency reaches minFrequency.
func (v *Vocabulary) WordsWithPrefix(prefix string, minFrequency int) []Suggestion {
	lowerPrefix := strings.ToLower(prefix)
	v.mu.RLock()
	defer v.mu.RUnlock()

	var suggestions []Suggestion
	err := v.trie.VisitSubtree(patricia.Prefix(lowerPrefix), func(p patricia.Prefix, item patricia.Item) error {
		freq := 1
		switch f := item.(type) {
		case int:
			freq = f
		case uint16:
			freq = int(f)
		default:
			log.Errorf("Unknown item type: %T for word %s", item, p)
		}
		if freq < minFrequency {
			return nil
		}
		suggestions = append(suggestions, Suggestion{
			Word:      internString(string(p)),
			Frequency: freq,
		})
		return nil
	})
	if err != nil {
		log.Errorf("Error visiting trie subtree: %v", err)
		return nil
	}
	return suggestions
}

func (v *Vocabulary) Stats() map[string]int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return map[string]int{
		"totalWords":     len(v.wordFreqs),
		"maxFrequency":   v.maxFrequency,
		"extremityPairs": len(v.extremities),
	}
}
