package ngram

import (
	"math"
	"strings"
	"testing"
)

func TestWordProbabilityPrefersCommonTrigrams(t *testing.T) {
	m := NewEnglish()
	the := m.WordProbability("the")
	xqz := m.WordProbability("xqz")
	if the <= xqz {
		t.Fatalf("expected P(the)=%v > P(xqz)=%v", the, xqz)
	}
	if math.Abs(float64(the)-0.0784) > 0.001 {
		t.Errorf("P(the) = %v, want ~0.0784", the)
	}
	// every factor floored: 0.001^(3.2/3)
	want := math.Pow(0.001, 3.2/3)
	if math.Abs(float64(xqz)-want) > 1e-6 {
		t.Errorf("P(xqz) = %v, want %v", xqz, want)
	}
}

func TestWordProbabilityNeverZero(t *testing.T) {
	m := NewEnglish()
	words := []string{"", "q", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz", "Über", "THE"}
	for _, w := range words {
		if p := m.WordProbability(w); p <= 0 {
			t.Errorf("WordProbability(%q) = %v", w, p)
		}
	}
	if m.WordProbability("THE") != m.WordProbability("the") {
		t.Error("lookups should be case insensitive")
	}
}

func TestLookupsUseFloor(t *testing.T) {
	m := NewEnglish()
	if m.BigramProbability('q', 'x') != Floor {
		t.Error("missing bigram should use the floor")
	}
	if m.TrigramProbability('T', 'H', 'E') != 0.030 {
		t.Errorf("expected trigram 0.03, got %v", m.TrigramProbability('t', 'h', 'e'))
	}
	if m.StartProbability('z') != Floor || m.EndProbability('q') != Floor {
		t.Error("missing start/end should use the floor")
	}
	empty := New(nil)
	if empty.WordProbability("hello") <= 0 {
		t.Error("empty tables must still produce a positive probability")
	}
}

func TestHasValidNgrams(t *testing.T) {
	m := NewEnglish()
	tests := []struct {
		word string
		want bool
	}{
		{"the", true},
		{"there", true},
		{"xqz", false},
		{"a", false},
		// 1 of 3 bigrams known is above the 30% bar
		{"thxq", true},
		// 1 of 4 is not
		{"thxqz", false},
	}
	for _, tt := range tests {
		if got := m.HasValidNgrams(tt.word); got != tt.want {
			t.Errorf("HasValidNgrams(%q) = %t, want %t", tt.word, got, tt.want)
		}
	}
}

func TestScoreWord(t *testing.T) {
	m := NewEnglish()
	if m.ScoreWord("a") != 0 {
		t.Error("single characters score zero")
	}
	if m.ScoreWord("the") <= m.ScoreWord("xqz") {
		t.Error("expected the to outscore xqz")
	}
	// th 3.7, he 3.0, the 6.0 -> 12.7/3, plus t 8.0 and e 9.5
	want := float32(12.7/3 + 8.0 + 9.5)
	if got := m.ScoreWord("the"); math.Abs(float64(got-want)) > 1e-3 {
		t.Errorf("ScoreWord(the) = %v, want %v", got, want)
	}
}

func TestLoadNgrams(t *testing.T) {
	m := New(nil)
	input := "qu\t0.5\nxyz\t0.2\nq\t0.01\nbad line\nzz\tnan?\nabcd\t0.1\n\n"
	n, err := m.LoadNgrams(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("expected 3 n-grams, got %d", n)
	}
	if m.BigramProbability('q', 'u') != 0.5 {
		t.Errorf("expected loaded bigram")
	}
	s := m.Stats()
	if s.Unigrams != 1 || s.Bigrams != 1 || s.Trigrams != 1 {
		t.Errorf("unexpected stats %+v", s)
	}
}

func TestPartialTablesLoad(t *testing.T) {
	m := New(&Tables{
		Bigram:  map[string]float32{"th": 0.5},
		Trigram: map[string]float32{"the": 0.4},
	})
	n, err := m.LoadNgrams(strings.NewReader("a\t0.1\nqu\t0.2\n"))
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("loaded %d n-grams, want 2", n)
	}
	if got := m.BigramProbability('q', 'u'); got != 0.2 {
		t.Errorf("P(qu) = %v, want 0.2", got)
	}
	if got := m.StartProbability('t'); got != Floor {
		t.Errorf("start(t) = %v, want floor", got)
	}
	if p := m.WordProbability("the"); p <= 0 {
		t.Errorf("P(the) = %v", p)
	}
}
