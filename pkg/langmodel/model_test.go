package langmodel

import (
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
)

func near(a, b float32) bool {
	return math.Abs(float64(a-b)) < 1e-6
}

func TestContextBoostsProbability(t *testing.T) {
	m := New(DefaultConfig())

	bare := m.Probability("be", "")
	withCtx := m.Probability("be", "to")
	if !near(bare, 0.04) {
		t.Errorf("expected unigram 0.04, got %v", bare)
	}
	if withCtx <= bare {
		t.Errorf("expected P(be|to)=%v > P(be)=%v", withCtx, bare)
	}
	want := float32(0.95*0.12 + 0.05*0.04)
	if !near(withCtx, want) {
		t.Errorf("expected %v, got %v", want, withCtx)
	}
}

func TestFloorProbability(t *testing.T) {
	m := New(DefaultConfig())
	words := []string{"", "zzzz", "the", "qwertyuiop"}
	prevs := []string{"", "of", "nothing", "zzzz"}
	for _, w := range words {
		for _, p := range prevs {
			got := m.Probability(w, p)
			if got <= 0 {
				t.Errorf("Probability(%q, %q) = %v", w, p, got)
			}
			if got < DefaultFloor {
				t.Errorf("Probability(%q, %q) = %v below floor", w, p, got)
			}
			if math.IsInf(float64(m.ScoreWord(w, p)), -1) {
				t.Errorf("ScoreWord(%q, %q) is -Inf", w, p)
			}
		}
	}
}

func TestContextMultiplier(t *testing.T) {
	m := New(DefaultConfig())

	if got := m.ContextMultiplier("be", ""); got != 1 {
		t.Errorf("no context should be neutral, got %v", got)
	}
	// 0.116 / 0.04 = 2.9
	if got := m.ContextMultiplier("be", "to"); got < 2.8 || got > 3.0 {
		t.Errorf("expected ~2.9, got %v", got)
	}
	// unseen bigram with a known unigram is penalized down to the clamp
	if got := m.ContextMultiplier("the", "zebra"); got != minMultiplier {
		t.Errorf("expected clamp at %v, got %v", minMultiplier, got)
	}
	// seeded bigram for a word missing from the unigram table is capped
	if got := m.ContextMultiplier("course", "of"); got != maxMultiplier {
		t.Errorf("expected clamp at %v, got %v", maxMultiplier, got)
	}
}

func TestLanguageFallback(t *testing.T) {
	m := New(DefaultConfig())

	m.SetLanguage("de")
	if m.CurrentLanguage() != "de" {
		t.Fatalf("expected de, got %s", m.CurrentLanguage())
	}
	if !near(m.Probability("der", ""), 0.055) {
		t.Errorf("expected german unigram, got %v", m.Probability("der", ""))
	}

	m.SetLanguage("klingon")
	if m.CurrentLanguage() != DefaultLanguage {
		t.Errorf("expected fallback to %s, got %s", DefaultLanguage, m.CurrentLanguage())
	}

	m.SetLanguage("fr")
	if err := m.Select("xx"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
	if m.CurrentLanguage() != "fr" {
		t.Errorf("Select failure must not change the language, got %s", m.CurrentLanguage())
	}
	if !m.IsSupported("ES") {
		t.Error("expected es to be supported")
	}
}

func TestAddObservation(t *testing.T) {
	m := New(DefaultConfig())
	before := m.Probability("pizza", "eat")

	for i := 0; i < 10; i++ {
		m.AddObservation("eat", "pizza", 0.5)
	}
	after := m.Probability("pizza", "eat")
	if after <= before {
		t.Errorf("expected observation to raise probability: %v -> %v", before, after)
	}

	// 0.9·0.12 + 0.1·1 = 0.208
	m.AddObservation("to", "be", 3)
	if got := m.Probability("be", "to"); !near(got, 0.95*0.208+0.05*0.04) {
		t.Errorf("weight should clamp to 1, got %v", got)
	}
}

func TestConcurrentReadsDuringAdaptation(t *testing.T) {
	m := New(DefaultConfig())
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				_ = m.Probability("be", "to")
				_ = m.ContextMultiplier("the", "of")
			}
		}()
	}
	for j := 0; j < 200; j++ {
		m.AddObservation("to", "be", 0.3)
	}
	wg.Wait()
}

func TestLoadTable(t *testing.T) {
	m := New(Config{Language: "en"})
	input := strings.Join([]string{
		"# comment",
		"to be 0.5",
		"be 0.2",
		"broken line here extra",
		"to go notanumber",
		"to see 1.5",
		"",
	}, "\n")

	n, err := m.LoadTable("en", strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 entries, got %d", n)
	}
	if !near(m.Probability("be", ""), 0.2) {
		t.Errorf("expected unigram 0.2, got %v", m.Probability("be", ""))
	}
	if got := m.Probability("see", "to"); got > 0.001 {
		t.Errorf("out-of-range line should be skipped, got %v", got)
	}
	if m.WordFrequency("be") != 200 {
		t.Errorf("expected frequency 200, got %d", m.WordFrequency("be"))
	}
}

func TestStats(t *testing.T) {
	m := New(DefaultConfig())
	s := m.Stats()
	if s.Languages != 4 || s.Language != "en" || s.Unigrams != 20 {
		t.Errorf("unexpected stats %+v", s)
	}
	if len(m.Words()) != 20 {
		t.Errorf("expected 20 words, got %d", len(m.Words()))
	}
}
