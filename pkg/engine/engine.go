// Package engine wires the decoding pipeline together: touch events go
// through the gesture segmenter, swipes are decoded against the vocabulary
// with language-model priors, optional neural candidates are merged in, and
// committed words feed personalization.
//
// Begin, Move and End must be called from a single goroutine. Decoding runs
// in the background and can be cancelled by the next gesture.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/bastiangx/swipeserve/internal/observe"
	"github.com/bastiangx/swipeserve/internal/utils"
	"github.com/bastiangx/swipeserve/pkg/decoder"
	"github.com/bastiangx/swipeserve/pkg/gesture"
	"github.com/bastiangx/swipeserve/pkg/langmodel"
	"github.com/bastiangx/swipeserve/pkg/layout"
	"github.com/bastiangx/swipeserve/pkg/ngram"
	"github.com/bastiangx/swipeserve/pkg/personal"
	"github.com/bastiangx/swipeserve/pkg/resample"
	"github.com/bastiangx/swipeserve/pkg/suggest"
)

// State is the recognition state of the current gesture.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateProcessing
	StateComplete
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateProcessing:
		return "processing"
	case StateComplete:
		return "complete"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

type Config struct {
	Gesture   gesture.Config
	Decoder   decoder.Config
	Generator suggest.GeneratorConfig
	// ResampleLength is the fixed trajectory length handed to the neural model.
	ResampleLength int
	ResampleMode   resample.Mode
	// PartialEvery triggers a live decode on every Nth admitted point; 0 disables it.
	PartialEvery int
	// NeuralWeight is the share of the neural probability in merged scores.
	NeuralWeight float32
	// ObservationWeight feeds committed word pairs back into the language model.
	ObservationWeight float32
}

func DefaultConfig() Config {
	return Config{
		Gesture:           gesture.DefaultConfig(),
		Decoder:           decoder.DefaultConfig(),
		Generator:         suggest.DefaultGeneratorConfig(),
		ResampleLength:    150,
		ResampleMode:      resample.Discard,
		PartialEvery:      5,
		NeuralWeight:      0.5,
		ObservationWeight: 0.5,
	}
}

// NeuralCandidate is one (word, probability) pair from a neural recognizer.
type NeuralCandidate struct {
	Word        string
	Probability float32
}

// Neural is an external recognizer fed with the resampled trajectory. Each
// row is {x, y, t} with t in milliseconds since touch-down.
type Neural interface {
	Predict(ctx context.Context, features [][]float32) ([]NeuralCandidate, error)
}

// Deps are the collaborators an Engine uses. Nil fields get built-in defaults.
type Deps struct {
	Layout     *layout.Layout
	Vocabulary *suggest.Vocabulary
	Language   *langmodel.Model
	Ngrams     *ngram.Model
	Personal   *personal.Store
	Neural     Neural
	Metrics    *observe.Metrics
}

// Suggestion is one merged, personalized candidate.
type Suggestion struct {
	Word         string
	Score        float32
	Confidence   float32
	EditDistance int
	KeySequence  string
	Source       string
}

type Engine struct {
	cfg      Config
	session  *gesture.Session
	layout   *layout.Layout
	decoder  *decoder.Decoder
	partial  *decoder.Partial
	gen      *suggest.Generator
	lm       *langmodel.Model
	ngrams   *ngram.Model
	personal *personal.Store
	neural   Neural
	metrics  *observe.Metrics

	admitted  int
	onPartial func(decoder.Result)

	mu       sync.Mutex
	state    State
	previous string
	last     []Suggestion
	cancel   context.CancelFunc

	// seq identifies the newest gesture; stale decodes compare against it.
	seq     uint64
	decodes sync.WaitGroup
}

func New(cfg Config, deps Deps) *Engine {
	if deps.Layout == nil {
		deps.Layout = layout.QWERTY(100, 80)
	}
	if deps.Vocabulary == nil {
		deps.Vocabulary = suggest.NewEnglishVocabulary()
	}
	if deps.Language == nil {
		deps.Language = langmodel.New(langmodel.DefaultConfig())
	}
	if deps.Ngrams == nil {
		deps.Ngrams = ngram.NewEnglish()
	}
	if deps.Personal == nil {
		deps.Personal = personal.New(personal.DefaultConfig(), nil)
	}

	var opts []decoder.Option
	if deps.Metrics != nil {
		opts = append(opts, decoder.WithMetrics(deps.Metrics))
	}
	dec := decoder.New(cfg.Decoder, opts...)

	e := &Engine{
		cfg:      cfg,
		session:  gesture.NewSession(cfg.Gesture),
		decoder:  dec,
		partial:  decoder.NewPartial(dec),
		gen:      suggest.NewGenerator(deps.Vocabulary, cfg.Generator),
		lm:       deps.Language,
		ngrams:   deps.Ngrams,
		personal: deps.Personal,
		neural:   deps.Neural,
		metrics:  deps.Metrics,
		previous: deps.Personal.Stats().LastWord,
	}
	e.SetLayout(deps.Layout)
	return e
}

// SetLayout replaces the keyboard geometry. It abandons the current gesture
// and waits for background decodes to stop. It must not race with Begin,
// Move or End.
func (e *Engine) SetLayout(l *layout.Layout) {
	e.Cancel()
	e.decodes.Wait()
	e.partial.Wait()
	e.layout = l
	e.session.SetKeyDimensions(l.KeyWidth(), l.KeyHeight())
	e.decoder.SetLayout(l.Positions())
	e.gen.SetKeyWidth(l.KeyWidth())
}

func (e *Engine) Layout() *layout.Layout { return e.layout }

// OnPartial registers the receiver for live best-so-far candidates. It is
// called from a background goroutine.
func (e *Engine) OnPartial(fn func(decoder.Result)) {
	e.onPartial = fn
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Previous is the last committed word, used as bigram context.
func (e *Engine) Previous() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.previous
}

// LastSuggestions returns the result of the most recent completed decode.
func (e *Engine) LastSuggestions() []Suggestion {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Suggestion, len(e.last))
	copy(out, e.last)
	return out
}

// Begin starts a gesture and cancels any decode still running for the previous one.
func (e *Engine) Begin(p gesture.TouchPoint) {
	e.partial.Cancel()
	e.mu.Lock()
	e.supersede()
	e.state = StateRecording
	e.mu.Unlock()

	e.session.Begin(p, e.layout.KeyAt(p.Point()))
	e.admitted = 1
}

// supersede cancels the running decode and invalidates its outcome. mu must be held.
func (e *Engine) supersede() {
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
	e.seq++
}

// Move feeds a touch-move sample and reports whether it was admitted.
func (e *Engine) Move(ctx context.Context, p gesture.TouchPoint) bool {
	if !e.session.AddPoint(p, e.layout.KeyAt(p.Point())) {
		return false
	}
	e.admitted++
	if e.cfg.PartialEvery > 0 && e.admitted%e.cfg.PartialEvery == 0 && e.onPartial != nil {
		e.submitPartial(ctx)
	}
	return true
}

func (e *Engine) submitPartial(ctx context.Context) {
	keys := e.session.Keys()
	if len(keys) == 0 {
		return
	}
	req := decoder.Request{
		Path:       points(e.session.Path()),
		Keys:       keys,
		Candidates: e.gen.Candidates(keys, e.session.TotalDistance()),
		Previous:   e.Previous(),
	}
	fn := e.onPartial
	e.partial.Submit(ctx, req, decoder.PriorFunc(e.prior), func(best decoder.Result, ok bool) {
		if ok {
			fn(best)
		}
	})
}

// WaitPartial blocks until in-flight partial decodes have returned.
func (e *Engine) WaitPartial() { e.partial.Wait() }

// Cancel abandons the current gesture and any decode in flight.
func (e *Engine) Cancel() {
	e.partial.Cancel()
	e.session.Reset()
	e.mu.Lock()
	e.supersede()
	e.state = StateIdle
	e.mu.Unlock()
}

// Outcome is the result of one full decode.
type Outcome struct {
	Suggestions []Suggestion
	// Swipe is false when the gesture was a tap and nothing was decoded.
	Swipe bool
	// Superseded is set when a newer gesture or Cancel replaced the decode
	// before it finished. Suggestions is empty then.
	Superseded bool
}

func resolved(o Outcome) <-chan Outcome {
	ch := make(chan Outcome, 1)
	ch <- o
	return ch
}

// End closes the gesture and decodes it on a background goroutine. The
// channel receives exactly one Outcome; a tap resolves immediately with
// Swipe unset. The next Begin or Cancel aborts the decode.
func (e *Engine) End(ctx context.Context) <-chan Outcome {
	e.partial.Cancel()
	keys, swipe := e.session.End()
	if !swipe {
		e.setState(StateIdle)
		return resolved(Outcome{})
	}
	return e.DecodeAsync(ctx, e.session.Path(), keys)
}

// DecodeAsync starts a full decode of a completed path, replacing any decode
// still in flight. Failures resolve to an empty list and are logged.
func (e *Engine) DecodeAsync(ctx context.Context, path []gesture.TouchPoint, keys gesture.KeySequence) <-chan Outcome {
	ctx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.supersede()
	seq := e.seq
	e.cancel = cancel
	e.state = StateProcessing
	e.mu.Unlock()

	ch := make(chan Outcome, 1)
	e.decodes.Add(1)
	go func() {
		defer e.decodes.Done()
		defer cancel()
		ch <- e.decode(ctx, seq, path, keys)
	}()
	return ch
}

func (e *Engine) decode(ctx context.Context, seq uint64, path []gesture.TouchPoint, keys gesture.KeySequence) Outcome {
	pts := points(path)
	prev := e.Previous()
	cands := e.gen.Candidates(keys, decoder.PathLength(pts))
	if !e.ngrams.HasValidNgrams(keys.String()) {
		log.Debugf("key sequence %q has few known bigrams", keys.String())
	}

	var neural []NeuralCandidate
	if e.neural != nil {
		neural = e.runNeural(ctx, path)
		for _, n := range neural {
			cands = append(cands, n.Word)
		}
	}

	results, err := e.decoder.Recognize(ctx, decoder.Request{
		Path:       pts,
		Keys:       keys,
		Candidates: dedupe(cands),
		Previous:   prev,
	}, decoder.PriorFunc(e.prior))
	if err != nil {
		if errors.Is(err, decoder.ErrCancelled) {
			log.Debugf("decode for %q cancelled", keys.String())
			if !e.finish(seq, StateIdle, nil) {
				return Outcome{Swipe: true, Superseded: true}
			}
			return Outcome{Swipe: true}
		}
		log.Errorf("decode failed: %v", err)
		e.finish(seq, StateError, nil)
		return Outcome{Swipe: true}
	}

	if near := decoder.WithinEditDistance(results, e.cfg.Decoder.MaxEditDistance); len(near) > 0 {
		results = near
	}
	merged := e.merge(results, neural, keys.String())
	if !e.finish(seq, StateComplete, merged) {
		log.Debugf("decode for %q superseded", keys.String())
		return Outcome{Swipe: true, Superseded: true}
	}
	return Outcome{Suggestions: merged, Swipe: true}
}

// finish records the outcome of decode seq unless a newer gesture has
// replaced it.
func (e *Engine) finish(seq uint64, s State, last []Suggestion) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seq != seq {
		return false
	}
	e.state = s
	e.cancel = nil
	if s == StateComplete {
		e.last = last
	}
	return true
}

// Features resamples a path into the fixed-length {x, y, t} rows consumed by
// the neural recognizer.
func (e *Engine) Features(path []gesture.TouchPoint) ([][]float32, error) {
	if len(path) == 0 {
		return nil, resample.ErrInvalidTrajectory
	}
	rows := make([][]float32, len(path))
	t0 := path[0].T
	for i, p := range path {
		rows[i] = []float32{p.X, p.Y, float32(p.T - t0)}
	}
	out, err := resample.Resample(rows, e.cfg.ResampleLength, e.cfg.ResampleMode)
	if err != nil {
		return nil, err
	}
	log.Debugf("features: %s (%s)", resample.NewStats(len(rows), len(out)), e.cfg.ResampleMode)
	return out, nil
}

func (e *Engine) runNeural(ctx context.Context, path []gesture.TouchPoint) []NeuralCandidate {
	features, err := e.Features(path)
	if err != nil {
		log.Warnf("neural features: %v", err)
		return nil
	}
	start := time.Now()
	out, err := e.neural.Predict(ctx, features)
	if err != nil {
		log.Warnf("neural predict failed: %v", err)
		return nil
	}
	log.Debugf("neural: %d candidates in %v", len(out), time.Since(start))
	return out
}

// Commit records a chosen word: personalization counts, the bigram it forms
// with the previous commit, and the language-model adaptation hook.
func (e *Engine) Commit(word string) error {
	w := utils.LettersOnly(word)
	if !utils.IsWordInput(word) || w == "" {
		return fmt.Errorf("not a word: %q", word)
	}
	prev := e.Previous()
	e.personal.RecordWordUsage(w)
	if prev != "" && e.cfg.ObservationWeight > 0 {
		e.lm.AddObservation(prev, w, e.cfg.ObservationWeight)
	}
	if !e.gen.Vocabulary().Contains(w) {
		e.gen.AddWord(w, 1)
	}
	if e.metrics != nil {
		e.metrics.Commits.Add(context.Background(), 1)
	}

	e.mu.Lock()
	e.previous = w
	e.mu.Unlock()
	return nil
}

// SetPrevious overrides the bigram context, e.g. when the host app knows the
// word before the cursor.
func (e *Engine) SetPrevious(word string) {
	e.mu.Lock()
	e.previous = utils.LettersOnly(word)
	e.mu.Unlock()
}

// Decay halves personalization counts so stale words lose influence.
func (e *Engine) Decay() { e.personal.ApplyDecay() }

// ResetContext forgets the previous committed word, e.g. at a sentence boundary.
func (e *Engine) ResetContext() {
	e.mu.Lock()
	e.previous = ""
	e.mu.Unlock()
}

// Predict returns next-word predictions after prev, or after the last commit
// when prev is empty.
func (e *Engine) Predict(prev string, k int) []personal.Prediction {
	if prev == "" {
		prev = e.Previous()
	}
	return e.personal.NextWordPredictions(prev, k)
}

func (e *Engine) SetLanguage(lang string) { e.lm.SetLanguage(lang) }

func (e *Engine) Language() *langmodel.Model    { return e.lm }
func (e *Engine) Ngrams() *ngram.Model          { return e.ngrams }
func (e *Engine) Personal() *personal.Store     { return e.personal }
func (e *Engine) Generator() *suggest.Generator { return e.gen }

// Stats summarizes every component for diagnostics.
type Stats struct {
	State      string
	Language   langmodel.Stats
	Ngrams     ngram.Stats
	Personal   personal.Stats
	Vocabulary map[string]int
}

func (e *Engine) Stats() Stats {
	return Stats{
		State:      e.State().String(),
		Language:   e.lm.Stats(),
		Ngrams:     e.ngrams.Stats(),
		Personal:   e.personal.Stats(),
		Vocabulary: e.gen.Stats(),
	}
}

// Close cancels background work and flushes personalization.
func (e *Engine) Close(ctx context.Context) error {
	e.Cancel()
	e.decodes.Wait()
	e.partial.Wait()
	return e.personal.Close(ctx)
}

func points(path []gesture.TouchPoint) []gesture.Point {
	out := make([]gesture.Point, len(path))
	for i, p := range path {
		out[i] = p.Point()
	}
	return out
}

func dedupe(words []string) []string {
	f := utils.NewSuggestionFilter()
	out := words[:0:0]
	for _, w := range words {
		if f.ShouldInclude(w) {
			out = append(out, w)
		}
	}
	return out
}
