// Package decoder ranks candidate words for a swipe path with Bayesian
// scoring: P(word|path) is proportional to P(path|word)·P(word), normalized
// over the candidate set.
package decoder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/bastiangx/swipeserve/internal/observe"
	"github.com/bastiangx/swipeserve/pkg/gesture"
)

// ErrCancelled is returned when a decode is superseded or its context ends.
// It is control flow, never a user-facing failure.
var ErrCancelled = errors.New("decode cancelled")

// uniformPrior is used when no Prior is supplied.
const uniformPrior = 1.0 / 1000

type Config struct {
	MinPathLength      float32 // px; shorter paths are not decoded
	MinSwipeLength     float32 // px; path quality penalty below this
	MinConfidence      float32
	MaxCandidates      int
	ProximityRadius    float32 // px; sigma is half of it
	SmoothingWindow    int
	// MaxEditDistance narrows full decodes to near spellings of the traced
	// keys whenever at least one candidate qualifies.
	MaxEditDistance    int
	CurvatureThreshold float32 // radians
	Workers            int
}

func DefaultConfig() Config {
	return Config{
		MinPathLength:      10,
		MinSwipeLength:     50,
		MinConfidence:      0.01,
		MaxCandidates:      10,
		ProximityRadius:    100,
		SmoothingWindow:    3,
		MaxEditDistance:    2,
		CurvatureThreshold: 0.5,
		Workers:            4,
	}
}

// Result is one scored candidate. Probability and Confidence are normalized
// across the candidate set of a single Recognize call.
type Result struct {
	Word           string
	Probability    float32
	PathLikelihood float32
	WordPrior      float32
	Confidence     float32
	KeySequence    gesture.KeySequence
	PathScore      float32
	EditDistance   int
}

func (r Result) IsConfident(threshold float32) bool {
	return r.Confidence >= threshold
}

// Prior supplies P(word) given the previous committed word, which may be empty.
// Implementations must be safe for concurrent use.
type Prior interface {
	WordPrior(word, prev string) float32
}

type PriorFunc func(word, prev string) float32

func (f PriorFunc) WordPrior(word, prev string) float32 { return f(word, prev) }

// Request is the input to one decode.
type Request struct {
	Path []gesture.Point
	// Keys is the segmenter's key sequence. When empty it is extracted
	// from the path by nearest key.
	Keys       gesture.KeySequence
	Candidates []string
	Previous   string
}

type Option func(*Decoder)

// WithMetrics records decode latency and outcomes.
func WithMetrics(m *observe.Metrics) Option {
	return func(d *Decoder) { d.metrics = m }
}

// Decoder is safe for concurrent use. The layout may be replaced at any time;
// each Recognize call works on the layout current when it started.
type Decoder struct {
	cfg     Config
	metrics *observe.Metrics

	mu   sync.RWMutex
	keys map[rune]gesture.Point
}

func New(cfg Config, opts ...Option) *Decoder {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.ProximityRadius <= 0 {
		cfg.ProximityRadius = 100
	}
	d := &Decoder{cfg: cfg, keys: map[rune]gesture.Point{}}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Decoder) Config() Config { return d.cfg }

// SetLayout replaces the key centers used for scoring.
func (d *Decoder) SetLayout(positions map[rune]gesture.Point) {
	keys := make(map[rune]gesture.Point, len(positions))
	for r, p := range positions {
		keys[r] = p
	}
	d.mu.Lock()
	d.keys = keys
	d.mu.Unlock()
	log.Debugf("decoder layout set: %d keys", len(keys))
}

func (d *Decoder) layout() map[rune]gesture.Point {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.keys
}

// PathScore rates gesture quality in [0,1]. It penalizes short and jagged
// paths and does not take part in ranking.
func (d *Decoder) PathScore(path []gesture.Point) float32 {
	if len(path) < 2 {
		return 0
	}
	score := float32(1)
	if length := PathLength(path); d.cfg.MinSwipeLength > 0 && length < d.cfg.MinSwipeLength {
		score *= length / d.cfg.MinSwipeLength
	}
	if c := AverageCurvature(path); c > d.cfg.CurvatureThreshold {
		score *= 1 - (c - d.cfg.CurvatureThreshold)
	}
	return min(max(score, 0), 1)
}

func cancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCancelled, err)
	}
	return nil
}

// Recognize scores req.Candidates against req.Path and returns them sorted by
// descending probability, filtered by MinConfidence and capped at
// MaxCandidates. An empty result is not an error. Context cancellation is
// checked between smoothing, scoring and normalization.
func (d *Decoder) Recognize(ctx context.Context, req Request, prior Prior) ([]Result, error) {
	return d.recognize(ctx, req, prior, "full")
}

func (d *Decoder) recognize(ctx context.Context, req Request, prior Prior, kind string) (results []Result, err error) {
	start := time.Now()
	if d.metrics != nil {
		defer func() {
			status := "ok"
			switch {
			case errors.Is(err, ErrCancelled):
				status = "cancelled"
				d.metrics.RecordCancelled(context.WithoutCancel(ctx), kind)
			case err != nil:
				status = "error"
			case len(results) == 0:
				status = "empty"
			}
			d.metrics.RecordDecode(context.WithoutCancel(ctx), kind, status, time.Since(start).Seconds())
			if kind == "full" && err == nil {
				d.metrics.Candidates.Record(context.WithoutCancel(ctx), int64(len(results)))
			}
		}()
	}

	if len(req.Path) < 2 || len(req.Candidates) == 0 {
		return nil, nil
	}
	if length := PathLength(req.Path); length < d.cfg.MinPathLength {
		log.Debugf("path length %.1f < %.1f, skipping decode", length, d.cfg.MinPathLength)
		return nil, nil
	}
	keys := d.layout()
	if len(keys) == 0 {
		log.Warnf("decode requested without a layout")
		return nil, nil
	}

	smoothed := Smooth(req.Path, d.cfg.SmoothingWindow)
	seq := req.Keys
	if len(seq) == 0 {
		seq = ExtractKeySequence(smoothed, keys, d.cfg.ProximityRadius)
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	scored, err := d.score(ctx, smoothed, seq, req, keys, prior)
	if err != nil {
		return nil, err
	}
	if err := cancelled(ctx); err != nil {
		return nil, err
	}

	return d.normalize(scored), nil
}

func (d *Decoder) score(ctx context.Context, path []gesture.Point, seq gesture.KeySequence,
	req Request, keys map[rune]gesture.Point, prior Prior) ([]Result, error) {
	sigma := d.cfg.ProximityRadius / 2
	pathScore := d.PathScore(path)
	raw := seq.String()
	results := make([]Result, len(req.Candidates))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.cfg.Workers)
	for i, word := range req.Candidates {
		g.Go(func() error {
			if err := cancelled(gctx); err != nil {
				return err
			}
			lower := strings.ToLower(word)
			likelihood := pathLikelihood([]rune(lower), path, keys, sigma)
			p := float32(uniformPrior)
			if prior != nil {
				p = prior.WordPrior(lower, req.Previous)
			}
			results[i] = Result{
				Word:           word,
				Probability:    likelihood * p,
				PathLikelihood: likelihood,
				WordPrior:      p,
				KeySequence:    seq,
				PathScore:      pathScore,
				EditDistance:   matchr.Levenshtein(lower, raw),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// normalize divides each joint score by their sum, the Bayesian evidence
// P(path). Candidates with a zero joint score are dropped first.
func (d *Decoder) normalize(results []Result) []Result {
	kept := results[:0]
	var total float64
	for _, r := range results {
		if r.Probability > 0 {
			kept = append(kept, r)
			total += float64(r.Probability)
		}
	}
	if total == 0 {
		return nil
	}

	out := make([]Result, 0, len(kept))
	for _, r := range kept {
		p := float32(float64(r.Probability) / total)
		r.Probability = p
		r.Confidence = p
		if p >= d.cfg.MinConfidence {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Probability > out[j].Probability
	})
	if d.cfg.MaxCandidates > 0 && len(out) > d.cfg.MaxCandidates {
		out = out[:d.cfg.MaxCandidates]
	}
	return out
}

// WithinEditDistance keeps results whose spelling is at most maxDist edits
// from the traced key sequence.
func WithinEditDistance(results []Result, maxDist int) []Result {
	var out []Result
	for _, r := range results {
		if r.EditDistance <= maxDist {
			out = append(out, r)
		}
	}
	return out
}
