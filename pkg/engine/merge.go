package engine

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/bastiangx/swipeserve/pkg/decoder"
)

// prior combines the word-level language model, character n-gram
// plausibility and dictionary frequency into P(word).
func (e *Engine) prior(word, prev string) float32 {
	p := e.lm.Probability(word, prev)
	p *= e.ngrams.WordProbability(word)
	p *= 0.5 + 0.5*e.gen.Vocabulary().NormalizedFrequency(word)
	return p
}

// merge folds neural candidates into the decoder ranking, applies the
// personalization blend and re-sorts.
func (e *Engine) merge(results []decoder.Result, neural []NeuralCandidate, raw string) []Suggestion {
	w := float32(0)
	if len(neural) > 0 {
		w = e.cfg.NeuralWeight
	}

	byWord := make(map[string]int, len(results)+len(neural))
	out := make([]Suggestion, 0, len(results)+len(neural))
	for _, r := range results {
		key := strings.ToLower(r.Word)
		if _, dup := byWord[key]; dup {
			continue
		}
		byWord[key] = len(out)
		out = append(out, Suggestion{
			Word:         r.Word,
			Score:        (1 - w) * r.Confidence,
			Confidence:   r.Confidence,
			EditDistance: r.EditDistance,
			KeySequence:  r.KeySequence.String(),
			Source:       "decoder",
		})
	}
	for _, n := range neural {
		key := strings.ToLower(n.Word)
		if i, ok := byWord[key]; ok {
			out[i].Score += w * n.Probability
			out[i].Source = "both"
			continue
		}
		byWord[key] = len(out)
		out = append(out, Suggestion{
			Word:         n.Word,
			Score:        w * n.Probability,
			EditDistance: matchr.Levenshtein(key, raw),
			KeySequence:  raw,
			Source:       "neural",
		})
	}

	for i := range out {
		out[i].Score = e.personal.AdjustScore(out[i].Word, out[i].Score)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit := e.cfg.Decoder.MaxCandidates; limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
