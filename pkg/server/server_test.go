package server

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/swipeserve/pkg/engine"
	"github.com/bastiangx/swipeserve/pkg/layout"
	"github.com/bastiangx/swipeserve/pkg/suggest"
)

func newEngine() *engine.Engine {
	v := suggest.NewVocabulary()
	v.AddWord("hello", 100)
	v.AddWord("halo", 50)
	v.AddWord("help", 90)
	v.AddWord("world", 95)
	return engine.New(engine.DefaultConfig(), engine.Deps{Vocabulary: v})
}

func trace(word string) []Point {
	var out []Point
	for _, p := range layout.QWERTY(100, 80).Trace(word, 30, 40) {
		out = append(out, Point{X: p.X, Y: p.Y, T: p.T})
	}
	return out
}

// run feeds reqs to a fresh server and returns a decoder positioned after
// the ready message.
func run(t *testing.T, e *engine.Engine, reqs ...any) *msgpack.Decoder {
	t.Helper()
	var in, out bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	for _, r := range reqs {
		if err := enc.Encode(r); err != nil {
			t.Fatal(err)
		}
	}
	srv := NewServerWithIO(e, DefaultOptions(), &in, &out)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	dec := msgpack.NewDecoder(&out)
	var ready StatusResponse
	if err := dec.Decode(&ready); err != nil || ready.Status != "ready" {
		t.Fatalf("ready = %+v, %v", ready, err)
	}
	return dec
}

// next decodes the next non-partial message into v and returns how many
// partial pushes were skipped.
func next(t *testing.T, dec *msgpack.Decoder, v any) int {
	t.Helper()
	skipped := 0
	for {
		var raw msgpack.RawMessage
		if err := dec.Decode(&raw); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		var probe struct {
			Partial bool `msgpack:"partial"`
		}
		if err := msgpack.Unmarshal(raw, &probe); err != nil {
			t.Fatal(err)
		}
		if probe.Partial {
			skipped++
			continue
		}
		if err := msgpack.Unmarshal(raw, v); err != nil {
			t.Fatal(err)
		}
		return skipped
	}
}

// collect reads n final responses keyed by ID, plus every partial push seen
// on the way. Background decodes answer out of request order.
func collect(t *testing.T, dec *msgpack.Decoder, n int) (map[string]msgpack.RawMessage, []PartialResponse) {
	t.Helper()
	final := make(map[string]msgpack.RawMessage, n)
	var partials []PartialResponse
	for len(final) < n {
		var raw msgpack.RawMessage
		if err := dec.Decode(&raw); err != nil {
			t.Fatalf("decode response %d of %d: %v", len(final)+1, n, err)
		}
		var head struct {
			ID      string `msgpack:"id"`
			Partial bool   `msgpack:"partial"`
		}
		if err := msgpack.Unmarshal(raw, &head); err != nil {
			t.Fatal(err)
		}
		if head.Partial {
			var p PartialResponse
			unpack(t, raw, &p)
			partials = append(partials, p)
			continue
		}
		final[head.ID] = raw
	}
	return final, partials
}

func unpack(t *testing.T, raw msgpack.RawMessage, v any) {
	t.Helper()
	if raw == nil {
		t.Fatal("response missing")
	}
	if err := msgpack.Unmarshal(raw, v); err != nil {
		t.Fatal(err)
	}
}

func hasWord(cands []Candidate, w string) bool {
	for _, c := range cands {
		if c.Word == w {
			return true
		}
	}
	return false
}

func TestHealthAndUnknownAction(t *testing.T) {
	dec := run(t, newEngine(),
		Request{ID: "h1", Action: "health"},
		Request{ID: "x1", Action: "dance"},
	)
	var status StatusResponse
	next(t, dec, &status)
	if status.ID != "h1" || status.Status != "ok" {
		t.Errorf("health = %+v", status)
	}
	var errResp ErrorResponse
	next(t, dec, &errResp)
	if errResp.ID != "x1" || errResp.Code != 400 {
		t.Errorf("unknown action = %+v", errResp)
	}
}

func TestMalformedRequest(t *testing.T) {
	dec := run(t, newEngine(), "not a map", Request{ID: "h1", Action: "health"})
	var errResp ErrorResponse
	next(t, dec, &errResp)
	if errResp.Code != 400 {
		t.Errorf("malformed = %+v", errResp)
	}
	var status StatusResponse
	next(t, dec, &status)
	if status.ID != "h1" {
		t.Errorf("server did not recover: %+v", status)
	}
}

func TestSwipe(t *testing.T) {
	for _, req := range []Request{
		{ID: "s1", Action: "swipe", Points: trace("hello")},
		{ID: "s2", Action: "swipe", Points: trace("hello"), Keys: "hello"},
	} {
		id := req.ID
		dec := run(t, newEngine(), req)
		var resp SwipeResponse
		next(t, dec, &resp)
		if resp.ID != id || !resp.Swipe {
			t.Fatalf("response = %+v", resp)
		}
		if !hasWord(resp.Candidates, "hello") {
			t.Errorf("%s: hello missing from %+v", id, resp.Candidates)
		}
		if resp.Count != len(resp.Candidates) {
			t.Errorf("%s: count %d for %d candidates", id, resp.Count, len(resp.Candidates))
		}
		for i := 1; i < len(resp.Candidates); i++ {
			if resp.Candidates[i].Score > resp.Candidates[i-1].Score {
				t.Errorf("%s: candidates not sorted", id)
			}
		}
	}
}

func TestTapIsNotASwipe(t *testing.T) {
	dec := run(t, newEngine(), Request{ID: "t1", Action: "swipe", Points: []Point{{X: 50, Y: 40, T: 0}, {X: 52, Y: 41, T: 20}}})
	var resp SwipeResponse
	next(t, dec, &resp)
	if resp.Swipe || resp.Count != 0 {
		t.Errorf("tap = %+v", resp)
	}
}

func TestSwipeValidation(t *testing.T) {
	dec := run(t, newEngine(), Request{ID: "v1", Action: "swipe"})
	var errResp ErrorResponse
	next(t, dec, &errResp)
	if errResp.ID != "v1" || errResp.Code != 400 {
		t.Errorf("empty swipe = %+v", errResp)
	}
}

func TestLiveGesture(t *testing.T) {
	pts := trace("hello")
	dec := run(t, newEngine(),
		Request{ID: "b1", Action: "begin", Points: pts[:3]},
		Request{ID: "m1", Action: "move", Points: pts[3 : len(pts)-1]},
		Request{ID: "e1", Action: "end", Points: pts[len(pts)-1:]},
		Request{ID: "m2", Action: "move", Points: pts[:1]},
	)
	got, _ := collect(t, dec, 4)
	var status StatusResponse
	unpack(t, got["b1"], &status)
	if status.Status != "recording" {
		t.Errorf("begin = %+v", status)
	}
	unpack(t, got["m1"], &status)
	if status.Status != "recording" {
		t.Errorf("move = %+v", status)
	}
	var resp SwipeResponse
	unpack(t, got["e1"], &resp)
	if !resp.Swipe || !hasWord(resp.Candidates, "hello") {
		t.Errorf("end = %+v", resp)
	}
	var errResp ErrorResponse
	unpack(t, got["m2"], &errResp)
	if errResp.Code != 400 {
		t.Errorf("move after end = %+v", errResp)
	}
}

// stallFirst blocks its first prediction until the decode is cancelled.
type stallFirst struct{ calls atomic.Int32 }

func (s *stallFirst) Predict(ctx context.Context, _ [][]float32) ([]engine.NeuralCandidate, error) {
	if s.calls.Add(1) == 1 {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return nil, nil
}

func TestNewSwipeSupersedesDecode(t *testing.T) {
	v := suggest.NewVocabulary()
	v.AddWord("hello", 100)
	v.AddWord("help", 90)
	e := engine.New(engine.DefaultConfig(), engine.Deps{Vocabulary: v, Neural: &stallFirst{}})
	dec := run(t, e,
		Request{ID: "s1", Action: "swipe", Points: trace("hello")},
		Request{ID: "s2", Action: "swipe", Points: trace("hello")},
	)
	got, _ := collect(t, dec, 2)
	var stale SwipeResponse
	unpack(t, got["s1"], &stale)
	if !stale.Superseded || stale.Count != 0 {
		t.Errorf("stale swipe = %+v", stale)
	}
	var resp SwipeResponse
	unpack(t, got["s2"], &resp)
	if !resp.Swipe || !hasWord(resp.Candidates, "hello") {
		t.Errorf("replacing swipe = %+v", resp)
	}
}

func TestSwipeDropsAbandonedGesturePartials(t *testing.T) {
	pts := trace("hello")
	dec := run(t, newEngine(),
		Request{ID: "b1", Action: "begin", Points: pts[:2]},
		Request{ID: "s1", Action: "swipe", Points: pts},
	)
	got, partials := collect(t, dec, 2)
	if len(partials) != 0 {
		t.Errorf("plain swipe produced %d partial pushes, first %+v", len(partials), partials[0])
	}
	var resp SwipeResponse
	unpack(t, got["s1"], &resp)
	if !resp.Swipe {
		t.Errorf("swipe = %+v", resp)
	}
}

func TestCommitAndPredict(t *testing.T) {
	dec := run(t, newEngine(),
		Request{ID: "c1", Action: "commit", Word: "hello"},
		Request{ID: "c2", Action: "commit", Word: "world"},
		Request{ID: "c3", Action: "commit", Word: "42"},
		Request{ID: "p1", Action: "predict", Previous: "hello"},
	)
	var status StatusResponse
	next(t, dec, &status)
	next(t, dec, &status)
	if status.ID != "c2" || status.Status != "ok" {
		t.Errorf("commit = %+v", status)
	}
	var errResp ErrorResponse
	next(t, dec, &errResp)
	if errResp.ID != "c3" {
		t.Errorf("invalid commit = %+v", errResp)
	}
	var pred PredictResponse
	next(t, dec, &pred)
	if pred.Count != 1 || pred.Predictions[0].Word != "world" {
		t.Errorf("predict = %+v", pred)
	}
}

func TestComplete(t *testing.T) {
	dec := run(t, newEngine(), Request{ID: "x1", Action: "complete", Prefix: "hel", Limit: 5})
	var resp CompletionResponse
	next(t, dec, &resp)
	if resp.Count != 2 {
		t.Fatalf("complete = %+v", resp)
	}
	if resp.Suggestions[0].Word != "hello" || resp.Suggestions[0].Rank != 1 || resp.Suggestions[1].Word != "help" {
		t.Errorf("suggestions = %+v", resp.Suggestions)
	}
}

func TestLayout(t *testing.T) {
	e := newEngine()
	dec := run(t, e,
		Request{ID: "l1", Action: "layout", Layout: &LayoutSpec{KeyWidth: 50, KeyHeight: 40, Keys: map[string]KeyPoint{
			"a": {X: 25, Y: 20}, "b": {X: 75, Y: 20},
		}}},
		Request{ID: "l2", Action: "layout", Layout: &LayoutSpec{KeyWidth: 50, KeyHeight: 40, Keys: map[string]KeyPoint{"ab": {}}}},
		Request{ID: "l3", Action: "layout"},
	)
	var status StatusResponse
	next(t, dec, &status)
	if status.ID != "l1" || status.Status != "ok" {
		t.Errorf("layout = %+v", status)
	}
	if e.Layout().Len() != 2 || e.Layout().KeyWidth() != 50 {
		t.Errorf("layout not applied: %d keys", e.Layout().Len())
	}
	for _, id := range []string{"l2", "l3"} {
		var errResp ErrorResponse
		next(t, dec, &errResp)
		if errResp.ID != id || errResp.Code != 400 {
			t.Errorf("%s = %+v", id, errResp)
		}
	}
}

func TestStats(t *testing.T) {
	dec := run(t, newEngine(),
		Request{ID: "h1", Action: "health"},
		Request{ID: "s1", Action: "stats"},
	)
	var status StatusResponse
	next(t, dec, &status)
	var stats StatsResponse
	next(t, dec, &stats)
	if stats.Vocabulary != 4 || stats.Language != "en" || stats.Requests != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
