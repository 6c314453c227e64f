/*
Package server implements msgpack IPC for swipe decoding.

Clients write msgpack-encoded requests to stdin and read msgpack-encoded
responses from stdout. Messages are not delimited: each one is a single
msgpack map, decoded back to back from the stream. Every request carries an
ID and an action; the response echoes the ID.

# IPC

A completed swipe is sent as one message with its sampled points. Keys is
optional: when empty the touched keys are extracted from the path.

	{"id": "req_001", "action": "swipe", "pts": [{"x": 612, "y": 118, "t": 0}, ...], "prev": "say"}

The server responds with candidates ranked by merged score:

	{"id": "req_001", "s": [{"w": "hello", "p": 0.71, "c": 0.64, "k": "hgfdsdfghjkl", "e": 3}], "n": 1, "t": 1450}

swipe_stream replays the points through the gesture segmenter and pushes
best-so-far partial results (marked "partial") before the final response.
A live gesture can also be fed incrementally with begin, move and end; the
partial pushes for it carry the ID of the begin message.

Decodes run in the background, so responses to swipe and end may arrive
after responses to later requests. A new swipe or begin cancels a decode
still in flight; the cancelled request is answered with an empty list and
"superseded" set.

Other actions:

	{"id": "c1", "action": "commit", "w": "hello"}
	{"id": "p1", "action": "predict", "prev": "hello", "l": 5}
	{"id": "x1", "action": "complete", "p": "hel", "l": 5}
	{"id": "l1", "action": "layout", "layout": {"kw": 100, "kh": 80, "keys": {"q": {"x": 50, "y": 40}}}}
	{"id": "g1", "action": "language", "lang": "de"}
	{"id": "r1", "action": "reset"}
	{"id": "d1", "action": "decay"}
	{"id": "h1", "action": "health"}
	{"id": "s1", "action": "stats"}

Failures are reported as {"id": ..., "e": message, "c": code} with HTTP-like
codes: 400 for malformed requests, 500 for internal errors.
*/
package server

// Point is one sampled touch location, T in milliseconds.
type Point struct {
	X float32 `msgpack:"x"`
	Y float32 `msgpack:"y"`
	T int64   `msgpack:"t"`
}

// KeyPoint is a key center in a layout message.
type KeyPoint struct {
	X float32 `msgpack:"x"`
	Y float32 `msgpack:"y"`
}

// LayoutSpec replaces the keyboard geometry.
type LayoutSpec struct {
	KeyWidth  float32             `msgpack:"kw"`
	KeyHeight float32             `msgpack:"kh"`
	Keys      map[string]KeyPoint `msgpack:"keys"`
}

// Request is the union of all request fields; Action selects which apply.
type Request struct {
	ID       string      `msgpack:"id"`
	Action   string      `msgpack:"action"`
	Points   []Point     `msgpack:"pts,omitempty"`
	Keys     string      `msgpack:"k,omitempty"`
	Previous string      `msgpack:"prev,omitempty"`
	Word     string      `msgpack:"w,omitempty"`
	Prefix   string      `msgpack:"p,omitempty"`
	Limit    int         `msgpack:"l,omitempty"`
	Language string      `msgpack:"lang,omitempty"`
	Layout   *LayoutSpec `msgpack:"layout,omitempty"`
}

// Candidate - minimal decoded candidate
type Candidate struct {
	Word         string  `msgpack:"w"`
	Score        float32 `msgpack:"p"`
	Confidence   float32 `msgpack:"c"`
	KeySequence  string  `msgpack:"k,omitempty"`
	EditDistance int     `msgpack:"e"`
	Source       string  `msgpack:"src,omitempty"`
}

// SwipeResponse carries the ranked candidates for a gesture. Swipe is false
// when the gesture was classified as a tap. TimeTaken is in microseconds.
type SwipeResponse struct {
	ID         string      `msgpack:"id"`
	Candidates []Candidate `msgpack:"s"`
	Count      int         `msgpack:"n"`
	Swipe      bool        `msgpack:"swipe"`
	Superseded bool        `msgpack:"superseded,omitempty"`
	TimeTaken  int64       `msgpack:"t"`
}

// PartialResponse is pushed while a streamed gesture is still in progress.
type PartialResponse struct {
	ID        string    `msgpack:"id"`
	Partial   bool      `msgpack:"partial"`
	Candidate Candidate `msgpack:"s"`
}

// Prediction is one next-word prediction.
type Prediction struct {
	Word  string  `msgpack:"w"`
	Score float32 `msgpack:"p"`
}

// PredictResponse - next word predictions
type PredictResponse struct {
	ID          string       `msgpack:"id"`
	Predictions []Prediction `msgpack:"s"`
	Count       int          `msgpack:"n"`
}

// CompletionSuggestion - prefix completion from the vocabulary
type CompletionSuggestion struct {
	Word string `msgpack:"w"`
	Rank uint16 `msgpack:"r"`
}

// CompletionResponse - completion response
type CompletionResponse struct {
	ID          string                 `msgpack:"id"`
	Suggestions []CompletionSuggestion `msgpack:"s"`
	Count       int                    `msgpack:"n"`
	TimeTaken   int64                  `msgpack:"t"`
}

// StatusResponse acknowledges commit, layout, language, reset, decay,
// health, begin and move messages.
type StatusResponse struct {
	ID     string `msgpack:"id"`
	Status string `msgpack:"status"`
}

// StatsResponse summarizes the engine state.
type StatsResponse struct {
	ID            string `msgpack:"id"`
	State         string `msgpack:"state"`
	Language      string `msgpack:"lang"`
	Vocabulary    int    `msgpack:"vocab"`
	Bigrams       int    `msgpack:"bigrams"`
	PersonalWords int    `msgpack:"personal_words"`
	PersonalPairs int    `msgpack:"personal_bigrams"`
	MostFrequent  string `msgpack:"most_frequent,omitempty"`
	Requests      int64  `msgpack:"requests"`
}

// ErrorResponse holds basic error information for failed requests
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
