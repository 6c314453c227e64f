package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/bastiangx/swipeserve/pkg/decoder"
	"github.com/bastiangx/swipeserve/pkg/engine"
	"github.com/bastiangx/swipeserve/pkg/gesture"
	"github.com/bastiangx/swipeserve/pkg/layout"
)

// Options bounds what clients may ask for.
type Options struct {
	MaxPoints      int
	PredictLimit   int
	StreamPartials bool
}

func DefaultOptions() Options {
	return Options{MaxPoints: 2000, PredictLimit: 5, StreamPartials: true}
}

// Server handles the IPC for swipe decoding. Requests are read one at a
// time. Full decodes and partial pushes answer from background goroutines,
// so all writes go through wmu.
type Server struct {
	engine *engine.Engine
	opts   Options
	dec    *msgpack.Decoder

	wmu sync.Mutex
	out *bufio.Writer
	enc *msgpack.Encoder

	requests atomic.Int64
	pending  sync.WaitGroup
	liveID   string
	live     bool
}

// NewServer creates a server using stdin/stdout for IPC
func NewServer(e *engine.Engine, opts Options) *Server {
	return NewServerWithIO(e, opts, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server on arbitrary streams.
func NewServerWithIO(e *engine.Engine, opts Options, r io.Reader, w io.Writer) *Server {
	if opts.PredictLimit <= 0 {
		opts.PredictLimit = 5
	}
	out := bufio.NewWriter(w)
	return &Server{
		engine: e,
		opts:   opts,
		dec:    msgpack.NewDecoder(bufio.NewReader(r)),
		out:    out,
		enc:    msgpack.NewEncoder(out),
	}
}

// Start signals readiness and serves requests until the input closes. It
// returns once every pending decode has been answered.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting Server.")
	defer s.pending.Wait()
	s.send(StatusResponse{Status: "ready"})

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		var raw msgpack.RawMessage
		if err := s.dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			log.Errorf("Reading from stdin: %v", err)
			return err
		}
		s.requests.Add(1)

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			log.Errorf("Unmarshaling request: %v", err)
			s.sendError("", "Invalid msgpack request", 400)
			continue
		}
		s.handleRequest(ctx, req)
	}
}

// handleRequest dispatches on the request action
func (s *Server) handleRequest(ctx context.Context, req Request) {
	switch req.Action {
	case "swipe":
		s.handleSwipe(ctx, req, false)
	case "swipe_stream":
		s.handleSwipe(ctx, req, s.opts.StreamPartials)
	case "begin":
		s.handleBegin(ctx, req)
	case "move":
		s.handleMove(ctx, req)
	case "end":
		s.handleEnd(ctx, req)
	case "commit":
		if err := s.engine.Commit(req.Word); err != nil {
			s.sendError(req.ID, err.Error(), 400)
			return
		}
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case "predict":
		s.handlePredict(req)
	case "complete":
		s.handleComplete(req)
	case "layout":
		s.handleLayout(req)
	case "language":
		if req.Language == "" {
			s.sendError(req.ID, "Missing 'lang' parameter", 400)
			return
		}
		s.engine.SetLanguage(req.Language)
		s.send(StatusResponse{ID: req.ID, Status: s.engine.Language().CurrentLanguage()})
	case "decay":
		s.engine.Decay()
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case "reset":
		s.engine.ResetContext()
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case "health":
		s.send(StatusResponse{ID: req.ID, Status: "ok"})
	case "stats":
		s.handleStats(req)
	default:
		s.sendError(req.ID, fmt.Sprintf("Unknown action: %s", req.Action), 400)
	}
}

func (s *Server) validPoints(req Request, least int) bool {
	if len(req.Points) < least {
		s.sendError(req.ID, "Missing 'pts' parameter", 400)
		return false
	}
	if s.opts.MaxPoints > 0 && len(req.Points) > s.opts.MaxPoints {
		s.sendError(req.ID, fmt.Sprintf("Gesture exceeds maximum of %d points", s.opts.MaxPoints), 400)
		return false
	}
	return true
}

// handleSwipe decodes a completed gesture. With explicit keys the path is
// decoded directly; otherwise it is replayed through the segmenter, which
// also decides whether it was a swipe at all. The response is sent when the
// decode resolves; a later gesture supersedes it.
func (s *Server) handleSwipe(ctx context.Context, req Request, stream bool) {
	if !s.validPoints(req, 2) {
		return
	}
	s.abortLive()
	if req.Previous != "" {
		s.engine.SetPrevious(req.Previous)
	}

	start := time.Now()
	path := touchPoints(req.Points)
	var pending <-chan engine.Outcome
	if req.Keys != "" {
		pending = s.engine.DecodeAsync(ctx, path, gesture.KeySequence(req.Keys))
	} else {
		if stream {
			s.engine.OnPartial(s.partialSender(req.ID))
		} else {
			s.engine.OnPartial(nil)
		}
		s.engine.Begin(path[0])
		for _, p := range path[1:] {
			s.engine.Move(ctx, p)
		}
		pending = s.engine.End(ctx)
		s.engine.OnPartial(nil)
	}
	s.respond(req.ID, pending, start)
}

// abortLive drops a gesture opened by begin along with its partial sender.
func (s *Server) abortLive() {
	if !s.live {
		return
	}
	s.engine.Cancel()
	s.engine.OnPartial(nil)
	s.live = false
	s.liveID = ""
}

func (s *Server) handleBegin(ctx context.Context, req Request) {
	if !s.validPoints(req, 1) {
		return
	}
	if req.Previous != "" {
		s.engine.SetPrevious(req.Previous)
	}
	if s.opts.StreamPartials {
		s.engine.OnPartial(s.partialSender(req.ID))
	} else {
		s.engine.OnPartial(nil)
	}
	path := touchPoints(req.Points)
	s.engine.Begin(path[0])
	for _, p := range path[1:] {
		s.engine.Move(ctx, p)
	}
	s.liveID = req.ID
	s.live = true
	s.send(StatusResponse{ID: req.ID, Status: "recording"})
}

func (s *Server) handleMove(ctx context.Context, req Request) {
	if !s.live {
		s.sendError(req.ID, "No gesture in progress", 400)
		return
	}
	if !s.validPoints(req, 1) {
		return
	}
	for _, p := range touchPoints(req.Points) {
		s.engine.Move(ctx, p)
	}
	s.send(StatusResponse{ID: req.ID, Status: "recording"})
}

func (s *Server) handleEnd(ctx context.Context, req Request) {
	if !s.live {
		s.sendError(req.ID, "No gesture in progress", 400)
		return
	}
	start := time.Now()
	for _, p := range touchPoints(req.Points) {
		s.engine.Move(ctx, p)
	}
	pending := s.engine.End(ctx)
	s.engine.OnPartial(nil)
	s.live = false
	s.liveID = ""
	s.respond(req.ID, pending, start)
}

// respond answers id once the decode resolves, without holding up the read loop.
func (s *Server) respond(id string, pending <-chan engine.Outcome, start time.Time) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		out := <-pending
		if out.Superseded {
			log.Debugf("request %s superseded", id)
		}
		s.sendSuggestions(id, out, time.Since(start))
	}()
}

func (s *Server) partialSender(id string) func(decoder.Result) {
	return func(r decoder.Result) {
		s.send(PartialResponse{
			ID:      id,
			Partial: true,
			Candidate: Candidate{
				Word:         r.Word,
				Score:        r.Probability,
				Confidence:   r.Confidence,
				KeySequence:  r.KeySequence.String(),
				EditDistance: r.EditDistance,
			},
		})
	}
}

func (s *Server) sendSuggestions(id string, out engine.Outcome, elapsed time.Duration) {
	cands := make([]Candidate, len(out.Suggestions))
	for i, sg := range out.Suggestions {
		cands[i] = Candidate{
			Word:         sg.Word,
			Score:        sg.Score,
			Confidence:   sg.Confidence,
			KeySequence:  sg.KeySequence,
			EditDistance: sg.EditDistance,
			Source:       sg.Source,
		}
	}
	s.send(SwipeResponse{
		ID:         id,
		Candidates: cands,
		Count:      len(cands),
		Swipe:      out.Swipe,
		Superseded: out.Superseded,
		TimeTaken:  elapsed.Microseconds(),
	})
}

func (s *Server) handlePredict(req Request) {
	limit := req.Limit
	if limit < 1 {
		limit = s.opts.PredictLimit
	}
	preds := s.engine.Predict(req.Previous, limit)
	out := make([]Prediction, len(preds))
	for i, p := range preds {
		out[i] = Prediction{Word: p.Word, Score: p.Score}
	}
	s.send(PredictResponse{ID: req.ID, Predictions: out, Count: len(out)})
}

// handleComplete returns vocabulary words starting with the prefix, most
// frequent first.
func (s *Server) handleComplete(req Request) {
	prefix := req.Prefix
	if prefix == "" {
		s.sendError(req.ID, "Missing 'p' parameter", 400)
		return
	}
	if utf8.RuneCountInString(prefix) > 60 {
		s.sendError(req.ID, "Prefix exceeds maximum length of 60 characters", 400)
		return
	}
	limit := req.Limit
	if limit < 1 {
		limit = 10
	}

	start := time.Now()
	words := s.engine.Generator().Vocabulary().WordsWithPrefix(prefix, 1)
	sort.Slice(words, func(i, j int) bool {
		if words[i].Frequency != words[j].Frequency {
			return words[i].Frequency > words[j].Frequency
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > limit {
		words = words[:limit]
	}
	out := make([]CompletionSuggestion, len(words))
	for i, w := range words {
		out[i] = CompletionSuggestion{Word: w.Word, Rank: uint16(i + 1)}
	}
	s.send(CompletionResponse{
		ID:          req.ID,
		Suggestions: out,
		Count:       len(out),
		TimeTaken:   time.Since(start).Microseconds(),
	})
}

func (s *Server) handleLayout(req Request) {
	spec := req.Layout
	if spec == nil || len(spec.Keys) == 0 {
		s.sendError(req.ID, "Missing 'layout' parameter", 400)
		return
	}
	if spec.KeyWidth <= 0 || spec.KeyHeight <= 0 {
		s.sendError(req.ID, "Key dimensions must be positive", 400)
		return
	}
	positions := make(map[rune]gesture.Point, len(spec.Keys))
	for k, p := range spec.Keys {
		r, size := utf8.DecodeRuneInString(k)
		if r == utf8.RuneError || size != len(k) {
			s.sendError(req.ID, fmt.Sprintf("Invalid key %q", k), 400)
			return
		}
		positions[r] = gesture.Point{X: p.X, Y: p.Y}
	}
	s.abortLive()
	s.engine.SetLayout(layout.New(positions, spec.KeyWidth, spec.KeyHeight))
	log.Debugf("layout replaced: %d keys", len(positions))
	s.send(StatusResponse{ID: req.ID, Status: "ok"})
}

func (s *Server) handleStats(req Request) {
	st := s.engine.Stats()
	s.send(StatsResponse{
		ID:            req.ID,
		State:         st.State,
		Language:      st.Language.Language,
		Vocabulary:    st.Vocabulary["totalWords"],
		Bigrams:       st.Language.Bigrams,
		PersonalWords: st.Personal.TotalWords,
		PersonalPairs: st.Personal.TotalBigrams,
		MostFrequent:  st.Personal.MostFrequent,
		Requests:      s.requests.Load(),
	})
}

// send encodes one message and flushes it.
func (s *Server) send(v any) {
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := s.enc.Encode(v); err != nil {
		log.Errorf("Encoding response: %v", err)
		return
	}
	if err := s.out.Flush(); err != nil {
		log.Errorf("Writing response: %v", err)
	}
}

func (s *Server) sendError(id, message string, code int) {
	s.send(ErrorResponse{ID: id, Error: message, Code: code})
}

func touchPoints(pts []Point) []gesture.TouchPoint {
	out := make([]gesture.TouchPoint, len(pts))
	for i, p := range pts {
		out[i] = gesture.TouchPoint{X: p.X, Y: p.Y, T: p.T}
	}
	return out
}
