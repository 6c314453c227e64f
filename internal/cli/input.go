// Package cli is an interactive debugging loop: type a word, a synthetic
// swipe is traced over the current layout and the decoded candidates are
// printed.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/bastiangx/swipeserve/internal/utils"
	"github.com/bastiangx/swipeserve/pkg/engine"
)

var (
	wordStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	matchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// Options control how words are traced and how many candidates are shown.
type Options struct {
	Limit           int
	TraceStep       float32
	TraceDtMs       int64
	MaxEditDistance int
	MaxLength       int
}

func DefaultOptions() Options {
	return Options{Limit: 5, TraceStep: 30, TraceDtMs: 40, MaxEditDistance: 2, MaxLength: 60}
}

// InputHandler reads commands from in and writes results to out.
//
// Commands:
//
//	<word>            trace and decode the word
//	:commit <word>    record the word as typed
//	:predict [word]   next-word predictions
//	:lang <code>      switch language model
//	:reset            forget the previous word
//	:decay            halve personalization counts
//	:stats            component statistics
type InputHandler struct {
	engine       *engine.Engine
	opts         Options
	in           io.Reader
	out          io.Writer
	requestCount int
}

// NewInputHandler handles initialization of the InputHandler
func NewInputHandler(e *engine.Engine, opts Options, in io.Reader, out io.Writer) *InputHandler {
	if opts.Limit <= 0 {
		opts.Limit = 5
	}
	if opts.TraceStep <= 0 {
		opts.TraceStep = 30
	}
	if opts.TraceDtMs <= 0 {
		opts.TraceDtMs = 40
	}
	if opts.MaxLength <= 0 {
		opts.MaxLength = 60
	}
	return &InputHandler{engine: e, opts: opts, in: in, out: out}
}

// Start runs the loop until the input closes.
func (h *InputHandler) Start(ctx context.Context) error {
	fmt.Fprintln(h.out, "SwipeServe CLI [DEBUG]")
	fmt.Fprintln(h.out, "type a word and press Enter to swipe it (Ctrl+C to exit):")
	reader := bufio.NewReader(h.in)

	for {
		fmt.Fprint(h.out, "> ")
		line, err := reader.ReadString('\n')
		line = strings.TrimSpace(line)
		if line != "" {
			h.handleInput(ctx, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				fmt.Fprintln(h.out)
				return nil
			}
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) {
	h.requestCount++
	if !strings.HasPrefix(line, ":") {
		h.swipe(ctx, line)
		return
	}

	cmd, arg, _ := strings.Cut(line[1:], " ")
	arg = strings.TrimSpace(arg)
	switch cmd {
	case "commit":
		if err := h.engine.Commit(arg); err != nil {
			log.Errorf("commit: %v", err)
			return
		}
		fmt.Fprintf(h.out, "committed %s\n", wordStyle.Render(arg))
	case "predict":
		preds := h.engine.Predict(arg, h.opts.Limit)
		if len(preds) == 0 {
			fmt.Fprintln(h.out, dimStyle.Render("no predictions"))
			return
		}
		for i, p := range preds {
			fmt.Fprintf(h.out, "%2d. %s %s\n", i+1, wordStyle.Render(p.Word), dimStyle.Render(fmt.Sprintf("(%.4f)", p.Score)))
		}
	case "lang":
		h.engine.SetLanguage(arg)
		fmt.Fprintf(h.out, "language: %s\n", h.engine.Language().CurrentLanguage())
	case "reset":
		h.engine.ResetContext()
		fmt.Fprintln(h.out, "context cleared")
	case "decay":
		h.engine.Decay()
		fmt.Fprintln(h.out, "personalization decayed")
	case "stats":
		st := h.engine.Stats()
		fmt.Fprintf(h.out, "state: %s\n", st.State)
		fmt.Fprintf(h.out, "vocabulary: %d words\n", st.Vocabulary["totalWords"])
		fmt.Fprintf(h.out, "language: %s, %d bigrams\n", st.Language.Language, st.Language.Bigrams)
		fmt.Fprintln(h.out, st.Ngrams.String())
		fmt.Fprintln(h.out, st.Personal.String())
		fmt.Fprintf(h.out, "requests: %d\n", h.requestCount)
	default:
		log.Errorf("Unknown command: %s", cmd)
	}
}

// swipe traces word over the layout, feeds it through the engine and
// prints the ranked candidates. Candidates within MaxEditDistance of the
// typed word are highlighted.
func (h *InputHandler) swipe(ctx context.Context, word string) {
	if len(word) > h.opts.MaxLength {
		log.Errorf("Word too long: %s", word)
		return
	}
	if !utils.IsWordInput(word) {
		log.Errorf("Not a word: %s", word)
		return
	}
	target := utils.LettersOnly(word)
	pts := h.engine.Layout().Trace(target, h.opts.TraceStep, h.opts.TraceDtMs)
	if len(pts) < 2 {
		log.Errorf("Cannot trace %q on this layout", word)
		return
	}

	prev := h.engine.Previous()
	start := time.Now()
	h.engine.Begin(pts[0])
	for _, p := range pts[1:] {
		h.engine.Move(ctx, p)
	}
	out := <-h.engine.End(ctx)
	suggestions, ok := out.Suggestions, out.Swipe
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for %q (%d points)", elapsed, target, len(pts))

	if !ok {
		fmt.Fprintf(h.out, "%q was too short for a swipe\n", word)
		return
	}
	if len(suggestions) == 0 {
		log.Warnf("No candidates for '%s'", word)
		return
	}
	if len(suggestions) > h.opts.Limit {
		suggestions = suggestions[:h.opts.Limit]
	}

	fmt.Fprintf(h.out, "Found %d candidates for '%s' in %v:\n", len(suggestions), word, elapsed.Round(time.Microsecond))
	for i, s := range suggestions {
		style := wordStyle
		if s.Word == target {
			style = matchStyle
		}
		near := ""
		if matchr.Levenshtein(s.Word, target) <= h.opts.MaxEditDistance {
			near = "~"
		}
		ctxMul := h.engine.Language().ContextMultiplier(s.Word, prev)
		fmt.Fprintf(h.out, "%2d. %-1s%s %s\n", i+1, near, style.Render(fmt.Sprintf("%-20s", s.Word)),
			dimStyle.Render(fmt.Sprintf("score %.4f  conf %.3f  edit %d  ctx x%.2f  %s", s.Score, s.Confidence, s.EditDistance, ctxMul, s.Source)))
	}
}
