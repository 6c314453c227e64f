package decoder

import (
	"context"
	"errors"
	"sync"

	"github.com/charmbracelet/log"
)

// Partial runs best-so-far decodes while a gesture is in progress. Only one
// run is live at a time: Submit cancels the previous run before starting the
// next, and results from superseded runs are dropped.
type Partial struct {
	d *Decoder

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPartial(d *Decoder) *Partial {
	return &Partial{d: d}
}

// Submit starts a partial decode. fn receives the top candidate, or ok=false
// when the decode produced none. fn runs with the Partial locked and must not
// call back into it.
func (p *Partial) Submit(ctx context.Context, req Request, prior Prior, fn func(best Result, ok bool)) uint64 {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	p.gen++
	gen := p.gen
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer cancel()

		results, err := p.d.recognize(runCtx, req, prior, "partial")
		if err != nil && !errors.Is(err, ErrCancelled) {
			log.Errorf("partial decode failed: %v", err)
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if gen != p.gen || err != nil {
			return
		}
		if fn != nil {
			if len(results) > 0 {
				fn(results[0], true)
			} else {
				fn(Result{}, false)
			}
		}
	}()
	return gen
}

// Cancel aborts the in-flight run, if any. Its result is never delivered.
func (p *Partial) Cancel() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.gen++
}

func (p *Partial) Generation() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.gen
}

// Wait blocks until every started run has returned.
func (p *Partial) Wait() { p.wg.Wait() }
