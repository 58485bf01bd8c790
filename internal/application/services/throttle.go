package services

import (
	"context"
	"sync"

	"gridguardian-backend/internal/domain/graph"

	"golang.org/x/time/rate"
)

// latestWorker runs fn on the most recent submitted state, at most at the
// limiter's rate. States submitted while fn runs or waits are coalesced.
type latestWorker struct {
	limiter *rate.Limiter
	fn      func(ctx context.Context, state graph.State)

	mu      sync.Mutex
	pending *graph.State
	signal  chan struct{}
}

func newLatestWorker(limiter *rate.Limiter, fn func(context.Context, graph.State)) *latestWorker {
	return &latestWorker{
		limiter: limiter,
		fn:      fn,
		signal:  make(chan struct{}, 1),
	}
}

func (w *latestWorker) submit(state graph.State) {
	w.mu.Lock()
	w.pending = &state
	w.mu.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *latestWorker) take() (graph.State, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return graph.State{}, false
	}
	state := *w.pending
	w.pending = nil
	return state, true
}

// run processes submissions until ctx is done, then hands any unprocessed
// state to fn once more with flushCtx.
func (w *latestWorker) run(ctx context.Context, flushCtx func() (context.Context, context.CancelFunc)) {
	for {
		select {
		case <-ctx.Done():
			if state, ok := w.take(); ok {
				fctx, cancel := flushCtx()
				w.fn(fctx, state)
				cancel()
			}
			return
		case <-w.signal:
		}

		if err := w.limiter.Wait(ctx); err != nil {
			continue
		}
		if state, ok := w.take(); ok {
			w.fn(ctx, state)
		}
	}
}
