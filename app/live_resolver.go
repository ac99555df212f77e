package app

import (
	"context"
	"sync"
	"time"

	"mcspec/internal"
)

// DefaultDebounce is the quiet period after the last edit before resolving.
const DefaultDebounce = 400 * time.Millisecond

// LiveResolver coalesces a stream of edits. Each Submit supersedes the
// previous request: its context is cancelled, its timer restarted, and a
// result computed for it is discarded. At most one result is live.
type LiveResolver struct {
	assembler *Assembler
	debounce  time.Duration
	publish   func(Resolution)
	logger    *internal.Logger

	publishMu sync.Mutex // held across the token check and publish

	mu      sync.Mutex
	token   uint64
	cancel  context.CancelFunc
	timer   *time.Timer
	latest  Resolution
	hasLast bool
	closed  bool
}

// NewLiveResolver creates a live resolver. publish, if non-nil, is called
// with every result that is still current when it completes.
func NewLiveResolver(assembler *Assembler, debounce time.Duration, publish func(Resolution)) *LiveResolver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &LiveResolver{
		assembler: assembler,
		debounce:  debounce,
		publish:   publish,
		logger:    internal.DefaultLogger.With("live"),
	}
}

// Submit schedules in for resolution after the debounce window and returns
// the request token.
func (l *LiveResolver) Submit(in Input) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return l.token
	}
	ctx, tok := l.supersedeLocked()
	l.timer = time.AfterFunc(l.debounce, func() {
		l.run(ctx, tok, in)
	})
	return tok
}

// Flush resolves in immediately, superseding any pending request, and
// returns its result.
func (l *LiveResolver) Flush(in Input) Resolution {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return Resolution{Input: in.Formula, State: StateEmpty}
	}
	ctx, tok := l.supersedeLocked()
	l.mu.Unlock()
	return l.run(ctx, tok, in)
}

// supersedeLocked invalidates the pending request and issues a new token.
func (l *LiveResolver) supersedeLocked() (context.Context, uint64) {
	if l.cancel != nil {
		l.cancel()
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.token++
	ctx, cancel := context.WithCancel(context.Background())
	l.cancel = cancel
	return ctx, l.token
}

func (l *LiveResolver) run(ctx context.Context, tok uint64, in Input) Resolution {
	res := l.assembler.Resolve(ctx, in)

	l.publishMu.Lock()
	defer l.publishMu.Unlock()

	l.mu.Lock()
	if tok != l.token || ctx.Err() != nil {
		l.mu.Unlock()
		l.logger.Trace("dropped superseded request %d", tok)
		return res
	}
	l.latest = res
	l.hasLast = true
	l.mu.Unlock()

	if l.publish != nil {
		l.publish(res)
	}
	return res
}

// Latest returns the most recently published result.
func (l *LiveResolver) Latest() (Resolution, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.latest, l.hasLast
}

// Token returns the current request token.
func (l *LiveResolver) Token() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.token
}

// Close cancels any pending request. Later submissions are ignored.
func (l *LiveResolver) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cancel != nil {
		l.cancel()
	}
	if l.timer != nil {
		l.timer.Stop()
	}
	l.closed = true
}
