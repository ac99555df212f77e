package app

import (
	"sync"
	"testing"
	"time"

	"mcspec/internal/resolver"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type publishRecorder struct {
	mu      sync.Mutex
	results []Resolution
}

func (p *publishRecorder) publish(r Resolution) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, r)
}

func (p *publishRecorder) snapshot() []Resolution {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Resolution(nil), p.results...)
}

func liveInput(formula string) Input {
	return Input{Formula: formula, Options: resolver.Options{AssumeContinuous: true}}
}

func TestLiveResolver_DebouncesToLastEdit(t *testing.T) {
	rec := &publishRecorder{}
	live := NewLiveResolver(NewAssembler(nil), 30*time.Millisecond, rec.publish)
	defer live.Close()

	for _, f := range []string{"y", "y ~", "y ~ x", "y ~ x +", "y ~ x + z"} {
		live.Submit(liveInput(f))
	}

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	results := rec.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, "y ~ x + z", results[0].Input)
	assert.True(t, results[0].OK())

	latest, ok := live.Latest()
	require.True(t, ok)
	assert.Equal(t, "y ~ x + z", latest.Input)
	assert.Equal(t, uint64(5), live.Token())
}

func TestLiveResolver_FlushSupersedesPending(t *testing.T) {
	rec := &publishRecorder{}
	live := NewLiveResolver(NewAssembler(nil), 50*time.Millisecond, rec.publish)
	defer live.Close()

	live.Submit(liveInput("y ~ stale"))
	res := live.Flush(liveInput("y ~ fresh"))
	require.True(t, res.OK(), "err: %v", res.Err)
	assert.Equal(t, []string{"fresh"}, res.Spec.Predictors())

	time.Sleep(100 * time.Millisecond)
	results := rec.snapshot()
	require.Len(t, results, 1)
	assert.Equal(t, "y ~ fresh", results[0].Input)
}

func TestLiveResolver_PublishesFailures(t *testing.T) {
	rec := &publishRecorder{}
	live := NewLiveResolver(NewAssembler(nil), 10*time.Millisecond, rec.publish)
	defer live.Close()

	live.Submit(liveInput("y x1 + x2"))
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateFailed, rec.snapshot()[0].State)
}

func TestLiveResolver_CloseDropsPending(t *testing.T) {
	rec := &publishRecorder{}
	live := NewLiveResolver(NewAssembler(nil), 20*time.Millisecond, rec.publish)

	live.Submit(liveInput("y ~ x"))
	live.Close()
	live.Submit(liveInput("y ~ z"))

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	_, ok := live.Latest()
	assert.False(t, ok)
}

func TestLiveResolver_DefaultDebounce(t *testing.T) {
	live := NewLiveResolver(NewAssembler(nil), 0, nil)
	defer live.Close()
	assert.Equal(t, DefaultDebounce, live.debounce)
}
