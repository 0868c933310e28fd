package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/route"
)

type testLoader struct {
	calls atomic.Int32
	data  any
	err   error
}

func (l *testLoader) handler() route.HandlerFunc {
	return func(_ context.Context, _ route.Args) (any, error) {
		l.calls.Add(1)
		return l.data, l.err
	}
}

func newLoader(data any) *testLoader {
	return &testLoader{data: data}
}

// gate blocks a handler until released and records its context.
type gate struct {
	started chan struct{}
	release chan struct{}

	mu  sync.Mutex
	ctx context.Context
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) handler(data any) route.HandlerFunc {
	return func(ctx context.Context, _ route.Args) (any, error) {
		g.mu.Lock()
		g.ctx = ctx
		g.mu.Unlock()

		close(g.started)
		<-g.release
		return data, nil
	}
}

func (g *gate) context() context.Context {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ctx
}

// stall blocks the nth call of its handler until the call is aborted.
// Other calls return "<prefix> <call number>".
type stall struct {
	calls   atomic.Int32
	nth     int32
	started chan struct{}
	aborted chan struct{}
}

func newStall(nth int32) *stall {
	return &stall{nth: nth, started: make(chan struct{}), aborted: make(chan struct{})}
}

func (s *stall) handler(prefix string) route.HandlerFunc {
	return func(ctx context.Context, _ route.Args) (any, error) {
		n := s.calls.Add(1)
		if n != s.nth {
			return fmt.Sprintf("%s %d", prefix, n), nil
		}

		close(s.started)
		<-ctx.Done()
		close(s.aborted)
		return nil, ctx.Err()
	}
}

func newTestRouter(t *testing.T, routes []*route.Route, initial ...string) (*Router, *history.Memory) {
	t.Helper()
	return newTestRouterWithConfig(t, Config{Routes: routes}, initial...)
}

func newTestRouterWithConfig(t *testing.T, cfg Config, initial ...string) (*Router, *history.Memory) {
	t.Helper()

	h := history.NewMemory(history.MemoryConfig{InitialEntries: initial})
	cfg.History = h

	r, err := New(cfg)
	require.NoError(t, err)

	r.Initialize()
	t.Cleanup(r.Dispose)

	return r, h
}

// recorder collects every state delivered to the subscriber.
type recorder struct {
	mu     sync.Mutex
	states []State
}

func record(t *testing.T, r *Router) *recorder {
	t.Helper()

	rec := &recorder{}
	unsubscribe, err := r.Subscribe(func(s State) {
		rec.mu.Lock()
		rec.states = append(rec.states, s)
		rec.mu.Unlock()
	})
	require.NoError(t, err)
	t.Cleanup(unsubscribe)

	return rec
}

func (rec *recorder) snapshot() []State {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return append([]State(nil), rec.states...)
}

func (rec *recorder) navigationStates() []NavigationState {
	var out []NavigationState
	for _, s := range rec.snapshot() {
		out = append(out, s.Navigation.State)
	}
	return out
}
