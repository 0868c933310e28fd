package router

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/logger"
	"github.com/vitalvas/pathway/route"
)

func TestNewErrors(t *testing.T) {
	h := history.NewMemory(history.MemoryConfig{})

	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{name: "no history", cfg: Config{Routes: []*route.Route{{Path: "/"}}}, want: ErrNoHistory},
		{name: "no routes", cfg: Config{History: h}, want: ErrNoRoutes},
		{
			name: "duplicate ids",
			cfg: Config{History: h, Routes: []*route.Route{
				{ID: "a", Path: "/a"},
				{ID: "a", Path: "/b"},
			}},
			want: route.ErrDuplicateID,
		},
		{
			name: "index with children",
			cfg: Config{History: h, Routes: []*route.Route{
				{ID: "i", Index: true, Children: []*route.Route{{Path: "x"}}},
			}},
			want: route.ErrIndexChildren,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.cfg)
			assert.Nil(t, r)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := New(Config{History: h, Routes: []*route.Route{{ID: "a", Path: "/a"}, {ID: "a", Path: "/b"}}})
	var cfgErr *route.ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "a", cfgErr.RouteID)
}

func TestNewDoesNotModifyRoutes(t *testing.T) {
	routes := []*route.Route{{Path: "/", Children: []*route.Route{{Path: "a"}}}}

	r, _ := newTestRouter(t, routes)

	assert.Empty(t, routes[0].ID)
	assert.Empty(t, routes[0].Children[0].ID)
	assert.Equal(t, "0", r.Routes()[0].ID)
	assert.Equal(t, "0-0", r.Routes()[0].Children[0].ID)
}

func TestInitialize(t *testing.T) {
	root := newLoader("root")
	routes := []*route.Route{{ID: "root", Path: "/", Loader: root.handler()}}

	h := history.NewMemory(history.MemoryConfig{})
	r, err := New(Config{Routes: routes, History: h})
	require.NoError(t, err)
	t.Cleanup(r.Dispose)

	state := r.State()
	assert.False(t, state.Initialized)
	assert.Equal(t, history.Pop, state.HistoryAction)
	assert.Empty(t, state.LoaderData)

	assert.Same(t, r, r.Initialize())

	state = r.State()
	assert.True(t, state.Initialized)
	assert.Equal(t, map[string]any{"root": "root"}, state.LoaderData)
	assert.Equal(t, NavigationIdle, state.Navigation.State)
	assert.Equal(t, int32(1), root.calls.Load())

	r.Initialize()
	assert.Equal(t, int32(1), root.calls.Load(), "second Initialize is a no-op")
}

func TestInitializeWithoutLoaders(t *testing.T) {
	routes := []*route.Route{{ID: "root", Path: "/"}}

	h := history.NewMemory(history.MemoryConfig{})
	r, err := New(Config{Routes: routes, History: h})
	require.NoError(t, err)
	t.Cleanup(r.Dispose)

	assert.True(t, r.State().Initialized)
}

func TestInitialNotFound(t *testing.T) {
	routes := []*route.Route{{ID: "root", Path: "/", Children: []*route.Route{{ID: "a", Path: "a"}}}}

	r, _ := newTestRouter(t, routes, "/missing")

	state := r.State()
	assert.True(t, state.Initialized)
	resp, ok := IsErrorResponse(state.Errors["root"])
	require.True(t, ok)
	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestHydration(t *testing.T) {
	root := newLoader("fresh")
	routes := []*route.Route{{ID: "root", Path: "/", Loader: root.handler()}}

	errHydrated := errors.New("server error")

	r, _ := newTestRouterWithConfig(t, Config{
		Routes: routes,
		HydrationData: &HydrationData{
			LoaderData: map[string]any{"root": "hydrated"},
			ActionData: map[string]any{"root": "action"},
			Errors:     map[string]error{"root": errHydrated},
		},
	})

	state := r.State()
	assert.True(t, state.Initialized)
	assert.Zero(t, root.calls.Load())
	assert.Equal(t, "hydrated", state.LoaderData["root"])
	assert.Equal(t, "action", state.ActionData["root"])
	assert.ErrorIs(t, state.Errors["root"], errHydrated)
}

func TestSubscribe(t *testing.T) {
	routes := []*route.Route{{ID: "root", Path: "/", Children: []*route.Route{{ID: "a", Path: "a"}}}}
	r, _ := newTestRouter(t, routes)

	var first atomic.Int32
	unsubscribe, err := r.Subscribe(func(State) { first.Add(1) })
	require.NoError(t, err)

	_, err = r.Subscribe(func(State) {})
	assert.ErrorIs(t, err, ErrAlreadySubscribed)

	require.NoError(t, r.Navigate("/a"))
	assert.Equal(t, int32(1), first.Load())

	unsubscribe()

	var second atomic.Int32
	unsubscribeSecond, err := r.Subscribe(func(State) { second.Add(1) })
	require.NoError(t, err)

	unsubscribe()

	require.NoError(t, r.Navigate("/"))
	assert.Equal(t, int32(1), first.Load())
	assert.Equal(t, int32(1), second.Load(), "stale unsubscribe must not drop the new subscriber")

	unsubscribeSecond()
}

func TestSubscriberMayCallRouter(t *testing.T) {
	routes := []*route.Route{{ID: "root", Path: "/", Children: []*route.Route{{ID: "a", Path: "a"}}}}
	r, _ := newTestRouter(t, routes)

	var seen []string
	unsubscribe, err := r.Subscribe(func(s State) {
		seen = append(seen, r.State().Location.Pathname)
		assert.Equal(t, s.Location.Pathname, r.State().Location.Pathname)
	})
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, r.Navigate("/a"))
	assert.Equal(t, []string{"/a"}, seen)
}

func TestDispose(t *testing.T) {
	g := newGate()
	defer close(g.release)

	routes := []*route.Route{{
		ID:       "root",
		Path:     "/",
		Children: []*route.Route{{ID: "slow", Path: "slow", Loader: g.handler("slow")}},
	}}

	h := history.NewMemory(history.MemoryConfig{})
	r, err := New(Config{Routes: routes, History: h})
	require.NoError(t, err)
	r.Initialize()

	done := make(chan error, 1)
	go func() {
		done <- r.Navigate("/slow")
	}()

	<-g.started
	r.Dispose()
	require.NoError(t, <-done)

	assert.ErrorIs(t, g.context().Err(), context.Canceled)
	assert.Equal(t, "/", r.State().Location.Pathname)

	assert.ErrorIs(t, r.Navigate("/slow"), ErrDisposed)
	assert.ErrorIs(t, r.Fetch("k", "/slow"), ErrDisposed)
	assert.ErrorIs(t, r.Revalidate(), ErrDisposed)
	assert.ErrorIs(t, r.Go(-1), ErrDisposed)

	_, err = r.Subscribe(func(State) {})
	assert.ErrorIs(t, err, ErrDisposed)

	r.Dispose()
}

func TestDisposeStopsHistoryListening(t *testing.T) {
	routes := []*route.Route{{ID: "root", Path: "/", Children: []*route.Route{{ID: "a", Path: "a"}}}}

	h := history.NewMemory(history.MemoryConfig{InitialEntries: []string{"/", "/a"}, InitialIndex: 1})
	r, err := New(Config{Routes: routes, History: h})
	require.NoError(t, err)
	r.Initialize()
	r.Dispose()

	h.Go(-1)

	assert.Equal(t, "/a", r.State().Location.Pathname)
	assert.Equal(t, "/", h.Location().Pathname)
}

func TestMiddleware(t *testing.T) {
	var (
		mu          sync.Mutex
		order       []string
		wraps       atomic.Int32
		invocations atomic.Int32
	)

	named := func(name string) route.MiddlewareFunc {
		return func(next route.HandlerFunc) route.HandlerFunc {
			if name == "outer" {
				wraps.Add(1)
			}
			return func(ctx context.Context, args route.Args) (any, error) {
				mu.Lock()
				order = append(order, name)
				mu.Unlock()
				if name == "inner" {
					invocations.Add(1)
				}
				return next(ctx, args)
			}
		}
	}

	root := newLoader("root")
	a := newLoader("a")

	routes := []*route.Route{{
		ID:       "root",
		Path:     "/",
		Loader:   root.handler(),
		Children: []*route.Route{{ID: "a", Path: "a", Loader: a.handler()}},
	}}

	r, _ := newTestRouterWithConfig(t, Config{
		Routes:     routes,
		Middleware: []route.Middleware{named("outer"), named("inner")},
	})

	require.NoError(t, r.Navigate("/a"))
	require.NoError(t, r.Navigate("/a"))

	assert.Equal(t, int32(2), wraps.Load(), "handlers are wrapped once per route")
	assert.Equal(t, int32(4), invocations.Load())
	assert.Equal(t, int32(2), root.calls.Load())
	assert.Equal(t, int32(2), a.calls.Load())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 8)
	assert.Equal(t, []string{"outer", "inner"}, order[:2])
}

func TestLoaderConcurrency(t *testing.T) {
	var active, peak atomic.Int32

	loader := func(id string) route.HandlerFunc {
		return func(context.Context, route.Args) (any, error) {
			n := active.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			active.Add(-1)
			return id, nil
		}
	}

	routes := []*route.Route{{
		ID:     "root",
		Path:   "/",
		Loader: loader("root"),
		Children: []*route.Route{{
			ID:       "a",
			Path:     "a",
			Loader:   loader("a"),
			Children: []*route.Route{{ID: "b", Path: "b", Loader: loader("b")}},
		}},
	}}

	r, _ := newTestRouterWithConfig(t, Config{Routes: routes, LoaderConcurrency: 1}, "/a/b")

	assert.Equal(t, int32(1), peak.Load())
	assert.Equal(t, map[string]any{"root": "root", "a": "a", "b": "b"}, r.State().LoaderData)
}

func TestLogging(t *testing.T) {
	var buf bytes.Buffer
	log := logger.NewWithOptions(logger.Options{Writer: &buf, Level: slog.LevelDebug})

	routes := []*route.Route{{ID: "root", Path: "/", Children: []*route.Route{{ID: "x", Path: "x"}}}}

	r, _ := newTestRouterWithConfig(t, Config{Routes: routes, Logger: log})
	require.NoError(t, r.Navigate("/x", WithFormMethod(http.MethodPost), WithFormValues(url.Values{})))

	assert.Contains(t, buf.String(), "submission to a route without an action")
	assert.Contains(t, buf.String(), `"route_id":"x"`)
}

func TestCreateHref(t *testing.T) {
	routes := []*route.Route{{ID: "root", Path: "/"}}
	r, _ := newTestRouter(t, routes)

	assert.Equal(t, "/a?b=1#c", r.CreateHref(history.Path{Pathname: "/a", Search: "?b=1", Hash: "#c"}))
}
