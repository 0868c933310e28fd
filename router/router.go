package router

import (
	"context"
	"log/slog"
	"maps"
	"sync"

	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/logger"
	"github.com/vitalvas/pathway/route"
)

// Config configures a Router.
type Config struct {
	// Routes is the route tree. It is copied and prepared by New; the
	// caller's tree is never modified.
	Routes []*route.Route

	// History is the session history the router reads and updates.
	History history.History

	// Basename is the URL prefix the application lives under.
	Basename string

	// HydrationData seeds the initial state and skips the first load.
	HydrationData *HydrationData

	// Logger receives router diagnostics. Defaults to a no-op logger.
	Logger *slog.Logger

	// Middleware wraps every loader and action, first entry outermost.
	Middleware []route.Middleware

	// LoaderConcurrency bounds the number of handlers run at once by a
	// single navigation or fetch. Zero means no limit.
	LoaderConcurrency int

	// OnExternalRedirect is called with the target of a redirect that
	// leaves the history origin. When nil the redirect is logged and
	// dropped.
	OnExternalRedirect func(location string)
}

// controller scopes the handlers of one navigation or fetch. Aborting it
// cancels their context.
type controller struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (c *controller) abort() {
	c.cancel()
}

func (c *controller) aborted() bool {
	return c.ctx.Err() != nil
}

// event is one queued notification: a state snapshot for the subscriber
// or a callback run outside the router lock.
type event struct {
	state State
	fn    func()
}

// fetchLoadMatch remembers what a loading fetcher targets so it can be
// revalidated.
type fetchLoadMatch struct {
	href    string
	match   route.Match
	matches []route.Match
}

// Router is the navigation state machine. It is safe for concurrent use.
type Router struct {
	routes             []*route.Route
	history            history.History
	basename           string
	logger             *slog.Logger
	matcher            route.Matcher
	middleware         []route.Middleware
	concurrency        int
	onExternalRedirect func(string)

	// handlerCache caches the middleware-wrapped handler per route and
	// kind.
	handlerCache sync.Map // map[handlerKey]route.HandlerFunc

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	disposed bool
	state    State

	subscriber    func(State)
	subscriberGen uint64
	queue         []event
	flushing      bool

	unlistenHistory func()

	pendingAction             history.Action
	pendingPreventScrollReset bool
	pendingNavigation         *controller
	pendingRedirect           bool
	uninterruptedRevalidation bool
	revalidationRequired      bool
	cancelledFetcherLoads     []string

	fetchers                map[string]Fetcher
	fetchControllers        map[string]*controller
	loadID                  int
	pendingNavigationLoadID int
	fetchReloadIDs          map[string]int
	fetchRedirectIDs        map[string]struct{}
	fetchLoadMatches        map[string]fetchLoadMatch

	scrollPositions       map[string]int
	getScrollPosition     func() int
	getScrollKey          GetScrollKeyFunc
	initialScrollRestored bool
}

// New prepares the route tree and computes the initial state from the
// current history location. It returns a *route.ConfigError for a
// malformed tree. Call Initialize to start listening and loading.
func New(cfg Config) (*Router, error) {
	if cfg.History == nil {
		return nil, ErrNoHistory
	}
	if len(cfg.Routes) == 0 {
		return nil, ErrNoRoutes
	}

	routes, err := route.Prepare(cfg.Routes)
	if err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewNope()
	}

	basename := cfg.Basename
	if basename == "" {
		basename = "/"
	}

	ctx, cancel := context.WithCancel(context.Background())

	r := &Router{
		routes:                  routes,
		history:                 cfg.History,
		basename:                basename,
		logger:                  log,
		matcher:                 route.Matcher{Basename: basename, Logger: log},
		middleware:              cfg.Middleware,
		concurrency:             cfg.LoaderConcurrency,
		onExternalRedirect:      cfg.OnExternalRedirect,
		ctx:                     ctx,
		cancel:                  cancel,
		pendingAction:           history.Pop,
		fetchers:                make(map[string]Fetcher),
		fetchControllers:        make(map[string]*controller),
		pendingNavigationLoadID: -1,
		fetchReloadIDs:          make(map[string]int),
		fetchRedirectIDs:        make(map[string]struct{}),
		fetchLoadMatches:        make(map[string]fetchLoadMatch),
	}

	location := cfg.History.Location()

	var initialErrors map[string]error
	matches := r.matchRoutes(location.Pathname)
	if matches == nil {
		var boundaryID string
		matches, boundaryID = shortCircuitMatches(routes)
		initialErrors = map[string]error{
			boundaryID: internalError(404, internalErrorArgs{pathname: location.Pathname}),
		}
	}

	initialized := cfg.HydrationData != nil || !hasLoader(matches)

	r.state = State{
		HistoryAction: cfg.History.Action(),
		Location:      location,
		Matches:       matches,
		Initialized:   initialized,
		Navigation:    IdleNavigation,
		Revalidation:  RevalidationIdle,
		LoaderData:    map[string]any{},
		Errors:        initialErrors,
		Fetchers:      map[string]Fetcher{},
	}

	if h := cfg.HydrationData; h != nil {
		if h.LoaderData != nil {
			r.state.LoaderData = maps.Clone(h.LoaderData)
		}
		r.state.ActionData = maps.Clone(h.ActionData)
		if h.Errors != nil {
			r.state.Errors = maps.Clone(h.Errors)
		}
	}

	return r, nil
}

// Initialize starts listening for history POPs and, unless the state was
// hydrated or nothing needs loading, runs the first data load before
// returning. It returns r for chaining.
func (r *Router) Initialize() *Router {
	r.mu.Lock()
	defer r.unlock()

	if r.disposed || r.unlistenHistory != nil {
		return r
	}

	r.unlistenHistory = r.history.Listen(r.onHistoryUpdate)

	if !r.state.Initialized {
		r.startNavigation(history.Pop, r.state.Location, startOptions{})
	}

	return r
}

func (r *Router) onHistoryUpdate(update history.Update) {
	r.mu.Lock()
	defer r.unlock()

	if r.disposed {
		return
	}

	r.startNavigation(update.Action, update.Location, startOptions{})
}

// State returns the current state snapshot.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.state
}

// Routes returns the prepared route tree.
func (r *Router) Routes() []*route.Route {
	return r.routes
}

// Basename returns the configured basename.
func (r *Router) Basename() string {
	return r.basename
}

// Subscribe registers fn to receive every committed state, in commit
// order. Only one subscriber may be registered at a time; a second call
// returns ErrAlreadySubscribed. fn is never called with the router lock
// held, so it may call back into the router.
func (r *Router) Subscribe(fn func(State)) (func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.disposed {
		return nil, ErrDisposed
	}
	if r.subscriber != nil {
		return nil, ErrAlreadySubscribed
	}

	r.subscriberGen++
	gen := r.subscriberGen
	r.subscriber = fn

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		if r.subscriberGen == gen {
			r.subscriber = nil
		}
	}, nil
}

// CreateHref renders p as an href through the history.
func (r *Router) CreateHref(p history.Path) string {
	return r.history.CreateHref(p)
}

// GetFetcher returns the state of the fetcher registered under key, or
// IdleFetcher.
func (r *Router) GetFetcher(key string) Fetcher {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.fetchers[key]; ok {
		return f
	}
	return IdleFetcher
}

// DeleteFetcher aborts the fetcher registered under key, if in flight,
// and forgets it.
func (r *Router) DeleteFetcher(key string) {
	r.mu.Lock()
	defer r.unlock()

	_, exists := r.fetchers[key]
	r.deleteFetcher(key)

	if exists {
		r.updateState()
	}
}

// Dispose stops listening to history, drops the subscriber and aborts
// every in-flight navigation and fetch. A disposed router rejects further
// operations with ErrDisposed.
func (r *Router) Dispose() {
	r.mu.Lock()
	defer r.unlock()

	if r.disposed {
		return
	}
	r.disposed = true

	if r.unlistenHistory != nil {
		r.unlistenHistory()
		r.unlistenHistory = nil
	}

	r.subscriber = nil
	r.queue = nil

	if r.pendingNavigation != nil {
		r.pendingNavigation.abort()
		r.pendingNavigation = nil
	}

	for key := range r.fetchers {
		r.deleteFetcher(key)
	}

	r.cancel()
}

func (r *Router) matchRoutes(pathname string) []route.Match {
	return r.matcher.Match(r.routes, pathname)
}

func (r *Router) newController() *controller {
	ctx, cancel := context.WithCancel(r.ctx)
	return &controller{ctx: ctx, cancel: cancel}
}

// updateState publishes r.state. Must be called with r.mu held.
func (r *Router) updateState() {
	r.state.Fetchers = maps.Clone(r.fetchers)
	r.queue = append(r.queue, event{state: r.state})
}

// afterUnlock queues fn to run outside the lock, in order with state
// notifications. Must be called with r.mu held.
func (r *Router) afterUnlock(fn func()) {
	r.queue = append(r.queue, event{fn: fn})
}

// unlock releases r.mu and delivers queued events.
func (r *Router) unlock() {
	r.mu.Unlock()
	r.flush()
}

// flush delivers queued events. A single goroutine delivers at a time;
// events queued meanwhile are picked up by its next round.
func (r *Router) flush() {
	for {
		r.mu.Lock()
		if r.flushing || len(r.queue) == 0 {
			r.mu.Unlock()
			return
		}

		r.flushing = true
		batch := r.queue
		r.queue = nil
		r.mu.Unlock()

		for _, ev := range batch {
			if ev.fn != nil {
				ev.fn()
				continue
			}

			r.mu.Lock()
			fn := r.subscriber
			r.mu.Unlock()

			if fn != nil {
				fn(ev.state)
			}
		}

		r.mu.Lock()
		r.flushing = false
		r.mu.Unlock()
	}
}

func hasLoader(matches []route.Match) bool {
	for _, m := range matches {
		if m.Route.Loader != nil {
			return true
		}
	}
	return false
}
