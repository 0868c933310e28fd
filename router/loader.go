package router

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/route"
)

// shimRouteID identifies the synthetic route used to report a 404 when
// the tree has no root-like route.
const shimRouteID = "__shim-error-route__"

// noData marks loader data dropped because the loader failed, so stale
// data is not carried forward for that route.
type noData struct{}

type handlerKey struct {
	route *route.Route
	kind  route.Kind
}

// handlerCall is one loader or action invocation.
type handlerCall struct {
	ctx        context.Context
	kind       route.Kind
	path       history.Path
	submission *Submission
	match      route.Match
	matches    []route.Match
}

type handlerOutput struct {
	value any
	err   error
}

// handler returns the middleware-wrapped handler of rt for kind.
func (r *Router) handler(rt *route.Route, kind route.Kind) route.HandlerFunc {
	h := rt.Handler(kind)
	if h == nil || len(r.middleware) == 0 {
		return h
	}

	key := handlerKey{route: rt, kind: kind}
	if cached, ok := r.handlerCache.Load(key); ok {
		return cached.(route.HandlerFunc)
	}

	for i := len(r.middleware) - 1; i >= 0; i-- {
		h = r.middleware[i].Middleware(h)
	}

	actual, _ := r.handlerCache.LoadOrStore(key, h)

	return actual.(route.HandlerFunc)
}

// runCalls runs calls concurrently with r.mu released and returns their
// results in order. Must be called with r.mu held; it is held again on
// return.
func (r *Router) runCalls(calls []handlerCall) []result {
	results := make([]result, len(calls))

	r.unlock()

	var g errgroup.Group
	if r.concurrency > 0 {
		g.SetLimit(r.concurrency)
	}

	for i, call := range calls {
		g.Go(func() error {
			results[i] = r.callHandler(call)
			return nil
		})
	}

	_ = g.Wait()

	r.mu.Lock()

	return results
}

// callLoaders runs the loaders of toLoad against path and the loaders of
// the revalidating fetchers against their own hrefs, all under ctrl.
func (r *Router) callLoaders(ctrl *controller, matches, toLoad []route.Match, fetchers []revalidatingFetcher, path history.Path) ([]result, []result) {
	calls := make([]handlerCall, 0, len(toLoad)+len(fetchers))

	for _, m := range toLoad {
		calls = append(calls, handlerCall{
			ctx:     ctrl.ctx,
			kind:    route.KindLoader,
			path:    path,
			match:   m,
			matches: matches,
		})
	}

	for _, rf := range fetchers {
		calls = append(calls, handlerCall{
			ctx:     ctrl.ctx,
			kind:    route.KindLoader,
			path:    history.ParsePath(rf.href),
			match:   rf.match,
			matches: rf.matches,
		})
	}

	results := r.runCalls(calls)

	return results[:len(toLoad)], results[len(toLoad):]
}

// callHandler invokes one handler and converts its output. The handler
// runs in its own goroutine; when call.ctx is cancelled first the result
// is an error the caller discards.
func (r *Router) callHandler(call handlerCall) result {
	if err := call.ctx.Err(); err != nil {
		return result{kind: resultError, err: err}
	}

	req, err := r.newRequest(call)
	if err != nil {
		return result{kind: resultError, err: err}
	}

	h := r.handler(call.match.Route, call.kind)
	if h == nil {
		return result{kind: resultError, err: fmt.Errorf("router: route %q has no %s", call.match.Route.ID, call.kind)}
	}

	args := route.Args{
		Params:  call.match.Params.Clone(),
		Request: req,
		RouteID: call.match.Route.ID,
		Kind:    call.kind,
	}

	ch := make(chan handlerOutput, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("handler panicked",
					slog.String("route_id", args.RouteID),
					slog.String("kind", string(args.Kind)),
					slog.Any("panic", p),
				)
				ch <- handlerOutput{err: fmt.Errorf("%w: route %q %s: %v", ErrHandlerPanic, args.RouteID, args.Kind, p)}
			}
		}()

		value, err := h(call.ctx, args)
		ch <- handlerOutput{value: value, err: err}
	}()

	var out handlerOutput
	select {
	case <-call.ctx.Done():
		return result{kind: resultError, err: call.ctx.Err()}
	case out = <-ch:
	}

	resolve := func(location string) string {
		return r.resolveRedirect(location, call.match, call.matches, req.URL.Path)
	}

	if out.err != nil {
		return errorResult(out.err, resolve)
	}

	if resp, ok := out.value.(*http.Response); ok && resp != nil {
		return responseResult(resp, resolve)
	}

	return result{kind: resultData, data: out.value}
}

// newRequest builds the request passed to a handler. Mutation
// submissions carry the encoded form as body.
func (r *Router) newRequest(call handlerCall) (*http.Request, error) {
	u := r.history.CreateURL(history.Path{Pathname: call.path.Pathname, Search: call.path.Search})

	method := http.MethodGet
	var (
		body        io.Reader
		contentType string
	)

	if s := call.submission; s != nil && isMutationMethod(s.FormMethod) {
		encoded, ct, err := s.FormData.Encode(s.FormEncType)
		if err != nil {
			return nil, internalError(http.StatusBadRequest, internalErrorArgs{})
		}

		method = s.FormMethod
		body = bytes.NewReader(encoded)
		contentType = ct
	}

	req, err := http.NewRequestWithContext(call.ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("router: build request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return req, nil
}

// resolveRedirect resolves a relative redirect location against the
// route that returned it and prefixes the basename.
func (r *Router) resolveRedirect(location string, match route.Match, matches []route.Match, requestPathname string) string {
	active := matches
	for i, m := range matches {
		if m.Route == match.Route {
			active = matches[:i+1]
			break
		}
	}

	contributing := route.PathContributingMatches(active)
	bases := make([]string, len(contributing))
	for i, m := range contributing {
		bases[i] = m.PathnameBase
	}

	p := route.ResolveTo(location, bases, requestPathname, false)
	p.Pathname = r.withBasename(p.Pathname)

	return history.CreatePath(p)
}

// findRedirect returns the redirect closest to the leaf: fetcher results
// first, then loader results, each scanned from the end.
func findRedirect(loaderResults, fetcherResults []result) *result {
	for i := len(fetcherResults) - 1; i >= 0; i-- {
		if fetcherResults[i].kind == resultRedirect {
			return &fetcherResults[i]
		}
	}
	for i := len(loaderResults) - 1; i >= 0; i-- {
		if loaderResults[i].kind == resultRedirect {
			return &loaderResults[i]
		}
	}
	return nil
}

// processLoaderData folds loader and fetcher results into fresh loader
// data and errors. A pending action error takes the place of the first
// loader error, or is reported at its own boundary when no loader fails.
func (r *Router) processLoaderData(
	matches []route.Match,
	toLoad []route.Match,
	loaderResults []result,
	pendingErrors map[string]error,
	revalidating []revalidatingFetcher,
	fetcherResults []result,
) (map[string]any, map[string]error) {
	loaderData := make(map[string]any, len(loaderResults))
	var errs map[string]error

	for i, res := range loaderResults {
		id := toLoad[i].Route.ID

		if res.kind != resultError {
			loaderData[id] = res.data
			continue
		}

		boundary := findNearestBoundary(matches, id)

		err := res.err
		if pendingErrors != nil {
			for _, pending := range pendingErrors {
				err = pending
			}
			pendingErrors = nil
		}

		if errs == nil {
			errs = make(map[string]error)
		}
		if _, exists := errs[boundary.Route.ID]; !exists {
			errs[boundary.Route.ID] = err
		}

		loaderData[id] = noData{}
	}

	if pendingErrors != nil {
		errs = make(map[string]error, len(pendingErrors))
		for id, err := range pendingErrors {
			errs[id] = err
			loaderData[id] = noData{}
		}
	}

	for i, rf := range revalidating {
		res := fetcherResults[i]

		if res.kind != resultError {
			r.fetchers[rf.key] = Fetcher{State: FetcherIdle, Data: res.data}
			continue
		}

		boundary := findNearestBoundary(r.state.Matches, rf.match.Route.ID)
		if errs == nil {
			errs = make(map[string]error)
		}
		if _, exists := errs[boundary.Route.ID]; !exists {
			errs[boundary.Route.ID] = res.err
		}

		r.deleteFetcher(rf.key)
	}

	return loaderData, errs
}

// mergeLoaderData carries loader data of matched routes that did not
// load this round forward from current. Fresh data is always kept; only
// carried-forward data below the first route with an error is dropped.
func mergeLoaderData(current, fresh map[string]any, matches []route.Match, errs map[string]error) map[string]any {
	merged := make(map[string]any, len(fresh))
	for id, data := range fresh {
		if _, dropped := data.(noData); !dropped {
			merged[id] = data
		}
	}

	for _, m := range matches {
		id := m.Route.ID

		if _, loaded := fresh[id]; !loaded {
			if data, ok := current[id]; ok {
				merged[id] = data
			}
		}

		if _, failed := errs[id]; failed {
			break
		}
	}

	return merged
}

// findNearestBoundary returns the deepest match at or above routeID with
// an error boundary, or the root match. An empty routeID searches all
// matches.
func findNearestBoundary(matches []route.Match, routeID string) route.Match {
	eligible := matches
	if routeID != "" {
		eligible = nil
		for i, m := range matches {
			if m.Route.ID == routeID {
				eligible = matches[:i+1]
				break
			}
		}
	}

	for i := len(eligible) - 1; i >= 0; i-- {
		if eligible[i].Route.HasErrorBoundary {
			return eligible[i]
		}
	}

	return matches[0]
}

// shortCircuitMatches returns the single match used to render a 404: the
// first top-level index, pathless or "/" route, or a synthetic route.
func shortCircuitMatches(routes []*route.Route) ([]route.Match, string) {
	var rt *route.Route
	for _, candidate := range routes {
		if candidate.Index || candidate.Path == "" || candidate.Path == "/" {
			rt = candidate
			break
		}
	}

	if rt == nil {
		rt = &route.Route{ID: shimRouteID}
	}

	return []route.Match{{Params: route.Params{}, Route: rt}}, rt.ID
}

// getTargetMatch returns the match whose action handles a submission: the
// index route when search carries a naked "index" param, otherwise the
// deepest path contributing match.
func getTargetMatch(matches []route.Match, search string) route.Match {
	last := matches[len(matches)-1]
	if last.Route.Index && hasNakedIndexQuery(search) {
		return last
	}

	contributing := route.PathContributingMatches(matches)
	return contributing[len(contributing)-1]
}
