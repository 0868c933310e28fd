package router

import (
	"net/http"

	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/route"
)

// Fetch loads or submits href under key without navigating. A fetch with
// a key already in flight aborts the previous one. Mutation submissions
// run the target action and then revalidate the current page; anything
// else runs the target loader and stores its data on the fetcher.
//
// Fetch returns once the fetcher settled or was superseded.
func (r *Router) Fetch(key, href string, opts ...FetchOption) error {
	var o navigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.unlock()

	if r.disposed {
		return ErrDisposed
	}

	if _, ok := r.fetchControllers[key]; ok {
		r.abortFetcher(key)
	}

	path := r.resolveHref(href, o.routeID, o.relativePath)

	matches := r.matchRoutes(history.ParsePath(path).Pathname)
	if matches == nil {
		r.setFetcherError(key, o.routeID, internalError(http.StatusNotFound, internalErrorArgs{pathname: path}))
		return nil
	}

	submission, path, pendingError := normalizeNavigateOptions(path, o, true)
	if pendingError != nil {
		r.setFetcherError(key, o.routeID, pendingError)
		return nil
	}

	match := getTargetMatch(matches, history.ParsePath(path).Search)

	r.pendingPreventScrollReset = o.preventScrollReset

	if submission != nil && isMutationMethod(submission.FormMethod) {
		r.handleFetcherAction(key, o.routeID, path, match, matches, submission)
		return nil
	}

	r.fetchLoadMatches[key] = fetchLoadMatch{href: path, match: match, matches: matches}
	r.handleFetcherLoader(key, path, match, matches)

	return nil
}

func (r *Router) handleFetcherAction(key, routeID, path string, match route.Match, requestMatches []route.Match, submission *Submission) {
	r.interruptActiveLoads()
	delete(r.fetchLoadMatches, key)

	if match.Route.Action == nil {
		r.setFetcherError(key, routeID, internalError(http.StatusMethodNotAllowed, internalErrorArgs{
			method:   submission.FormMethod,
			pathname: path,
			routeID:  match.Route.ID,
		}))
		return
	}

	r.fetchers[key] = Fetcher{
		State:      FetcherSubmitting,
		Data:       r.fetchers[key].Data,
		Submission: submission,
	}
	r.updateState()

	ctrl := r.newController()
	r.fetchControllers[key] = ctrl

	actionResult := r.runCalls([]handlerCall{{
		ctx:        ctrl.ctx,
		kind:       route.KindAction,
		path:       history.ParsePath(path),
		submission: submission,
		match:      match,
		matches:    requestMatches,
	}})[0]

	if ctrl.aborted() {
		if r.fetchControllers[key] == ctrl {
			delete(r.fetchControllers, key)
		}
		return
	}

	switch actionResult.kind {
	case resultRedirect:
		delete(r.fetchControllers, key)
		r.fetchRedirectIDs[key] = struct{}{}
		r.fetchers[key] = Fetcher{State: FetcherLoading, Submission: submission}
		r.updateState()
		r.startRedirectNavigation(actionResult, nil)
		return

	case resultError:
		r.setFetcherError(key, routeID, actionResult.err)
		return
	}

	// Revalidate the page being shown, or the one being navigated to.
	nextLocation := r.state.Location
	matches := r.state.Matches
	if r.state.Navigation.State != NavigationIdle && r.state.Navigation.Location != nil {
		if next := r.matchRoutes(r.state.Navigation.Location.Pathname); next != nil {
			nextLocation = *r.state.Navigation.Location
			matches = next
		}
	}

	r.loadID++
	loadID := r.loadID
	r.fetchReloadIDs[key] = loadID

	r.fetchers[key] = Fetcher{
		State:      FetcherLoading,
		Data:       actionResult.data,
		Submission: submission,
	}

	toLoad, revalidating := r.getMatchesToLoad(matches, submission, nextLocation.Path,
		map[string]any{match.Route.ID: actionResult.data}, nil)

	for _, rf := range revalidating {
		if rf.key == key {
			continue
		}
		r.fetchers[rf.key] = Fetcher{State: FetcherLoading, Data: r.fetchers[rf.key].Data}
		r.fetchControllers[rf.key] = ctrl
	}
	r.updateState()

	loaderResults, fetcherResults := r.callLoaders(ctrl, matches, toLoad, revalidating, nextLocation.Path)
	if ctrl.aborted() {
		return
	}

	delete(r.fetchReloadIDs, key)
	delete(r.fetchControllers, key)
	for _, rf := range revalidating {
		delete(r.fetchControllers, rf.key)
	}

	if redirect := findRedirect(loaderResults, fetcherResults); redirect != nil {
		r.startRedirectNavigation(*redirect, nil)
		return
	}

	loaderData, errs := r.processLoaderData(matches, toLoad, loaderResults, nil, revalidating, fetcherResults)

	r.fetchers[key] = Fetcher{State: FetcherIdle, Data: actionResult.data}

	r.abortStaleFetchLoads(loadID)

	// A pending navigation that started loading before this fetcher's
	// reload is overtaken by the fresher data.
	if r.state.Navigation.State == NavigationLoading && loadID > r.pendingNavigationLoadID {
		if r.pendingNavigation != nil {
			r.pendingNavigation.abort()
		}

		r.completeNavigation(*r.state.Navigation.Location, commit{
			matches:    matches,
			loaderData: loaderData,
			errors:     errs,
			setErrors:  true,
		})
		return
	}

	r.state.Errors = errs
	r.state.LoaderData = mergeLoaderData(r.state.LoaderData, loaderData, matches, errs)
	r.updateState()
	r.revalidationRequired = false
}

func (r *Router) handleFetcherLoader(key, path string, match route.Match, matches []route.Match) {
	r.fetchers[key] = Fetcher{State: FetcherLoading, Data: r.fetchers[key].Data}
	r.updateState()

	ctrl := r.newController()
	r.fetchControllers[key] = ctrl

	res := r.runCalls([]handlerCall{{
		ctx:     ctrl.ctx,
		kind:    route.KindLoader,
		path:    history.ParsePath(path),
		match:   match,
		matches: matches,
	}})[0]

	if r.fetchControllers[key] == ctrl {
		delete(r.fetchControllers, key)
	}

	if ctrl.aborted() {
		return
	}

	switch res.kind {
	case resultRedirect:
		r.startRedirectNavigation(res, nil)
		return

	case resultError:
		boundary := findNearestBoundary(matches, match.Route.ID)
		r.deleteFetcher(key)
		r.state.Errors = map[string]error{boundary.Route.ID: res.err}
		r.updateState()
		return
	}

	r.fetchers[key] = Fetcher{State: FetcherIdle, Data: res.data}
	r.updateState()
}

// setFetcherError drops the fetcher and raises err at the boundary
// nearest to routeID in the current matches.
func (r *Router) setFetcherError(key, routeID string, err error) {
	boundary := findNearestBoundary(r.state.Matches, routeID)
	r.deleteFetcher(key)
	r.state.Errors = map[string]error{boundary.Route.ID: err}
	r.updateState()
}

// deleteFetcher aborts and forgets the fetcher without publishing.
func (r *Router) deleteFetcher(key string) {
	if _, ok := r.fetchControllers[key]; ok {
		r.abortFetcher(key)
	}

	delete(r.fetchLoadMatches, key)
	delete(r.fetchReloadIDs, key)
	delete(r.fetchRedirectIDs, key)
	delete(r.fetchers, key)
}

func (r *Router) abortFetcher(key string) {
	if ctrl, ok := r.fetchControllers[key]; ok {
		ctrl.abort()
		delete(r.fetchControllers, key)
	}
}

// interruptActiveLoads forces the next load to revalidate everything and
// aborts in-flight fetcher loads so they run again with it.
func (r *Router) interruptActiveLoads() {
	r.revalidationRequired = true

	for key := range r.fetchLoadMatches {
		if _, ok := r.fetchControllers[key]; ok {
			r.cancelledFetcherLoads = append(r.cancelledFetcherLoads, key)
			r.abortFetcher(key)
		}
	}
}

func (r *Router) markFetchersDone(keys []string) {
	for _, key := range keys {
		if f, ok := r.fetchers[key]; ok {
			r.fetchers[key] = Fetcher{State: FetcherIdle, Data: f.Data}
		}
	}
}

// markFetchRedirectsDone settles fetchers whose action redirected once
// the redirect navigation loaded.
func (r *Router) markFetchRedirectsDone() {
	var done []string
	for key := range r.fetchRedirectIDs {
		if r.fetchers[key].State == FetcherLoading {
			delete(r.fetchRedirectIDs, key)
			done = append(done, key)
		}
	}
	r.markFetchersDone(done)
}

// abortStaleFetchLoads aborts fetcher reloads older than landedID and
// settles them with their last data. It reports whether any was aborted.
func (r *Router) abortStaleFetchLoads(landedID int) bool {
	var stale []string
	for key, id := range r.fetchReloadIDs {
		if id < landedID && r.fetchers[key].State == FetcherLoading {
			r.abortFetcher(key)
			delete(r.fetchReloadIDs, key)
			stale = append(stale, key)
		}
	}
	r.markFetchersDone(stale)

	return len(stale) > 0
}
