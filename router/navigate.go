package router

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/route"
)

// startOptions configure startNavigation.
type startOptions struct {
	submission                     *Submission
	overrideNavigation             *Navigation
	pendingError                   error
	startUninterruptedRevalidation bool
	preventScrollReset             bool
	replace                        *bool
	isRedirect                     bool
}

// commit is the part of State replaced by completeNavigation. A nil
// loaderData keeps the current loader data; errors and actionData are
// only applied when their flag is set.
type commit struct {
	matches       []route.Match
	loaderData    map[string]any
	actionData    map[string]any
	hasActionData bool
	errors        map[string]error
	setErrors     bool
}

// Navigate navigates to the href to. Relative hrefs resolve against the
// current route hierarchy and the basename is prepended. With form data
// the navigation becomes a submission: mutations run the target route's
// action, GET submissions move the fields to the query string.
//
// Navigate returns once the navigation committed, was redirected, or was
// superseded by a newer one.
func (r *Router) Navigate(to string, opts ...NavigateOption) error {
	var o navigateOptions
	for _, opt := range opts {
		opt(&o)
	}

	r.mu.Lock()
	defer r.unlock()

	if r.disposed {
		return ErrDisposed
	}

	r.navigate(r.resolveHref(to, o.routeID, o.relativePath), o)

	return nil
}

// NavigatePath is Navigate for a parsed path.
func (r *Router) NavigatePath(to history.Path, opts ...NavigateOption) error {
	href := to.Pathname + route.NormalizeSearch(to.Search) + route.NormalizeHash(to.Hash)
	return r.Navigate(href, opts...)
}

// Go moves delta entries through the history. The resulting POP is
// picked up by the history listener installed by Initialize.
func (r *Router) Go(delta int) error {
	r.mu.Lock()
	if r.disposed {
		r.mu.Unlock()
		return ErrDisposed
	}
	h := r.history
	r.mu.Unlock()

	h.Go(delta)

	return nil
}

// Revalidate runs the loaders of the current matches again. During a
// loading navigation the navigation restarts with every loader; during a
// submission the revalidation is folded into the submission's own load.
func (r *Router) Revalidate() error {
	r.mu.Lock()
	defer r.unlock()

	if r.disposed {
		return ErrDisposed
	}

	r.interruptActiveLoads()
	r.state.Revalidation = RevalidationLoading
	r.updateState()

	switch r.state.Navigation.State {
	case NavigationSubmitting:
		return nil
	case NavigationIdle:
		r.startNavigation(r.state.HistoryAction, r.state.Location, startOptions{
			startUninterruptedRevalidation: true,
		})
	default:
		nav := r.state.Navigation
		r.startNavigation(r.pendingAction, *nav.Location, startOptions{
			overrideNavigation: &nav,
		})
	}

	return nil
}

func (r *Router) navigate(href string, o navigateOptions) {
	submission, href, pendingError := normalizeNavigateOptions(href, o, false)

	location := history.CreateLocation(r.state.Location.Pathname, href, o.state)
	location.Path = r.history.EncodeLocation(location.Path)

	action := history.Push
	switch {
	case o.replace != nil && *o.replace:
		action = history.Replace
	case o.replace != nil:
	case submission != nil && isMutationMethod(submission.FormMethod) &&
		submission.FormAction == r.state.Location.Pathname+r.state.Location.Search:
		action = history.Replace
	}

	r.startNavigation(action, location, startOptions{
		submission:         submission,
		pendingError:       pendingError,
		preventScrollReset: o.preventScrollReset,
		replace:            o.replace,
	})
}

// startNavigation runs the pipeline for a navigation to location: action,
// loaders, commit. A newer call aborts this one. Must be called with r.mu
// held; the lock is released while handlers run.
func (r *Router) startNavigation(action history.Action, location history.Location, opts startOptions) {
	if r.pendingNavigation != nil {
		r.pendingNavigation.abort()
	}
	r.pendingNavigation = nil
	r.pendingAction = action
	r.uninterruptedRevalidation = opts.startUninterruptedRevalidation
	r.pendingRedirect = opts.isRedirect

	r.saveScrollPosition(r.state.Location, r.state.Matches)
	r.pendingPreventScrollReset = opts.preventScrollReset

	loadingNavigation := opts.overrideNavigation

	matches := r.matchRoutes(location.Pathname)
	if matches == nil {
		notFound, boundaryID := shortCircuitMatches(r.routes)
		r.completeNavigation(location, commit{
			matches:    notFound,
			loaderData: map[string]any{},
			errors: map[string]error{
				boundaryID: internalError(http.StatusNotFound, internalErrorArgs{pathname: location.Pathname}),
			},
			setErrors: true,
		})
		return
	}

	// A hash change alone keeps the loaded data, unless data is still owed
	// or the navigation submits a mutation.
	if r.state.Initialized && !r.revalidationRequired &&
		!(opts.submission != nil && isMutationMethod(opts.submission.FormMethod)) &&
		isHashChangeOnly(r.state.Location, location) {
		r.completeNavigation(location, commit{matches: matches})
		return
	}

	ctrl := r.newController()
	r.pendingNavigation = ctrl

	var (
		pendingActionData map[string]any
		pendingErrors     map[string]error
	)

	switch {
	case opts.pendingError != nil:
		boundary := findNearestBoundary(matches, "")
		pendingErrors = map[string]error{boundary.Route.ID: opts.pendingError}

	case opts.submission != nil && isMutationMethod(opts.submission.FormMethod):
		out := r.handleAction(ctrl, location, opts.submission, matches, opts.replace)
		if out.shortCircuited {
			return
		}

		pendingActionData = out.actionData
		pendingErrors = out.actionErrors
		loadingNavigation = &Navigation{
			State:      NavigationLoading,
			Location:   &location,
			Submission: opts.submission,
		}
	}

	out := r.handleLoaders(ctrl, location, matches, loadingNavigation, opts.submission, pendingActionData, pendingErrors)
	if out.shortCircuited {
		return
	}

	r.pendingNavigation = nil

	r.completeNavigation(location, commit{
		matches:       matches,
		actionData:    pendingActionData,
		hasActionData: pendingActionData != nil,
		loaderData:    out.loaderData,
		errors:        out.errors,
		setErrors:     true,
	})
}

type actionOutcome struct {
	shortCircuited bool
	actionData     map[string]any
	actionErrors   map[string]error
}

func (r *Router) handleAction(ctrl *controller, location history.Location, submission *Submission, matches []route.Match, replace *bool) actionOutcome {
	r.interruptActiveLoads()

	r.state.Navigation = Navigation{
		State:      NavigationSubmitting,
		Location:   &location,
		Submission: submission,
	}
	r.updateState()

	target := getTargetMatch(matches, location.Search)

	var res result
	if target.Route.Action == nil {
		r.logger.Warn("submission to a route without an action",
			slog.String("route_id", target.Route.ID),
			slog.String("method", submission.FormMethod),
			slog.String("pathname", location.Pathname),
		)

		res = result{
			kind: resultError,
			err: internalError(http.StatusMethodNotAllowed, internalErrorArgs{
				method:   submission.FormMethod,
				pathname: location.Pathname,
				routeID:  target.Route.ID,
			}),
		}
	} else {
		res = r.runCalls([]handlerCall{{
			ctx:        ctrl.ctx,
			kind:       route.KindAction,
			path:       location.Path,
			submission: submission,
			match:      target,
			matches:    matches,
		}})[0]

		if ctrl.aborted() {
			r.logger.Debug("action discarded, navigation interrupted",
				slog.String("route_id", target.Route.ID),
				slog.String("pathname", location.Pathname),
			)
			return actionOutcome{shortCircuited: true}
		}
	}

	switch res.kind {
	case resultRedirect:
		r.startRedirectNavigation(res, submission)
		return actionOutcome{shortCircuited: true}

	case resultError:
		boundary := findNearestBoundary(matches, target.Route.ID)
		if replace == nil || !*replace {
			r.pendingAction = history.Push
		}
		return actionOutcome{
			actionData:   map[string]any{},
			actionErrors: map[string]error{boundary.Route.ID: res.err},
		}
	}

	return actionOutcome{
		actionData: map[string]any{target.Route.ID: res.data},
	}
}

type loadersOutcome struct {
	shortCircuited bool
	loaderData     map[string]any
	errors         map[string]error
}

func (r *Router) handleLoaders(
	ctrl *controller,
	location history.Location,
	matches []route.Match,
	overrideNavigation *Navigation,
	submission *Submission,
	pendingActionData map[string]any,
	pendingErrors map[string]error,
) loadersOutcome {
	loadingNavigation := overrideNavigation
	if loadingNavigation == nil {
		loadingNavigation = &Navigation{
			State:      NavigationLoading,
			Location:   &location,
			Submission: submission,
		}
	}

	activeSubmission := submission
	if activeSubmission == nil {
		activeSubmission = loadingNavigation.Submission
	}

	toLoad, revalidating := r.getMatchesToLoad(matches, activeSubmission, location.Path, pendingActionData, pendingErrors)

	if len(toLoad) == 0 && len(revalidating) == 0 {
		r.completeNavigation(location, commit{
			matches:       matches,
			loaderData:    map[string]any{},
			errors:        pendingErrors,
			setErrors:     true,
			actionData:    pendingActionData,
			hasActionData: pendingActionData != nil,
		})
		return loadersOutcome{shortCircuited: true}
	}

	if !r.uninterruptedRevalidation {
		for _, rf := range revalidating {
			r.fetchers[rf.key] = Fetcher{State: FetcherLoading, Data: r.fetchers[rf.key].Data}
		}

		r.state.Navigation = *loadingNavigation

		actionData := pendingActionData
		if actionData == nil {
			actionData = r.state.ActionData
		}
		if actionData != nil {
			if len(actionData) == 0 {
				r.state.ActionData = nil
			} else {
				r.state.ActionData = actionData
			}
		}

		r.updateState()
	}

	r.loadID++
	r.pendingNavigationLoadID = r.loadID

	for _, rf := range revalidating {
		r.fetchControllers[rf.key] = ctrl
	}

	loaderResults, fetcherResults := r.callLoaders(ctrl, matches, toLoad, revalidating, location.Path)
	if ctrl.aborted() {
		r.logger.Debug("loaders discarded, navigation interrupted",
			slog.String("pathname", location.Pathname),
		)
		return loadersOutcome{shortCircuited: true}
	}

	for _, rf := range revalidating {
		delete(r.fetchControllers, rf.key)
	}

	if redirect := findRedirect(loaderResults, fetcherResults); redirect != nil {
		r.startRedirectNavigation(*redirect, nil)
		return loadersOutcome{shortCircuited: true}
	}

	loaderData, errs := r.processLoaderData(matches, toLoad, loaderResults, pendingErrors, revalidating, fetcherResults)

	r.markFetchRedirectsDone()
	r.abortStaleFetchLoads(r.pendingNavigationLoadID)

	return loadersOutcome{loaderData: loaderData, errors: errs}
}

// completeNavigation commits location and c, resets the navigation to
// idle and reflects Push and Replace navigations in the history. Must be
// called with r.mu held.
func (r *Router) completeNavigation(location history.Location, c commit) {
	nav := r.state.Navigation
	isActionReload := r.state.ActionData != nil &&
		nav.State == NavigationLoading &&
		nav.Submission != nil &&
		isMutationMethod(nav.Submission.FormMethod) &&
		!r.pendingRedirect

	var actionData map[string]any
	switch {
	case c.hasActionData:
		if len(c.actionData) > 0 {
			actionData = c.actionData
		}
	case isActionReload:
		actionData = r.state.ActionData
	}

	matches := c.matches
	if matches == nil {
		matches = r.state.Matches
	}

	errs := r.state.Errors
	if c.setErrors {
		errs = c.errors
	}

	loaderData := r.state.LoaderData
	if c.loaderData != nil {
		loaderData = mergeLoaderData(r.state.LoaderData, c.loaderData, matches, errs)
	}

	r.state.HistoryAction = r.pendingAction
	r.state.Location = location
	r.state.Matches = matches
	r.state.Initialized = true
	r.state.Navigation = IdleNavigation
	r.state.Revalidation = RevalidationIdle
	r.state.RestoreScrollPosition = r.savedScrollPosition(location, matches)
	r.state.PreventScrollReset = r.pendingPreventScrollReset
	r.state.LoaderData = loaderData
	r.state.ActionData = actionData
	r.state.Errors = errs
	r.updateState()

	switch {
	case r.uninterruptedRevalidation:
	case r.pendingAction == history.Push:
		r.history.Push(location)
	case r.pendingAction == history.Replace:
		r.history.Replace(location)
	}

	r.pendingAction = history.Pop
	r.pendingPreventScrollReset = false
	r.pendingRedirect = false
	r.uninterruptedRevalidation = false
	r.revalidationRequired = false
	r.cancelledFetcherLoads = nil
}

// startRedirectNavigation follows a redirect result with a Replace
// navigation. 307 and 308 redirects of a mutation submit again to the
// new location; any other redirect loads it, keeping the submission for
// display.
func (r *Router) startRedirectNavigation(redirect result, submission *Submission) {
	if redirect.revalidate {
		r.revalidationRequired = true
	}

	target, external := r.redirectTarget(redirect.location)
	if external {
		r.followExternalRedirect(target)
		return
	}

	location := history.CreateLocation(r.state.Location.Pathname, target, nil)
	r.pendingNavigation = nil

	if submission == nil {
		submission = r.state.Navigation.Submission
	}

	if isMethodPreservingRedirect(redirect.status) && submission != nil && isMutationMethod(submission.FormMethod) {
		resubmit := *submission
		resubmit.FormAction = target

		r.startNavigation(history.Replace, location, startOptions{
			submission:         &resubmit,
			preventScrollReset: r.pendingPreventScrollReset,
			isRedirect:         true,
		})
		return
	}

	r.startNavigation(history.Replace, location, startOptions{
		overrideNavigation: &Navigation{
			State:      NavigationLoading,
			Location:   &location,
			Submission: submission,
		},
		preventScrollReset: r.pendingPreventScrollReset,
		isRedirect:         true,
	})
}

// redirectTarget turns an absolute same-origin location into an href and
// reports whether location leaves the history origin.
func (r *Router) redirectTarget(location string) (string, bool) {
	if !absoluteLocation.MatchString(location) && !strings.HasPrefix(location, "//") {
		return location, false
	}

	u, err := url.Parse(location)
	if err != nil {
		return location, true
	}

	origin := r.history.CreateURL(history.Path{Pathname: "/"})
	if !strings.EqualFold(u.Host, origin.Host) || (u.Scheme != "" && !strings.EqualFold(u.Scheme, origin.Scheme)) {
		return location, true
	}

	href := u.EscapedPath()
	if href == "" {
		href = "/"
	}
	if u.RawQuery != "" {
		href += "?" + u.RawQuery
	}
	if u.Fragment != "" {
		href += "#" + u.EscapedFragment()
	}

	return href, false
}

func (r *Router) followExternalRedirect(location string) {
	if r.pendingNavigation != nil {
		r.pendingNavigation.abort()
		r.pendingNavigation = nil
	}

	r.markFetchRedirectsDone()
	r.state.Navigation = IdleNavigation
	r.state.Revalidation = RevalidationIdle
	r.updateState()

	r.pendingAction = history.Pop
	r.pendingRedirect = false
	r.uninterruptedRevalidation = false

	if r.onExternalRedirect == nil {
		r.logger.Warn("external redirect dropped, no handler configured",
			slog.String("location", location),
		)
		return
	}

	r.logger.Info("external redirect", slog.String("location", location))

	cb := r.onExternalRedirect
	r.afterUnlock(func() {
		cb(location)
	})
}

// resolveHref resolves to against the current matches, optionally cut at
// routeID, and prefixes the basename.
func (r *Router) resolveHref(to, routeID string, relativePath bool) string {
	matches := r.state.Matches
	if routeID != "" {
		for i, m := range matches {
			if m.Route.ID == routeID {
				matches = matches[:i+1]
				break
			}
		}
	}

	contributing := route.PathContributingMatches(matches)
	bases := make([]string, len(contributing))
	for i, m := range contributing {
		bases[i] = m.PathnameBase
	}

	locationPathname, ok := route.StripBasename(r.state.Location.Pathname, r.basename)
	if !ok {
		locationPathname = r.state.Location.Pathname
	}

	p := route.ResolveTo(to, bases, locationPathname, relativePath)
	p.Pathname = r.withBasename(p.Pathname)

	return history.CreatePath(p)
}

func (r *Router) withBasename(pathname string) string {
	if r.basename == "/" {
		return pathname
	}
	if pathname == "/" {
		return r.basename
	}
	return route.JoinPaths(r.basename, pathname)
}

// normalizeNavigateOptions builds the submission described by o. GET
// submissions replace the query string of href with the form fields.
// Invalid input yields a pending ErrorResponse instead of a submission.
func normalizeNavigateOptions(href string, o navigateOptions, isFetcher bool) (*Submission, string, error) {
	if o.formData == nil {
		return nil, href, nil
	}

	method := strings.ToUpper(o.formMethod)
	if method == "" {
		method = http.MethodGet
	}

	if !isValidMethod(method) {
		return nil, href, internalError(http.StatusMethodNotAllowed, internalErrorArgs{method: method})
	}

	encType := o.formEncType
	if encType == "" {
		encType = EncTypeURLEncoded
	}

	submission := &Submission{
		FormMethod:  method,
		FormAction:  stripHash(href),
		FormEncType: encType,
		FormData:    o.formData,
	}

	if isMutationMethod(method) {
		if _, _, err := o.formData.Encode(encType); err != nil {
			return nil, href, internalError(http.StatusBadRequest, internalErrorArgs{})
		}
		return submission, href, nil
	}

	params, err := o.formData.SearchParams()
	if err != nil {
		return nil, href, internalError(http.StatusBadRequest, internalErrorArgs{})
	}

	p := history.ParsePath(href)
	if isFetcher && hasNakedIndexQuery(p.Search) {
		params.Add("index", "")
	}
	p.Search = "?" + params.Encode()

	return submission, history.CreatePath(p), nil
}

func isHashChangeOnly(a, b history.Location) bool {
	return a.Pathname == b.Pathname && a.Search == b.Search && a.Hash != b.Hash
}

func isValidMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func isMutationMethod(method string) bool {
	switch strings.ToUpper(method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func hasNakedIndexQuery(search string) bool {
	if search == "" {
		return false
	}

	values, err := url.ParseQuery(strings.TrimPrefix(search, "?"))
	if err != nil {
		return false
	}

	for _, v := range values["index"] {
		if v == "" {
			return true
		}
	}
	return false
}

func stripHash(href string) string {
	if i := strings.IndexByte(href, '#'); i >= 0 {
		return href[:i]
	}
	return href
}
