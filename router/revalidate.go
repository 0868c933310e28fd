package router

import (
	"slices"
	"strings"

	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/route"
)

// revalidatingFetcher is a loaded fetcher whose loader runs again along
// with a navigation or a fetcher submission.
type revalidatingFetcher struct {
	key     string
	href    string
	match   route.Match
	matches []route.Match
}

// getMatchesToLoad selects the matched routes whose loaders run for a
// navigation to next, and the fetchers that revalidate with it. Routes at
// or below the boundary of a pending action error are skipped.
func (r *Router) getMatchesToLoad(
	matches []route.Match,
	submission *Submission,
	next history.Path,
	pendingActionData map[string]any,
	pendingErrors map[string]error,
) ([]route.Match, []revalidatingFetcher) {
	var (
		actionResult any
		boundaryID   string
	)

	switch {
	case len(pendingErrors) > 0:
		for id, err := range pendingErrors {
			boundaryID = id
			actionResult = err
		}
	case len(pendingActionData) > 0:
		for _, data := range pendingActionData {
			actionResult = data
		}
	}

	boundaryMatches := matches
	if boundaryID != "" {
		if idx := slices.IndexFunc(matches, func(m route.Match) bool { return m.Route.ID == boundaryID }); idx >= 0 {
			boundaryMatches = matches[:idx]
		}
	}

	var toLoad []route.Match
	for i, m := range boundaryMatches {
		if m.Route.Loader == nil {
			continue
		}

		var current *route.Match
		if i < len(r.state.Matches) {
			current = &r.state.Matches[i]
		}

		if r.isNewLoader(current, m) ||
			r.shouldRevalidateLoader(r.state.Location.Path, *current, submission, next, m, actionResult) {
			toLoad = append(toLoad, m)
		}
	}

	keys := make([]string, 0, len(r.fetchLoadMatches))
	for key := range r.fetchLoadMatches {
		keys = append(keys, key)
	}
	slices.Sort(keys)

	var revalidating []revalidatingFetcher
	for _, key := range keys {
		flm := r.fetchLoadMatches[key]
		rf := revalidatingFetcher{key: key, href: flm.href, match: flm.match, matches: flm.matches}

		switch {
		case slices.Contains(r.cancelledFetcherLoads, key):
			revalidating = append(revalidating, rf)
		case r.revalidationRequired:
			href := history.ParsePath(flm.href)
			if r.shouldRevalidateLoader(href, flm.match, submission, href, flm.match, actionResult) {
				revalidating = append(revalidating, rf)
			}
		}
	}

	return toLoad, revalidating
}

// isNewLoader reports whether m is new at its depth or has no loader
// data yet.
func (r *Router) isNewLoader(current *route.Match, m route.Match) bool {
	if current == nil || current.Route.ID != m.Route.ID {
		return true
	}

	_, ok := r.state.LoaderData[m.Route.ID]
	return !ok
}

// isNewRouteInstance reports whether the same route matched a different
// pathname or splat value.
func isNewRouteInstance(current, next route.Match) bool {
	if current.Pathname != next.Pathname {
		return true
	}

	return strings.HasSuffix(current.Route.Path, "*") && current.Params["*"] != next.Params["*"]
}

// shouldRevalidateLoader applies the default revalidation policy and
// lets the route's ShouldRevalidate predicate override it. The predicate
// runs with r.mu held and must not call back into the router.
func (r *Router) shouldRevalidateLoader(
	currentPath history.Path,
	current route.Match,
	submission *Submission,
	nextPath history.Path,
	next route.Match,
	actionResult any,
) bool {
	currentURL := r.history.CreateURL(currentPath)
	nextURL := r.history.CreateURL(nextPath)

	defaultShouldRevalidate := isNewRouteInstance(current, next) ||
		currentURL.String() == nextURL.String() ||
		currentURL.RawQuery != nextURL.RawQuery ||
		r.revalidationRequired

	if next.Route.ShouldRevalidate == nil {
		return defaultShouldRevalidate
	}

	args := route.ShouldRevalidateArgs{
		CurrentURL:              currentURL,
		CurrentParams:           current.Params.Clone(),
		NextURL:                 nextURL,
		NextParams:              next.Params.Clone(),
		ActionResult:            actionResult,
		DefaultShouldRevalidate: defaultShouldRevalidate,
	}

	if submission != nil {
		args.FormMethod = submission.FormMethod
		args.FormAction = submission.FormAction
		args.FormEncType = submission.FormEncType
		args.FormData = submission.FormData.textValues()
	}

	return next.Route.ShouldRevalidate(args)
}
