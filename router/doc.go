// Package router implements the navigation and data loading state
// machine of a single page application.
//
// A Router owns a State: the current location, the matched routes, the
// data returned by their loaders, the errors raised while loading and the
// in-flight navigation. Navigate, Fetch and Revalidate drive it:
//
//	r, err := router.New(router.Config{
//	    Routes:  routes,
//	    History: history.NewMemory(history.MemoryConfig{}),
//	})
//	if err != nil {
//	    return err
//	}
//	r.Initialize()
//	defer r.Dispose()
//
//	unsubscribe, _ := r.Subscribe(func(s router.State) {
//	    fmt.Println(s.Navigation.State, s.Location.Pathname)
//	})
//	defer unsubscribe()
//
//	_ = r.Navigate("/users/42")
//
// # Navigations
//
// A navigation matches the target location, runs the action of the
// target route for mutation submissions, then runs the loaders that need
// to run and commits the results at once. Loaders of routes that stay
// matched keep their data unless the URL search changed, the route
// matched another pathname, the same URL was requested again, or a
// submission or Revalidate forced a reload. Route.ShouldRevalidate has the
// final word.
//
// Starting a navigation aborts the pending one: the context passed to
// its handlers is cancelled and its results are discarded.
//
// # Handlers
//
// Loaders and actions receive a context cancelled on abort and an
// *http.Request for the target URL. Returning an *http.Response with a
// redirect status and a Location header redirects; other responses are
// decoded (JSON or text) and become data, or an *ErrorResponse for error
// statuses. Returned errors are recorded as is at the nearest route with
// HasErrorBoundary set, or the root route.
//
// # Fetchers
//
// Fetch loads or submits a URL under a caller chosen key without leaving
// the current page. Its state is reported in State.Fetchers.
package router
