package router

import (
	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/route"
)

// GetScrollKeyFunc returns the key under which the scroll position of a
// location is saved. An empty key falls back to the location key.
type GetScrollKeyFunc func(location history.Location, matches []route.Match) string

// EnableScrollRestoration makes the router save the position returned by
// getPosition into positions before every navigation and report the saved
// position of the committed location in State.RestoreScrollPosition. A
// nil getKey keys positions by location key. The returned function turns
// restoration off.
//
// positions is written with the router lock held; callers should not
// modify it concurrently.
func (r *Router) EnableScrollRestoration(positions map[string]int, getPosition func() int, getKey GetScrollKeyFunc) func() {
	r.mu.Lock()
	defer r.unlock()

	r.scrollPositions = positions
	r.getScrollPosition = getPosition
	r.getScrollKey = getKey
	if r.getScrollKey == nil {
		r.getScrollKey = func(location history.Location, _ []route.Match) string {
			return location.Key
		}
	}

	if !r.initialScrollRestored && r.state.Navigation.State == NavigationIdle {
		r.initialScrollRestored = true
		if y := r.savedScrollPosition(r.state.Location, r.state.Matches); y != nil {
			r.state.RestoreScrollPosition = y
			r.updateState()
		}
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()

		r.scrollPositions = nil
		r.getScrollPosition = nil
		r.getScrollKey = nil
	}
}

func (r *Router) scrollKey(location history.Location, matches []route.Match) string {
	if key := r.getScrollKey(location, matches); key != "" {
		return key
	}
	return location.Key
}

func (r *Router) saveScrollPosition(location history.Location, matches []route.Match) {
	if r.scrollPositions == nil || r.getScrollPosition == nil || r.getScrollKey == nil {
		return
	}

	r.scrollPositions[r.scrollKey(location, matches)] = r.getScrollPosition()
}

func (r *Router) savedScrollPosition(location history.Location, matches []route.Match) *int {
	if r.scrollPositions == nil || r.getScrollPosition == nil || r.getScrollKey == nil {
		return nil
	}

	y, ok := r.scrollPositions[r.scrollKey(location, matches)]
	if !ok {
		return nil
	}
	return &y
}
