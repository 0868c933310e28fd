package router

import (
	"github.com/vitalvas/pathway/history"
	"github.com/vitalvas/pathway/route"
)

// NavigationState is the phase of the in-flight navigation.
type NavigationState string

const (
	NavigationIdle       NavigationState = "idle"
	NavigationLoading    NavigationState = "loading"
	NavigationSubmitting NavigationState = "submitting"
)

// RevalidationState reports whether a Revalidate call is in progress.
type RevalidationState string

const (
	RevalidationIdle    RevalidationState = "idle"
	RevalidationLoading RevalidationState = "loading"
)

// FetcherState is the phase of a fetcher.
type FetcherState string

const (
	FetcherIdle       FetcherState = "idle"
	FetcherLoading    FetcherState = "loading"
	FetcherSubmitting FetcherState = "submitting"
)

// Submission describes a form submission.
type Submission struct {
	// FormMethod is the upper-case HTTP method.
	FormMethod string
	// FormAction is the href the form was submitted to.
	FormAction  string
	FormEncType string
	FormData    *FormData
}

// Navigation describes the in-flight navigation. Location is nil when
// idle. Submission is set while submitting and while loading after a
// submission.
type Navigation struct {
	State      NavigationState
	Location   *history.Location
	Submission *Submission
}

// IdleNavigation is the navigation of a router with nothing in flight.
var IdleNavigation = Navigation{State: NavigationIdle}

// Fetcher is the state of one keyed fetcher.
type Fetcher struct {
	State FetcherState
	// Data is the last data loaded or returned by the fetcher.
	Data       any
	Submission *Submission
}

// IdleFetcher is returned by GetFetcher for unknown keys.
var IdleFetcher = Fetcher{State: FetcherIdle}

// State is a snapshot of the router. Snapshots handed out by the router
// are never modified afterwards.
type State struct {
	// HistoryAction is the history action that produced Location.
	HistoryAction history.Action
	Location      history.Location
	// Matches are the matched routes, root to leaf.
	Matches []route.Match
	// Initialized is set once the first data load completed.
	Initialized bool
	Navigation  Navigation

	// RestoreScrollPosition is the saved position for Location, or nil
	// when none was saved.
	RestoreScrollPosition *int
	// PreventScrollReset is set when the committed navigation asked to
	// keep the scroll position.
	PreventScrollReset bool

	Revalidation RevalidationState

	// LoaderData holds loader data by route id.
	LoaderData map[string]any
	// ActionData holds the data of the last action by route id, or nil.
	ActionData map[string]any
	// Errors holds errors by the id of the route whose boundary displays
	// them, or nil.
	Errors map[string]error

	Fetchers map[string]Fetcher
}

// HydrationData seeds the initial state of a router whose first load
// already happened elsewhere.
type HydrationData struct {
	LoaderData map[string]any
	ActionData map[string]any
	Errors     map[string]error
}
