package route

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// Kind distinguishes loader invocations from action invocations.
type Kind string

const (
	// KindLoader is a read-only data load.
	KindLoader Kind = "loader"
	// KindAction is a mutation triggered by a submission.
	KindAction Kind = "action"
)

// Params holds the dynamic segment values of a match. The splat value is
// stored under "*".
type Params map[string]string

// Clone returns a copy of p. A nil receiver yields an empty map.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Args is the argument passed to loaders and actions.
type Args struct {
	// Params are the params of the match the handler belongs to.
	Params Params
	// Request is bound to the handler context. Actions receive the
	// submission body.
	Request *http.Request
	// RouteID is the id of the route the handler is attached to.
	RouteID string
	// Kind tells whether the handler runs as a loader or an action.
	Kind Kind
}

// HandlerFunc is a loader or action. The context is cancelled when the
// navigation or fetch that started it is superseded or the router is
// disposed.
//
// The returned value becomes the route data. Returning an *http.Response
// is interpreted: a 3xx status with a Location header is a redirect,
// otherwise the body is decoded (JSON or text) and statuses >= 400 become
// error results. A returned error is recorded at the nearest error
// boundary unchanged.
type HandlerFunc func(ctx context.Context, args Args) (any, error)

// MiddlewareFunc receives a HandlerFunc and returns another HandlerFunc.
// It wraps loaders and actions with additional behavior such as logging,
// timeouts or tracing.
type MiddlewareFunc func(HandlerFunc) HandlerFunc

// Middleware allows MiddlewareFunc to implement the Middleware interface.
func (mw MiddlewareFunc) Middleware(handler HandlerFunc) HandlerFunc {
	return mw(handler)
}

// Middleware is implemented by handler decorators.
type Middleware interface {
	Middleware(HandlerFunc) HandlerFunc
}

// ShouldRevalidateArgs is passed to a route's ShouldRevalidate predicate.
type ShouldRevalidateArgs struct {
	CurrentURL    *url.URL
	CurrentParams Params
	NextURL       *url.URL
	NextParams    Params

	// Submission fields are set when the revalidation follows a
	// submission. FormData holds the text fields of the submission.
	FormMethod  string
	FormAction  string
	FormEncType string
	FormData    url.Values

	// ActionResult is the data or error produced by the action that
	// triggered the revalidation, if any.
	ActionResult any

	// DefaultShouldRevalidate is the router's own decision.
	DefaultShouldRevalidate bool
}

// ShouldRevalidateFunc decides whether a matched route's loader runs
// again. Its result is final.
type ShouldRevalidateFunc func(args ShouldRevalidateArgs) bool

// Route is a node of the route tree.
type Route struct {
	// ID identifies the route. Prepare assigns a tree position based id
	// ("0-1-2") to routes that leave it empty.
	ID string

	// Path is the pattern relative to the parent route. It may contain
	// ":name" segments and a trailing "*" splat. A route with neither a
	// path nor Index set is a layout route.
	Path string

	// Index marks a route that renders at its parent's URL. Index routes
	// cannot have children.
	Index bool

	// CaseSensitive makes Path match case-sensitively.
	CaseSensitive bool

	// Children are the nested routes, in declaration order.
	Children []*Route

	// Loader loads data for the route.
	Loader HandlerFunc

	// Action handles submissions targeting the route.
	Action HandlerFunc

	// HasErrorBoundary marks the route as able to display errors thrown
	// by itself or its descendants.
	HasErrorBoundary bool

	// ShouldRevalidate overrides the default revalidation policy.
	ShouldRevalidate ShouldRevalidateFunc

	// Handle is arbitrary application data attached to the route.
	Handle any
}

// Handler returns the loader or action of r for kind.
func (r *Route) Handler(kind Kind) HandlerFunc {
	if kind == KindAction {
		return r.Action
	}
	return r.Loader
}

// WalkFunc is called for each route visited by Walk with the route and
// the ancestors that led to it.
type WalkFunc func(route *Route, ancestors []*Route) error

// SkipChildren is used as a return value from WalkFunc to indicate that
// the children of the visited route should be skipped.
var SkipChildren = errors.New("skip children") //nolint:revive,staticcheck // mirrors filepath.SkipDir

// Walk visits routes depth-first in declaration order.
func Walk(routes []*Route, fn WalkFunc) error {
	return walk(routes, fn, nil)
}

func walk(routes []*Route, fn WalkFunc, ancestors []*Route) error {
	for _, r := range routes {
		err := fn(r, ancestors)
		if err == SkipChildren {
			continue
		}
		if err != nil {
			return err
		}
		if len(r.Children) > 0 {
			if err := walk(r.Children, fn, append(ancestors[:len(ancestors):len(ancestors)], r)); err != nil {
				return err
			}
		}
	}
	return nil
}
