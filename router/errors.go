package router

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrAlreadySubscribed is returned by Subscribe while another
	// subscriber is registered.
	ErrAlreadySubscribed = errors.New("router: a subscriber is already registered")

	// ErrDisposed is returned by operations on a disposed router.
	ErrDisposed = errors.New("router: router has been disposed")

	// ErrNoHistory is returned by New when Config.History is nil.
	ErrNoHistory = errors.New("router: a history is required")

	// ErrNoRoutes is returned by New when Config.Routes is empty.
	ErrNoRoutes = errors.New("router: at least one route is required")

	// ErrNoMatch is wrapped by the 404 ErrorResponse recorded when no
	// route matches a location.
	ErrNoMatch = errors.New("no route matches URL")

	// ErrMethodNotAllowed is wrapped by the 405 ErrorResponse recorded when
	// a submission targets a route without an action, or uses an invalid
	// method.
	ErrMethodNotAllowed = errors.New("method not allowed")

	// ErrInvalidBody is wrapped by the 400 ErrorResponse recorded when a
	// submission cannot be encoded.
	ErrInvalidBody = errors.New("unable to encode submission body")

	// ErrHandlerPanic is wrapped by errors recovered from a panicking
	// loader or action.
	ErrHandlerPanic = errors.New("router: handler panicked")
)

// ErrorResponse is an error carrying an HTTP-like status. It is recorded
// for router generated errors (404, 405, 400) and for handler responses
// with an error status.
type ErrorResponse struct {
	Status     int
	StatusText string

	// Data is the decoded response body. For internal errors it is the
	// error message.
	Data any

	// Internal is set for errors generated by the router itself.
	Internal bool

	// Err is the underlying error, if any.
	Err error
}

// NewErrorResponse returns an ErrorResponse for status and data. An empty
// statusText defaults to http.StatusText(status).
func NewErrorResponse(status int, statusText string, data any) *ErrorResponse {
	if statusText == "" {
		statusText = http.StatusText(status)
	}
	return &ErrorResponse{Status: status, StatusText: statusText, Data: data}
}

func (e *ErrorResponse) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%d %s: %s", e.Status, e.StatusText, e.Err.Error())
	}
	return fmt.Sprintf("%d %s", e.Status, e.StatusText)
}

func (e *ErrorResponse) Unwrap() error {
	return e.Err
}

// IsErrorResponse reports whether err is or wraps an *ErrorResponse and
// returns it.
func IsErrorResponse(err error) (*ErrorResponse, bool) {
	var resp *ErrorResponse
	if errors.As(err, &resp) {
		return resp, true
	}
	return nil, false
}

type internalErrorArgs struct {
	pathname string
	routeID  string
	method   string
}

func internalError(status int, args internalErrorArgs) *ErrorResponse {
	var err error

	switch status {
	case http.StatusBadRequest:
		err = ErrInvalidBody
	case http.StatusNotFound:
		err = fmt.Errorf("%w %q", ErrNoMatch, args.pathname)
	case http.StatusMethodNotAllowed:
		method := strings.ToUpper(args.method)
		switch {
		case method != "" && args.pathname != "" && args.routeID != "":
			err = fmt.Errorf("%w: you made a %s request to %q but did not provide an action for route %q, so there is no way to handle the request",
				ErrMethodNotAllowed, method, args.pathname, args.routeID)
		case method != "":
			err = fmt.Errorf("%w: invalid request method %q", ErrMethodNotAllowed, method)
		default:
			err = ErrMethodNotAllowed
		}
	default:
		status = http.StatusInternalServerError
		err = errors.New("unknown router error")
	}

	return &ErrorResponse{
		Status:     status,
		StatusText: http.StatusText(status),
		Data:       err.Error(),
		Internal:   true,
		Err:        err,
	}
}
