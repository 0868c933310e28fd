package routehandlers

import (
	"net/http"

	"github.com/vitalvas/pathway/route"
)

// Invocation outcomes used as log values and metric labels.
const (
	outcomeData     = "data"
	outcomeRedirect = "redirect"
	outcomeError    = "error"
)

// outcome classifies the result of a handler the way the router will.
func outcome(value any, err error) string {
	if err != nil {
		return outcomeError
	}

	resp, ok := value.(*http.Response)
	if !ok || resp == nil {
		return outcomeData
	}

	switch {
	case resp.StatusCode >= 300 && resp.StatusCode < 400 && resp.Header.Get("Location") != "":
		return outcomeRedirect
	case resp.StatusCode >= http.StatusBadRequest:
		return outcomeError
	}

	return outcomeData
}

// requestURL returns the URL of the request carried by args, or "".
func requestURL(args route.Args) string {
	if args.Request == nil || args.Request.URL == nil {
		return ""
	}
	return args.Request.URL.String()
}

// redirectLocation returns the Location header of a redirect response.
func redirectLocation(value any) string {
	if resp, ok := value.(*http.Response); ok && resp != nil {
		return resp.Header.Get("Location")
	}
	return ""
}
