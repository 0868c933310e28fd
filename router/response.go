package router

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
)

// RevalidateHeader on a redirect response forces every loader to run
// again on the redirect navigation.
const RevalidateHeader = "X-Remix-Revalidate"

var (
	jsonContentType  = regexp.MustCompile(`\bapplication/json\b`)
	absoluteLocation = regexp.MustCompile(`(?i)^[a-z+]+://`)
)

// Redirect returns a redirect response to location. The status defaults
// to 302 Found.
func Redirect(location string, status ...int) *http.Response {
	code := http.StatusFound
	if len(status) > 0 {
		code = status[0]
	}

	return &http.Response{
		Status:     fmt.Sprintf("%d %s", code, http.StatusText(code)),
		StatusCode: code,
		Header:     http.Header{"Location": []string{location}},
		Body:       http.NoBody,
	}
}

// RedirectRevalidate is Redirect with RevalidateHeader set.
func RedirectRevalidate(location string, status ...int) *http.Response {
	resp := Redirect(location, status...)
	resp.Header.Set(RevalidateHeader, "yes")
	return resp
}

// JSON returns a response with data encoded as JSON.
func JSON(data any, status int) (*http.Response, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", status, http.StatusText(status)),
		StatusCode:    status,
		Header:        http.Header{"Content-Type": []string{"application/json; charset=utf-8"}},
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
	}, nil
}

type resultKind int

const (
	resultData resultKind = iota
	resultRedirect
	resultError
)

// result is the outcome of one loader or action call.
type result struct {
	kind resultKind

	data       any
	err        error
	status     int
	location   string
	revalidate bool
}

func isRedirectStatus(status int) bool {
	switch status {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

func isMethodPreservingRedirect(status int) bool {
	return status == http.StatusTemporaryRedirect || status == http.StatusPermanentRedirect
}

// responseResult converts a handler response into a result. Relative
// redirect locations are resolved by resolve.
func responseResult(resp *http.Response, resolve func(string) string) result {
	if resp.Body != nil {
		defer resp.Body.Close()
	}

	// A redirect status without a Location is decoded like any other
	// response.
	if location := resp.Header.Get("Location"); isRedirectStatus(resp.StatusCode) && location != "" {
		if !absoluteLocation.MatchString(location) && !strings.HasPrefix(location, "//") {
			location = resolve(location)
		}

		return result{
			kind:       resultRedirect,
			status:     resp.StatusCode,
			location:   location,
			revalidate: resp.Header.Get(RevalidateHeader) != "",
		}
	}

	data, err := decodeBody(resp)
	if err != nil {
		return result{kind: resultError, err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		statusText := http.StatusText(resp.StatusCode)
		if _, text, ok := strings.Cut(resp.Status, " "); ok && text != "" {
			statusText = text
		}

		return result{
			kind:   resultError,
			status: resp.StatusCode,
			err:    &ErrorResponse{Status: resp.StatusCode, StatusText: statusText, Data: data},
		}
	}

	return result{kind: resultData, data: data, status: resp.StatusCode}
}

func decodeBody(resp *http.Response) (any, error) {
	if resp.Body == nil {
		return "", nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("router: read response body: %w", err)
	}

	if !jsonContentType.MatchString(resp.Header.Get("Content-Type")) {
		return string(body), nil
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("router: decode json response: %w", err)
	}
	return data, nil
}

// errorResult wraps a handler error. Errors wrapping an *http.Response
// through ResponseError are treated like a returned response.
func errorResult(err error, resolve func(string) string) result {
	var re *ResponseError
	if errors.As(err, &re) && re.Response != nil {
		res := responseResult(re.Response, resolve)
		if res.kind == resultData {
			res = result{kind: resultError, status: res.status, err: NewErrorResponse(res.status, "", res.data)}
		}
		return res
	}
	return result{kind: resultError, err: err}
}

// ResponseError lets a handler return a response through its error
// value. A redirect still redirects; any other response becomes an
// ErrorResponse regardless of status.
type ResponseError struct {
	Response *http.Response
}

func (e *ResponseError) Error() string {
	if e.Response == nil {
		return "router: nil response"
	}
	return "router: response " + e.Response.Status
}

// Throw wraps resp in a *ResponseError.
func Throw(resp *http.Response) error {
	return &ResponseError{Response: resp}
}
