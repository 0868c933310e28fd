package router

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedirect(t *testing.T) {
	resp := Redirect("/login")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
	assert.Empty(t, resp.Header.Get(RevalidateHeader))

	resp = RedirectRevalidate("/login", http.StatusSeeOther)
	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "yes", resp.Header.Get(RevalidateHeader))
}

func TestJSON(t *testing.T) {
	resp, err := JSON(map[string]int{"n": 1}, http.StatusCreated)
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "201 Created", resp.Status)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"n":1}`, string(body))

	_, err = JSON(make(chan int), http.StatusOK)
	assert.Error(t, err)
}

func TestResponseResult(t *testing.T) {
	resolve := func(location string) string {
		return "/resolved/" + location
	}

	textResponse := func(status int, body string) *http.Response {
		return &http.Response{
			StatusCode: status,
			Status:     http.StatusText(status),
			Header:     http.Header{"Content-Type": {"text/plain"}},
			Body:       io.NopCloser(strings.NewReader(body)),
		}
	}

	tests := []struct {
		name string
		resp *http.Response
		want result
	}{
		{
			name: "relative redirect",
			resp: Redirect("next"),
			want: result{kind: resultRedirect, status: http.StatusFound, location: "/resolved/next"},
		},
		{
			name: "absolute redirect",
			resp: Redirect("https://example.com/x", http.StatusPermanentRedirect),
			want: result{kind: resultRedirect, status: http.StatusPermanentRedirect, location: "https://example.com/x"},
		},
		{
			name: "protocol relative redirect",
			resp: Redirect("//example.com/x"),
			want: result{kind: resultRedirect, status: http.StatusFound, location: "//example.com/x"},
		},
		{
			name: "revalidating redirect",
			resp: RedirectRevalidate("/x"),
			want: result{kind: resultRedirect, status: http.StatusFound, location: "/resolved//x", revalidate: true},
		},
		{
			name: "text body",
			resp: textResponse(http.StatusOK, "hello"),
			want: result{kind: resultData, status: http.StatusOK, data: "hello"},
		},
		{
			name: "redirect status without location is data",
			resp: textResponse(http.StatusFound, "moved"),
			want: result{kind: resultData, status: http.StatusFound, data: "moved"},
		},
		{
			name: "empty location is data",
			resp: Redirect(""),
			want: result{kind: resultData, status: http.StatusFound, data: ""},
		},
		{
			name: "not modified is data",
			resp: textResponse(http.StatusNotModified, ""),
			want: result{kind: resultData, status: http.StatusNotModified, data: ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, responseResult(tt.resp, resolve))
		})
	}
}

func TestResponseResultErrors(t *testing.T) {
	identity := func(location string) string { return location }

	t.Run("error status", func(t *testing.T) {
		resp, err := JSON(map[string]string{"reason": "gone"}, http.StatusGone)
		require.NoError(t, err)

		res := responseResult(resp, identity)
		assert.Equal(t, resultError, res.kind)

		er, ok := IsErrorResponse(res.err)
		require.True(t, ok)
		assert.Equal(t, http.StatusGone, er.Status)
		assert.Equal(t, "Gone", er.StatusText)
		assert.Equal(t, map[string]any{"reason": "gone"}, er.Data)
	})

	t.Run("malformed json", func(t *testing.T) {
		resp := &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": {"application/json"}},
			Body:       io.NopCloser(strings.NewReader("{")),
		}

		res := responseResult(resp, identity)
		assert.Equal(t, resultError, res.kind)
		assert.Contains(t, res.err.Error(), "decode json response")
	})
}

func TestErrorResult(t *testing.T) {
	identity := func(location string) string { return location }

	t.Run("plain error", func(t *testing.T) {
		errBoom := errors.New("boom")
		res := errorResult(errBoom, identity)
		assert.Equal(t, resultError, res.kind)
		assert.Same(t, errBoom, res.err)
	})

	t.Run("thrown redirect", func(t *testing.T) {
		res := errorResult(Throw(Redirect("/login")), identity)
		assert.Equal(t, resultRedirect, res.kind)
		assert.Equal(t, "/login", res.location)
	})

	t.Run("thrown ok response", func(t *testing.T) {
		resp, err := JSON("denied", http.StatusOK)
		require.NoError(t, err)

		res := errorResult(Throw(resp), identity)
		er, ok := IsErrorResponse(res.err)
		require.True(t, ok)
		assert.Equal(t, http.StatusOK, er.Status)
		assert.Equal(t, "denied", er.Data)
	})
}

func TestErrorResponse(t *testing.T) {
	er := NewErrorResponse(http.StatusTeapot, "", "brew")
	assert.Equal(t, "418 I'm a teapot", er.Error())
	assert.NoError(t, er.Unwrap())

	wrapped := internalError(http.StatusNotFound, internalErrorArgs{pathname: "/x"})
	assert.True(t, wrapped.Internal)
	assert.ErrorIs(t, wrapped, ErrNoMatch)
	assert.Equal(t, `no route matches URL "/x"`, wrapped.Data)

	tests := []struct {
		name   string
		status int
		args   internalErrorArgs
		is     error
		text   string
	}{
		{name: "bad request", status: http.StatusBadRequest, is: ErrInvalidBody},
		{name: "method only", status: http.StatusMethodNotAllowed, args: internalErrorArgs{method: "trace"}, is: ErrMethodNotAllowed, text: `"TRACE"`},
		{name: "bare method", status: http.StatusMethodNotAllowed, is: ErrMethodNotAllowed},
		{name: "unknown", status: http.StatusTeapot, text: "unknown router error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := internalError(tt.status, tt.args)
			if tt.is != nil {
				assert.ErrorIs(t, got, tt.is)
			}
			if tt.text != "" {
				assert.Contains(t, got.Error(), tt.text)
			}
		})
	}

	_, ok := IsErrorResponse(errors.New("plain"))
	assert.False(t, ok)
}
