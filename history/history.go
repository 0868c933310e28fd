package history

import (
	"net/url"
	"strings"
)

// Action is the type of history transition that produced a location.
type Action string

const (
	// Pop is a change to an arbitrary index in the stack (back/forward,
	// initial load).
	Pop Action = "POP"
	// Push is a new entry added to the stack.
	Push Action = "PUSH"
	// Replace is a replacement of the current entry.
	Replace Action = "REPLACE"
)

// Path is the pathname, search and hash of a URL.
type Path struct {
	// Pathname is the URL path, always beginning with "/" once normalized.
	Pathname string
	// Search is the query string including the leading "?", or empty.
	Search string
	// Hash is the fragment including the leading "#", or empty.
	Hash string
}

// String returns the path in href form.
func (p Path) String() string {
	return CreatePath(p)
}

// Location is an entry in the history stack.
type Location struct {
	Path

	// State is the caller-supplied state associated with the entry.
	State any
	// Key uniquely identifies the entry. It is never reused.
	Key string
}

// DefaultKey is the key of the first entry of a fresh history.
const DefaultKey = "default"

// Update is delivered to listeners when the history changes outside of
// Push and Replace.
type Update struct {
	Action   Action
	Location Location
	Delta    int
}

// Listener receives history updates.
type Listener func(Update)

// History is the session history consumed by the router.
//
// Push and Replace never notify listeners; only Go does. Implementations
// must invoke listeners without holding internal locks so a listener may
// call back into the history.
type History interface {
	// Action returns the action that produced the current location.
	Action() Action
	// Location returns the current location.
	Location() Location
	// Push adds a new entry after the current one, dropping any forward
	// entries.
	Push(to Location)
	// Replace swaps the current entry.
	Replace(to Location)
	// Go moves delta entries through the stack and notifies listeners.
	Go(delta int)
	// Listen registers fn and returns a function that removes it.
	Listen(fn Listener) func()
	// CreateHref returns the href for to.
	CreateHref(to Path) string
	// CreateURL returns the absolute URL for to.
	CreateURL(to Path) *url.URL
	// EncodeLocation returns to with its pathname percent-encoded the way
	// the backend stores it.
	EncodeLocation(to Path) Path
}

// ParsePath splits an href into its pathname, search and hash.
// Absent parts are left empty.
func ParsePath(href string) Path {
	var p Path
	if href == "" {
		return p
	}

	if i := strings.IndexByte(href, '#'); i >= 0 {
		p.Hash = href[i:]
		href = href[:i]
	}

	if i := strings.IndexByte(href, '?'); i >= 0 {
		p.Search = href[i:]
		href = href[:i]
	}

	p.Pathname = href

	return p
}

// CreatePath joins a Path back into an href. An empty pathname renders
// as "/"; a bare "?" or "#" is dropped.
func CreatePath(p Path) string {
	pathname := p.Pathname
	if pathname == "" {
		pathname = "/"
	}

	if p.Search != "" && p.Search != "?" {
		if p.Search[0] == '?' {
			pathname += p.Search
		} else {
			pathname += "?" + p.Search
		}
	}

	if p.Hash != "" && p.Hash != "#" {
		if p.Hash[0] == '#' {
			pathname += p.Hash
		} else {
			pathname += "#" + p.Hash
		}
	}

	return pathname
}

// CreateLocation builds a Location by applying the href to onto the
// pathname current. A to without a pathname keeps current's pathname.
// A fresh key is generated.
func CreateLocation(current string, to string, state any) Location {
	return CreateLocationFromPath(current, ParsePath(to), state, "")
}

// CreateLocationFromPath is CreateLocation for an already parsed Path.
// An empty key generates a fresh one.
func CreateLocationFromPath(current string, to Path, state any, key string) Location {
	loc := Location{
		Path:  to,
		State: state,
		Key:   key,
	}

	if loc.Pathname == "" {
		loc.Pathname = current
	}

	if loc.Key == "" {
		loc.Key = CreateKey()
	}

	return loc
}
