package history

import (
	"net/url"
	"strings"
	"sync"
)

// DefaultOrigin is the origin used by Memory to build absolute URLs.
const DefaultOrigin = "http://localhost"

// MemoryConfig configures a Memory history.
type MemoryConfig struct {
	// InitialEntries are the hrefs the stack starts with.
	// Defaults to a single "/" entry.
	InitialEntries []string

	// InitialIndex is the index of the current entry. Negative values
	// select the last entry. Out of range values are clamped.
	InitialIndex int

	// Origin is the scheme and host used by CreateURL.
	// Defaults to DefaultOrigin.
	Origin string

	// KeyFunc generates location keys. Defaults to CreateKey.
	KeyFunc KeyFunc
}

// Memory is a History that keeps its entries in memory. It is safe for
// concurrent use.
type Memory struct {
	mu        sync.Mutex
	entries   []Location
	index     int
	action    Action
	origin    string
	keyFunc   KeyFunc
	listeners map[int]Listener
	nextID    int
}

// NewMemory returns a Memory history.
func NewMemory(cfg MemoryConfig) *Memory {
	initial := cfg.InitialEntries
	if len(initial) == 0 {
		initial = []string{"/"}
	}

	origin := cfg.Origin
	if origin == "" {
		origin = DefaultOrigin
	}

	keyFunc := cfg.KeyFunc
	if keyFunc == nil {
		keyFunc = CreateKey
	}

	m := &Memory{
		action:    Pop,
		origin:    strings.TrimRight(origin, "/"),
		keyFunc:   keyFunc,
		listeners: make(map[int]Listener),
	}

	m.entries = make([]Location, 0, len(initial))
	for i, entry := range initial {
		key := ""
		if i == 0 {
			key = DefaultKey
		} else {
			key = keyFunc()
		}
		m.entries = append(m.entries, CreateLocationFromPath("/", ParsePath(entry), nil, key))
	}

	index := cfg.InitialIndex
	if index < 0 {
		index = len(m.entries) - 1
	}
	m.index = m.clampIndex(index)

	return m
}

func (m *Memory) clampIndex(n int) int {
	return min(max(n, 0), len(m.entries)-1)
}

// Index returns the index of the current entry.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.index
}

// Entries returns a copy of the stack.
func (m *Memory) Entries() []Location {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Location, len(m.entries))
	copy(out, m.entries)

	return out
}

// Action implements History.
func (m *Memory) Action() Action {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.action
}

// Location implements History.
func (m *Memory) Location() Location {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.entries[m.index]
}

// Push implements History.
func (m *Memory) Push(to Location) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.action = Push
	m.index++
	m.entries = append(m.entries[:m.index], m.memoryLocation(to))
}

// Replace implements History.
func (m *Memory) Replace(to Location) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.action = Replace
	m.entries[m.index] = m.memoryLocation(to)
}

// Go implements History. Listeners are called after the internal lock is
// released.
func (m *Memory) Go(delta int) {
	m.mu.Lock()
	m.action = Pop
	m.index = m.clampIndex(m.index + delta)
	update := Update{Action: Pop, Location: m.entries[m.index], Delta: delta}

	listeners := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if fn, ok := m.listeners[id]; ok {
			listeners = append(listeners, fn)
		}
	}
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(update)
	}
}

// Listen implements History.
func (m *Memory) Listen(fn Listener) func() {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// CreateHref implements History.
func (m *Memory) CreateHref(to Path) string {
	return CreatePath(to)
}

// CreateURL implements History. Hrefs that do not parse as a URL keep
// their raw pathname and query.
func (m *Memory) CreateURL(to Path) *url.URL {
	href := m.CreateHref(to)
	if u, err := url.Parse(m.origin + href); err == nil {
		return u
	}

	base, _ := url.Parse(m.origin)
	if base == nil {
		base = &url.URL{Scheme: "http", Host: "localhost"}
	}

	return &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     to.Pathname,
		RawQuery: strings.TrimPrefix(to.Search, "?"),
		Fragment: strings.TrimPrefix(to.Hash, "#"),
	}
}

// EncodeLocation implements History. Memory stores paths verbatim.
func (m *Memory) EncodeLocation(to Path) Path {
	return to
}

func (m *Memory) memoryLocation(to Location) Location {
	if to.Pathname == "" {
		to.Pathname = "/"
	}
	if to.Key == "" {
		to.Key = m.keyFunc()
	}

	return to
}
