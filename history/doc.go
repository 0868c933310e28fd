// Package history defines the session history contract consumed by the
// router and ships an in-memory implementation.
//
// A History owns the stack of visited locations. The router pushes and
// replaces entries for committed navigations and listens for POP
// notifications produced by Go (back/forward). Browser or hash backed
// histories live outside this module and only need to satisfy the
// History interface.
//
// # Paths and Locations
//
// Path is the URL triple (pathname, search, hash). Location adds the
// entry state and a unique key used for scroll restoration lookups:
//
//	p := history.ParsePath("/users/42?tab=posts#top")
//	// p.Pathname == "/users/42", p.Search == "?tab=posts", p.Hash == "#top"
//
//	loc := history.CreateLocation("/users", "42?tab=posts", nil)
//	// loc.Key is a freshly generated UUID
//
// # Memory History
//
//	h := history.NewMemory(history.MemoryConfig{
//	    InitialEntries: []string{"/", "/users"},
//	})
//	h.Push(history.CreateLocation(h.Location().Pathname, "/about", nil))
//	h.Go(-1) // listeners observe a POP to "/users"
package history
