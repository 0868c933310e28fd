// Package route models the route tree and matches URL pathnames against
// it.
//
// A route tree is a slice of *Route. Each route has an optional path
// pattern relative to its parent, optional loader and action handlers
// and an error boundary flag. Prepare validates a tree and assigns
// deterministic ids to routes that have none.
//
// # Patterns
//
// Patterns are made of static segments, ":name" dynamic segments and an
// optional trailing "*" splat that captures the rest of the pathname:
//
//	/users/:id
//	/files/*
//
// Matching is case-insensitive unless Route.CaseSensitive is set.
// Captured values are percent-decoded once.
//
// # Ranking
//
// MatchRoutes flattens the tree into branches (root to leaf paths) and
// scores each one. Every segment counts one point, static segments add
// 10, dynamic segments 3 and empty segments 1. Index routes add 2 and a
// splat subtracts 2. The highest scoring branch that matches the whole
// pathname wins, so "/a/literal" beats "/a/:id" and "/files/:name" beats
// "/files/*":
//
//	matches := route.MatchRoutes(routes, "/users/42", "")
//	leaf := matches[len(matches)-1]
//	// leaf.Params["id"] == "42"
//
// # Paths
//
// GeneratePath is the inverse of matching and ResolveTo resolves
// relative hrefs against the matched route hierarchy:
//
//	p, _ := route.GeneratePath("/users/:id", route.Params{"id": "42"})
//	// p == "/users/42"
package route
