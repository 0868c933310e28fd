// Package manifest loads route trees from declarative YAML or JSON files.
//
// A manifest describes the shape of the tree: ids, paths, index and
// layout routes, error boundaries and arbitrary handle data. Loaders,
// actions and revalidation predicates are referenced by name and bound
// through a Registry when the tree is built:
//
//	basename: /app
//	routes:
//	  - id: root
//	    path: /
//	    loader: root
//	    errorBoundary: true
//	    children:
//	      - index: true
//	        loader: home
//	      - path: users/:id
//	        loader: user
//	        action: saveUser
//	        shouldRevalidate: false
//
// Build returns a []*route.Route ready for router.Config.Routes:
//
//	m, err := manifest.Load("routes.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	routes, err := m.Build(manifest.NewRegistry().
//	    Loader("root", rootLoader).
//	    Loader("home", homeLoader).
//	    Loader("user", userLoader).
//	    Action("saveUser", saveUser))
//
// shouldRevalidate accepts a registered predicate name or a boolean that
// fixes the decision. FromRoutes goes the other way and describes an
// existing tree, naming every handler after its route id; Dump encodes a
// manifest as YAML or JSON.
package manifest
