package route

import (
	"fmt"
	"strconv"
	"strings"
)

// Prepare returns a copy of routes where every route has an id. Routes
// without an explicit id receive their tree position joined by "-"
// ("0", "0-1", "0-1-3"). The input tree is not modified.
//
// Prepare reports a *ConfigError for duplicate ids, index routes with
// children and absolute child paths that do not extend their parents'
// path.
func Prepare(routes []*Route) ([]*Route, error) {
	prepared, err := prepareRoutes(routes, nil, make(map[string]struct{}))
	if err != nil {
		return nil, err
	}

	if _, err := flattenRoutes(prepared, nil, nil, ""); err != nil {
		return nil, err
	}

	return prepared, nil
}

func prepareRoutes(routes []*Route, parentPath []int, ids map[string]struct{}) ([]*Route, error) {
	out := make([]*Route, 0, len(routes))

	for i, r := range routes {
		if r == nil {
			continue
		}

		treePath := append(parentPath[:len(parentPath):len(parentPath)], i)

		clone := *r
		if clone.ID == "" {
			clone.ID = treePathID(treePath)
		}

		if clone.Index && len(clone.Children) > 0 {
			return nil, &ConfigError{
				Err:     ErrIndexChildren,
				RouteID: clone.ID,
				Detail:  fmt.Sprintf("remove all child routes from index route %q", clone.ID),
			}
		}

		if _, exists := ids[clone.ID]; exists {
			return nil, &ConfigError{
				Err:     ErrDuplicateID,
				RouteID: clone.ID,
				Detail:  fmt.Sprintf("found a route id collision on id %q; route ids must be globally unique", clone.ID),
			}
		}
		ids[clone.ID] = struct{}{}

		if len(r.Children) > 0 {
			children, err := prepareRoutes(r.Children, treePath, ids)
			if err != nil {
				return nil, err
			}
			clone.Children = children
		}

		out = append(out, &clone)
	}

	return out, nil
}

func treePathID(treePath []int) string {
	parts := make([]string, len(treePath))
	for i, n := range treePath {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, "-")
}
