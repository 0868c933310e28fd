package route

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vitalvas/pathway/history"
)

// Score weights used to rank branches.
const (
	dynamicSegmentValue = 3
	indexRouteValue     = 2
	emptySegmentValue   = 1
	staticSegmentValue  = 10
	splatPenalty        = -2
)

// Match is one matched route of a navigation, root to leaf.
type Match struct {
	// Params are the params accumulated from the root down to this match.
	Params Params
	// Pathname is the portion of the URL pathname matched so far.
	Pathname string
	// PathnameBase is Pathname without any splat capture.
	PathnameBase string
	// Route is the matched route.
	Route *Route
}

// Meta describes one route of a Branch.
type Meta struct {
	// RelativePath is the route path relative to its parent.
	RelativePath  string
	CaseSensitive bool
	// ChildrenIndex is the position of the route among its siblings.
	ChildrenIndex int
	Route         *Route
}

// Branch is a candidate path from the root of the tree to one route.
type Branch struct {
	// Path is the concatenated pattern of the branch.
	Path  string
	Score int
	Metas []Meta
}

// Matcher matches pathnames against route trees. The zero value matches
// without a basename and logs to slog.Default().
type Matcher struct {
	// Basename is stripped from pathnames before matching.
	Basename string
	// Logger receives matching warnings.
	Logger *slog.Logger
}

func (m Matcher) logger() *slog.Logger {
	if m.Logger == nil {
		return slog.Default()
	}
	return m.Logger
}

// MatchRoutes matches the href location against routes and returns the
// matched routes root to leaf, or nil when nothing matches.
//
// MatchRoutes panics with a *ConfigError when routes is malformed; use
// Prepare to validate a tree up front.
func MatchRoutes(routes []*Route, location string, basename string) []Match {
	return Matcher{Basename: basename}.Match(routes, history.ParsePath(location).Pathname)
}

// Match matches pathname against routes. See MatchRoutes.
func (m Matcher) Match(routes []*Route, pathname string) []Match {
	if pathname == "" {
		pathname = "/"
	}

	pathname, ok := StripBasename(pathname, m.Basename)
	if !ok {
		return nil
	}

	branches, err := Flatten(routes)
	if err != nil {
		panic(err)
	}
	RankBranches(branches)

	logger := m.logger()
	decoded := decodePathname(pathname, logger)

	for i := range branches {
		if matches := m.matchBranch(&branches[i], decoded); matches != nil {
			return matches
		}
	}

	return nil
}

// Flatten lists every branch of the route tree depth-first. Layout routes
// (no path, not index) contribute their path to their children but no
// branch of their own.
func Flatten(routes []*Route) ([]Branch, error) {
	return flattenRoutes(routes, nil, nil, "")
}

func flattenRoutes(routes []*Route, branches []Branch, parents []Meta, parentPath string) ([]Branch, error) {
	for i, r := range routes {
		if r == nil {
			continue
		}

		meta := Meta{
			RelativePath:  r.Path,
			CaseSensitive: r.CaseSensitive,
			ChildrenIndex: i,
			Route:         r,
		}

		if strings.HasPrefix(meta.RelativePath, "/") {
			if !strings.HasPrefix(meta.RelativePath, parentPath) {
				return nil, &ConfigError{
					Err:     ErrAbsoluteChildPath,
					RouteID: r.ID,
					Path:    meta.RelativePath,
					Detail: fmt.Sprintf("absolute route path %q nested under path %q; an absolute child route path must start with the combined path of all its parent routes",
						meta.RelativePath, parentPath),
				}
			}
			meta.RelativePath = meta.RelativePath[len(parentPath):]
		}

		path := JoinPaths(parentPath, meta.RelativePath)
		metas := append(parents[:len(parents):len(parents)], meta)

		if len(r.Children) > 0 {
			if r.Index {
				return nil, &ConfigError{
					Err:     ErrIndexChildren,
					RouteID: r.ID,
					Path:    path,
					Detail:  fmt.Sprintf("remove all child routes from route path %q", path),
				}
			}

			var err error
			branches, err = flattenRoutes(r.Children, branches, metas, path)
			if err != nil {
				return nil, err
			}
		}

		if r.Path == "" && !r.Index {
			continue
		}

		branches = append(branches, Branch{
			Path:  path,
			Score: computeScore(path, r.Index),
			Metas: metas,
		})
	}

	return branches, nil
}

func computeScore(path string, index bool) int {
	segments := strings.Split(path, "/")
	score := len(segments)

	for _, s := range segments {
		if s == "*" {
			score += splatPenalty
			break
		}
	}

	if index {
		score += indexRouteValue
	}

	for _, s := range segments {
		switch {
		case s == "*":
		case dynamicParam.MatchString(s):
			score += dynamicSegmentValue
		case s == "":
			score += emptySegmentValue
		default:
			score += staticSegmentValue
		}
	}

	return score
}

// RankBranches sorts branches by score, highest first. Ties between
// siblings go to the one declared first; other ties keep their order.
func RankBranches(branches []Branch) {
	sort.SliceStable(branches, func(i, j int) bool {
		a, b := branches[i], branches[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return compareIndexes(a.Metas, b.Metas) < 0
	})
}

func compareIndexes(a, b []Meta) int {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	for i := 0; i < len(a)-1; i++ {
		if a[i].ChildrenIndex != b[i].ChildrenIndex {
			return 0
		}
	}

	return a[len(a)-1].ChildrenIndex - b[len(b)-1].ChildrenIndex
}

func (m Matcher) matchBranch(branch *Branch, pathname string) []Match {
	var (
		params          = Params{}
		matchedPathname = "/"
		matches         = make([]Match, 0, len(branch.Metas))
	)

	for i, meta := range branch.Metas {
		end := i == len(branch.Metas)-1

		remaining := pathname
		if matchedPathname != "/" {
			remaining = pathname[min(len(matchedPathname), len(pathname)):]
			if remaining == "" {
				remaining = "/"
			}
		}

		pm := m.MatchPath(PathPattern{Path: meta.RelativePath, CaseSensitive: meta.CaseSensitive, End: end}, remaining)
		if pm == nil {
			return nil
		}

		for k, v := range pm.Params {
			params[k] = v
		}

		matches = append(matches, Match{
			Params:       params.Clone(),
			Pathname:     JoinPaths(matchedPathname, pm.Pathname),
			PathnameBase: NormalizePathname(JoinPaths(matchedPathname, pm.PathnameBase)),
			Route:        meta.Route,
		})

		if pm.PathnameBase != "/" {
			matchedPathname = JoinPaths(matchedPathname, pm.PathnameBase)
		}
	}

	return matches
}
