package route

import (
	"regexp"
	"strings"

	"github.com/vitalvas/pathway/history"
)

var (
	duplicateSlashes = regexp.MustCompile(`/{2,}`)
	trailingSlashes  = regexp.MustCompile(`/+$`)
	leadingSlashes   = regexp.MustCompile(`^/*`)
)

// JoinPaths joins path segments with "/" and collapses repeated slashes.
func JoinPaths(paths ...string) string {
	return duplicateSlashes.ReplaceAllString(strings.Join(paths, "/"), "/")
}

// NormalizePathname removes trailing slashes and ensures a single leading
// slash.
func NormalizePathname(pathname string) string {
	return leadingSlashes.ReplaceAllString(trailingSlashes.ReplaceAllString(pathname, ""), "/")
}

// NormalizeSearch returns search with a leading "?", or empty.
func NormalizeSearch(search string) string {
	switch {
	case search == "" || search == "?":
		return ""
	case strings.HasPrefix(search, "?"):
		return search
	default:
		return "?" + search
	}
}

// NormalizeHash returns hash with a leading "#", or empty.
func NormalizeHash(hash string) string {
	switch {
	case hash == "" || hash == "#":
		return ""
	case strings.HasPrefix(hash, "#"):
		return hash
	default:
		return "#" + hash
	}
}

// StripBasename removes basename from the front of pathname. The prefix is
// compared case-insensitively and must be followed by "/" or the end of
// the pathname. It reports false when pathname is outside basename.
func StripBasename(pathname, basename string) (string, bool) {
	if basename == "" || basename == "/" {
		return pathname, true
	}

	if !strings.HasPrefix(strings.ToLower(pathname), strings.ToLower(basename)) {
		return "", false
	}

	start := len(basename)
	if strings.HasSuffix(basename, "/") {
		start--
	}

	if start < len(pathname) && pathname[start] != '/' {
		return "", false
	}

	rest := pathname[start:]
	if rest == "" {
		rest = "/"
	}

	return rest, true
}

// ResolvePath resolves to against fromPathname. Absolute pathnames are
// kept; relative ones are resolved segment by segment with "." and ".."
// handling. An empty pathname resolves to fromPathname.
func ResolvePath(to history.Path, fromPathname string) history.Path {
	if fromPathname == "" {
		fromPathname = "/"
	}

	pathname := fromPathname
	if to.Pathname != "" {
		if strings.HasPrefix(to.Pathname, "/") {
			pathname = to.Pathname
		} else {
			pathname = resolvePathname(to.Pathname, fromPathname)
		}
	}

	return history.Path{
		Pathname: pathname,
		Search:   NormalizeSearch(to.Search),
		Hash:     NormalizeHash(to.Hash),
	}
}

func resolvePathname(relativePath, fromPathname string) string {
	segments := strings.Split(trailingSlashes.ReplaceAllString(fromPathname, ""), "/")

	for _, segment := range strings.Split(relativePath, "/") {
		switch segment {
		case "..":
			if len(segments) > 1 {
				segments = segments[:len(segments)-1]
			}
		case ".":
		default:
			segments = append(segments, segment)
		}
	}

	if len(segments) > 1 {
		return strings.Join(segments, "/")
	}
	return "/"
}

// ResolveTo resolves the href to relative to a stack of matched route
// pathnames. Leading ".." segments climb the route hierarchy rather than
// the URL, unless pathRelative is set, in which case to resolves against
// locationPathname like a plain relative URL. A to without a pathname
// ("?q=1", "#top", "") targets the deepest route pathname.
func ResolveTo(to string, routePathnames []string, locationPathname string, pathRelative bool) history.Path {
	target := history.ParsePath(to)
	isEmptyPath := target.Pathname == ""

	toPathname := target.Pathname
	if isEmptyPath {
		toPathname = "/"
	}

	var from string
	if pathRelative {
		from = locationPathname
	} else {
		idx := len(routePathnames) - 1

		if strings.HasPrefix(toPathname, "..") {
			segments := strings.Split(toPathname, "/")
			for len(segments) > 0 && segments[0] == ".." {
				segments = segments[1:]
				idx--
			}
			target.Pathname = strings.Join(segments, "/")
		}

		from = "/"
		if idx >= 0 {
			from = routePathnames[idx]
		}
	}

	resolved := ResolvePath(target, from)

	hasExplicitTrailingSlash := toPathname != "" && toPathname != "/" && strings.HasSuffix(toPathname, "/")
	hasCurrentTrailingSlash := (isEmptyPath || toPathname == ".") && strings.HasSuffix(locationPathname, "/")
	if !strings.HasSuffix(resolved.Pathname, "/") && (hasExplicitTrailingSlash || hasCurrentTrailingSlash) {
		resolved.Pathname += "/"
	}

	return resolved
}

// PathContributingMatches returns the matches that add to the URL: the
// root match plus every match whose route declares a path.
func PathContributingMatches(matches []Match) []Match {
	out := make([]Match, 0, len(matches))
	for i, m := range matches {
		if i == 0 || m.Route.Path != "" {
			out = append(out, m)
		}
	}
	return out
}
