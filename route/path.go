package route

import (
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	splatSuffix   = regexp.MustCompile(`/*\*?$`)
	paramSegment  = regexp.MustCompile(`/:(\w+)`)
	leadingParam  = regexp.MustCompile(`^:(\w+)`)
	dynamicParam  = regexp.MustCompile(`^:\w+$`)
	splatTemplate = regexp.MustCompile(`(/?)\*`)
)

// PathPattern is a pattern matched by MatchPath.
type PathPattern struct {
	// Path is the pattern, e.g. "/users/:id" or "/files/*".
	Path string
	// CaseSensitive disables case folding.
	CaseSensitive bool
	// End requires the pattern to consume the whole pathname. Without it
	// the pattern matches a prefix that ends at a "/" or at the end of the
	// pathname.
	End bool
}

// Pattern returns a case-insensitive PathPattern that must match the whole
// pathname.
func Pattern(path string) PathPattern {
	return PathPattern{Path: path, End: true}
}

// PathMatch is the result of a successful MatchPath.
type PathMatch struct {
	// Params are the decoded dynamic segment values.
	Params Params
	// Pathname is the portion of the pathname that matched.
	Pathname string
	// PathnameBase is Pathname without the splat capture and trailing
	// slashes.
	PathnameBase string
	// Pattern is the pattern that matched.
	Pattern PathPattern
}

// compiledPattern is a path pattern compiled to a regular expression.
type compiledPattern struct {
	regexp *regexp.Regexp
	// names are the param names in capture group order.
	names []string
	// boundary requires the match to be followed by "/" or the end of
	// the input. It stands in for a lookahead the regexp package lacks.
	boundary bool
}

// MatchPath matches pathname against pattern and returns nil when it does
// not match. Param values are percent-decoded; values that fail to
// decode are kept raw and a warning is logged to slog.Default().
func MatchPath(pattern PathPattern, pathname string) *PathMatch {
	return Matcher{}.MatchPath(pattern, pathname)
}

// MatchPath is the package level MatchPath logging through m.Logger.
func (m Matcher) MatchPath(pattern PathPattern, pathname string) *PathMatch {
	logger := m.logger()
	cp := compilePattern(pattern, logger)

	loc := cp.regexp.FindStringSubmatchIndex(pathname)
	if loc == nil {
		return nil
	}

	if cp.boundary && loc[1] < len(pathname) && pathname[loc[1]] != '/' {
		return nil
	}

	matched := pathname[loc[0]:loc[1]]
	base := trimTrailingSlashes(matched)

	params := make(Params, len(cp.names))
	for i, name := range cp.names {
		var capture string
		if start := loc[2+2*i]; start >= 0 {
			capture = pathname[start:loc[3+2*i]]
		}

		if name == "*" {
			base = trimTrailingSlashes(matched[:len(matched)-len(capture)])
		}

		params[name] = decodeParam(capture, name, logger)
	}

	return &PathMatch{
		Params:       params,
		Pathname:     matched,
		PathnameBase: base,
		Pattern:      pattern,
	}
}

// compilePath turns a pattern into a regular expression. ":name" becomes
// a group matching one segment and a trailing "*" a group matching the
// rest of the pathname.
func compilePath(pattern PathPattern, logger *slog.Logger) *compiledPattern {
	path := pattern.Path

	if path != "*" && strings.HasSuffix(path, "*") && !strings.HasSuffix(path, "/*") {
		logger.Warn("route path will be treated as if it were a splat route",
			slog.String("path", path),
			slog.String("treated_as", strings.TrimSuffix(path, "*")+"/*"),
			slog.String("hint", "always follow a * with a / in route paths"),
		)
	}

	base := leadingSlashes.ReplaceAllString(splatSuffix.ReplaceAllString(path, ""), "/")

	var (
		source strings.Builder
		names  []string
		last   int
	)

	if !pattern.CaseSensitive {
		source.WriteString("(?i)")
	}
	source.WriteByte('^')

	for _, idx := range paramSegment.FindAllStringSubmatchIndex(base, -1) {
		source.WriteString(regexp.QuoteMeta(base[last:idx[0]]))
		source.WriteString(`/([^/]+)`)
		names = append(names, base[idx[2]:idx[3]])
		last = idx[1]
	}
	source.WriteString(regexp.QuoteMeta(base[last:]))

	cp := &compiledPattern{}

	switch {
	case strings.HasSuffix(path, "*"):
		names = append(names, "*")
		if path == "*" || path == "/*" {
			source.WriteString(`(.*)$`)
		} else {
			source.WriteString(`(?:/(.+)|/*)$`)
		}
	case pattern.End:
		source.WriteString(`/*$`)
	case path != "" && path != "/":
		cp.boundary = true
	}

	cp.regexp = regexp.MustCompile(source.String())
	cp.names = names

	return cp
}

// GeneratePath interpolates params into a path pattern. The splat value is
// read from params["*"]. A missing named param is an error.
func GeneratePath(pattern string, params Params) (string, error) {
	path := pattern
	if strings.HasSuffix(path, "*") && path != "*" && !strings.HasSuffix(path, "/*") {
		slog.Default().Warn("route path will be treated as if it were a splat route",
			slog.String("path", path),
			slog.String("treated_as", strings.TrimSuffix(path, "*")+"/*"),
		)
		path = strings.TrimSuffix(path, "*") + "/*"
	}

	var missing string
	lookup := func(name string) string {
		v, ok := params[name]
		if !ok && missing == "" {
			missing = name
		}
		return v
	}

	path = leadingParam.ReplaceAllStringFunc(path, func(m string) string {
		return lookup(m[1:])
	})
	path = paramSegment.ReplaceAllStringFunc(path, func(m string) string {
		return "/" + lookup(m[2:])
	})

	if missing != "" {
		return "", fmt.Errorf("%w: %q", ErrMissingParam, ":"+missing)
	}

	if idx := splatTemplate.FindStringSubmatchIndex(path); idx != nil {
		prefix := path[idx[2]:idx[3]]

		var replacement string
		if star, ok := params["*"]; ok {
			replacement = prefix + star
		} else if path == "/*" {
			replacement = "/"
		}

		path = path[:idx[0]] + replacement + path[idx[1]:]
	}

	return path, nil
}

func trimTrailingSlashes(s string) string {
	for len(s) > 1 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func decodeParam(value, name string, logger *slog.Logger) string {
	decoded, err := url.PathUnescape(value)
	if err == nil && utf8.ValidString(decoded) {
		return decoded
	}

	logger.Warn("param value is not properly percent-encoded, using the raw value",
		slog.String("param", name),
		slog.String("value", value),
	)

	return value
}

// decodePathname percent-decodes pathname except for sequences that
// encode URI reserved characters or "%", which stay encoded so segment
// boundaries survive and params decode exactly once.
func decodePathname(pathname string, logger *slog.Logger) string {
	if !strings.Contains(pathname, "%") {
		return pathname
	}

	out := make([]byte, 0, len(pathname))
	for i := 0; i < len(pathname); i++ {
		if pathname[i] != '%' {
			out = append(out, pathname[i])
			continue
		}

		if i+2 >= len(pathname) || !isHex(pathname[i+1]) || !isHex(pathname[i+2]) {
			return warnRawPathname(pathname, logger)
		}

		c := unhex(pathname[i+1])<<4 | unhex(pathname[i+2])
		if strings.IndexByte(";/?:@&=+$,#%", c) >= 0 {
			out = append(out, pathname[i:i+3]...)
		} else {
			out = append(out, c)
		}
		i += 2
	}

	if !utf8.Valid(out) {
		return warnRawPathname(pathname, logger)
	}

	return string(out)
}

func warnRawPathname(pathname string, logger *slog.Logger) string {
	logger.Warn("pathname could not be decoded, matching the raw value",
		slog.String("pathname", pathname),
	)
	return pathname
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
