package route

import (
	"log/slog"
	"sync"
)

// patternCache caches compiled path patterns by their source and flags.
// The number of unique patterns is bounded by the route tree, so the
// cache grows to a fixed size and stays there.
var patternCache sync.Map

type patternKey struct {
	path          string
	caseSensitive bool
	end           bool
}

// compilePattern returns a cached *compiledPattern for the given pattern,
// compiling and caching it on first use. Compile warnings are logged only
// once per pattern.
func compilePattern(pattern PathPattern, logger *slog.Logger) *compiledPattern {
	key := patternKey{path: pattern.Path, caseSensitive: pattern.CaseSensitive, end: pattern.End}
	if v, ok := patternCache.Load(key); ok {
		return v.(*compiledPattern)
	}

	cp := compilePath(pattern, logger)

	actual, _ := patternCache.LoadOrStore(key, cp)

	return actual.(*compiledPattern)
}
