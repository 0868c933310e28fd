package route

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by ConfigError.
var (
	// ErrDuplicateID is reported when two routes share an id.
	ErrDuplicateID = errors.New("route: duplicate route id")

	// ErrIndexChildren is reported when an index route declares children.
	ErrIndexChildren = errors.New("route: index routes must not have child routes")

	// ErrAbsoluteChildPath is reported when an absolute child path does not
	// start with the combined path of its parents.
	ErrAbsoluteChildPath = errors.New("route: invalid absolute child path")

	// ErrMissingParam is returned by GeneratePath when a param has no value.
	ErrMissingParam = errors.New("route: missing param")
)

// ConfigError describes a malformed route tree. It is a programming
// mistake, not a runtime condition.
type ConfigError struct {
	// Err is one of the sentinel errors of this package.
	Err error
	// RouteID is the id of the offending route, when known.
	RouteID string
	// Path is the combined path of the offending route, when known.
	Path string
	// Detail is a human readable explanation.
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Detail == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Detail)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
