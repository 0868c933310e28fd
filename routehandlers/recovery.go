package routehandlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vitalvas/pathway/route"
	"github.com/vitalvas/pathway/router"
)

// ErrPanic is wrapped by the error returned for a panicking handler.
var ErrPanic = errors.New("recovery: handler panicked")

// RecoveryConfig configures the Recovery middleware behaviour.
type RecoveryConfig struct {
	// LogFunc is an optional callback invoked with the handler arguments
	// and the recovered value when a panic occurs. When nil, no logging is
	// performed.
	LogFunc func(args route.Args, err any)
}

// RecoveryMiddleware returns a middleware that recovers from panics in
// downstream handlers. A panic becomes a 500 *router.ErrorResponse
// wrapping ErrPanic, reported at the nearest error boundary.
func RecoveryMiddleware(cfg RecoveryConfig) route.MiddlewareFunc {
	return func(next route.HandlerFunc) route.HandlerFunc {
		return func(ctx context.Context, args route.Args) (value any, err error) {
			defer func() {
				if p := recover(); p != nil {
					if cfg.LogFunc != nil {
						cfg.LogFunc(args, p)
					}

					value = nil
					err = &router.ErrorResponse{
						Status:     http.StatusInternalServerError,
						StatusText: http.StatusText(http.StatusInternalServerError),
						Data:       http.StatusText(http.StatusInternalServerError),
						Err:        fmt.Errorf("%w: %v", ErrPanic, p),
					}
				}
			}()

			return next(ctx, args)
		}
	}
}
